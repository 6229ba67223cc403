package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/subren/internal/domain"
)

const sample = `<!doctype html>
<html><body>
<table id="nav"><tr><td>首页</td><td>课程</td></tr></table>
<table>
  <thead><tr><th>序号</th><th>学号：</th><th>姓名</th></tr></thead>
  <tbody>
    <tr><td>1</td><td> 20231001 </td><td>张伟</td></tr>
    <tr><td>2</td><td>20231002</td><td>王  芳</td></tr>
    <tr><td>3</td><td>20231003</td><td>李雷</td></tr>
    <tr><td>4</td><td>20231004</td><td>李雷</td></tr>
    <tr><td>5</td><td></td><td>无学号</td></tr>
    <tr><td>6</td><td>20231001</td><td>重复</td></tr>
    <tr><td>7</td></tr>
  </tbody>
</table>
</body></html>`

func TestParse_FindsRosterTable(t *testing.T) {
	r, err := Parse([]byte(sample), 8, 12)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Len())

	n, ok := r.NameOf("20231001")
	require.True(t, ok)
	assert.Equal(t, "张伟", n)

	n, ok = r.NameOf("20231002")
	require.True(t, ok)
	assert.Equal(t, "王 芳", n)

	id, ok := r.IDOf("张伟")
	require.True(t, ok)
	assert.Equal(t, "20231001", id)

	// 重名无法确定学号。
	_, ok = r.IDOf("李雷")
	assert.False(t, ok)
}

func TestParse_EnglishHeaders(t *testing.T) {
	html := `<table><tr><td>Name</td><td>Student ID</td></tr><tr><td>Alice Smith</td><td>2023100112</td></tr></table>`
	r, err := Parse([]byte(html), 8, 12)
	require.NoError(t, err)

	n, ok := r.NameOf("2023100112")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", n)
}

func TestParse_NoTable(t *testing.T) {
	_, err := Parse([]byte(`<table><tr><td>a</td><td>b</td></tr></table>`), 8, 12)
	assert.ErrorIs(t, err, ErrNoTable)

	_, err = Parse(nil, 8, 12)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	r, err := Parse([]byte(sample), 8, 12)
	require.NoError(t, err)

	rec := domain.NewRecord("/in/20231001.pdf")
	rec.StudentID = "20231001"
	got, changed := r.Fill(rec)
	assert.True(t, changed)
	assert.Equal(t, "张伟", got.Name)

	rec = domain.NewRecord("/in/张伟.pdf")
	rec.Name = "张伟"
	got, changed = r.Fill(rec)
	assert.True(t, changed)
	assert.Equal(t, "20231001", got.StudentID)

	// 已有字段不覆盖；重名不补学号；未知学号不变。
	rec = domain.NewRecord("/in/x.pdf")
	rec.StudentID, rec.Name = "20231002", "别名"
	_, changed = r.Fill(rec)
	assert.False(t, changed)

	rec = domain.NewRecord("/in/李雷.pdf")
	rec.Name = "李雷"
	got, changed = r.Fill(rec)
	assert.False(t, changed)
	assert.Equal(t, domain.NoID, got.StudentID)

	rec = domain.NewRecord("/in/x.pdf")
	rec.StudentID = "99999999"
	_, changed = r.Fill(rec)
	assert.False(t, changed)
}

func TestParse_RejectsInvalidIDs(t *testing.T) {
	html := `<table><tr><th>学号</th><th>姓名</th></tr>` +
		`<tr><td>A-17</td><td>张伟</td></tr>` +
		`<tr><td>123</td><td>李四</td></tr>` +
		`<tr><td>2023100112345</td><td>王五</td></tr>` +
		`<tr><td>20231002</td><td>王芳</td></tr>` +
		`<tr><td>9</td><td>王芳</td></tr></table>`
	r, err := Parse([]byte(html), 8, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	for _, name := range []string{"张伟", "李四", "王五"} {
		rec := domain.NewRecord("/in/" + name + ".pdf")
		rec.Name = name
		got, changed := r.Fill(rec)
		assert.False(t, changed, name)
		assert.Equal(t, domain.NoID, got.StudentID, name)
	}

	_, ok := r.NameOf("A-17")
	assert.False(t, ok)

	// 非法行不参与按姓名反查，王芳仍是唯一姓名。
	rec := domain.NewRecord("/in/王芳.pdf")
	rec.Name = "王芳"
	got, changed := r.Fill(rec)
	assert.True(t, changed)
	assert.Equal(t, "20231002", got.StudentID)
}

func TestParse_RangeFollowsDetectedLength(t *testing.T) {
	html := `<table><tr><th>学号</th><th>姓名</th></tr>` +
		`<tr><td>20231001</td><td>张伟</td></tr>` +
		`<tr><td>2023100112</td><td>王芳</td></tr></table>`
	r, err := Parse([]byte(html), 10, 10)
	require.NoError(t, err)

	_, ok := r.IDOf("张伟")
	assert.False(t, ok)
	id, ok := r.IDOf("王芳")
	require.True(t, ok)
	assert.Equal(t, "2023100112", id)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.html")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	r, err := Load(path, 8, 12)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.html"), 8, 12)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
