package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/subren/internal/domain"
)

func record(id, name, project, class string) domain.FilenameRecord {
	r := domain.NewRecord("/in/原始 文件.pdf")
	r.StudentID = id
	r.Name = name
	r.Project = project
	r.ClassName = class
	return r
}

func TestGenerate_RoundTrip(t *testing.T) {
	tmpl := MustParse("{student_id}-{name}-{project}")
	got := Generate(record("20231001", "张伟", "会计作业", ""), tmpl)
	assert.Equal(t, "20231001-张伟-会计作业.pdf", got)
}

func TestGenerate_EmptyFieldsCollapse(t *testing.T) {
	cases := []struct {
		tmpl string
		rec  domain.FilenameRecord
		want string
	}{
		{tmpl: "{student_id}-{name}-{project}", rec: record(domain.NoID, "张伟", "作业", ""), want: "张伟-作业.pdf"},
		{tmpl: "{student_id}-{name}-{project}", rec: record("20231001", "", "作业", ""), want: "20231001-作业.pdf"},
		{tmpl: "{student_id}-{name}-{project}", rec: record("20231001", "张伟", "", ""), want: "20231001-张伟.pdf"},
		{tmpl: "{class_name}_{student_id}_{name}", rec: record("20231001", "张伟", "", ""), want: "20231001_张伟.pdf"},
		{tmpl: "{student_id} {name}  {project}", rec: record("1", "Jerry  Lee", "", ""), want: "1 Jerry Lee.pdf"},
		{tmpl: "{student_id}-{name}", rec: record(domain.NoID, "", "", ""), want: ".pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, Generate(tc.rec, MustParse(tc.tmpl)))
		})
	}
}

func TestGenerate_SeparatorInvariant(t *testing.T) {
	templates := []string{
		"{student_id}-{name}-{project}",
		"{class_name}_{student_id}_{name}_{project}",
		"{project} {student_id} {name}",
		"-{student_id}--{name}-",
		"{original_name}_{student_id}",
	}
	recs := []domain.FilenameRecord{
		record(domain.NoID, "", "", ""),
		record("20231001", "", "", ""),
		record("", "张伟", "", "1班"),
		record("20231001", "Jerry Lee", "Lab Report", ""),
		record(domain.NoID, "-张伟-", "_作业_", " "),
	}
	for _, s := range templates {
		tmpl := MustParse(s)
		sep := tmpl.Separator()
		for _, r := range recs {
			stem := strings.TrimSuffix(Generate(r, tmpl), r.Extension)
			assert.NotContains(t, stem, sep+sep, s)
			if stem == "" {
				continue
			}
			assert.False(t, strings.HasPrefix(stem, sep), "%s → %q", s, stem)
			assert.False(t, strings.HasSuffix(stem, sep), "%s → %q", s, stem)
		}
	}
}

func TestParse_SeparatorDetectionIgnoresPlaceholderNames(t *testing.T) {
	assert.Equal(t, "-", MustParse("{student_id}_{name}-{project}").Separator())
	assert.Equal(t, "_", MustParse("{student_id}_{name}").Separator())
	assert.Equal(t, " ", MustParse("{student_id} {class_name}").Separator())
	assert.Equal(t, " ", MustParse("{student_id}{class_name}").Separator())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("{student_id}-{nmae}")
	require.ErrorIs(t, err, ErrUnknownPlaceholder)

	for _, s := range []string{"{student_id", "name}", "", "   "} {
		_, err = Parse(s)
		require.ErrorIs(t, err, ErrMalformedTemplate, s)
	}
}

func TestGenerate_OriginalName(t *testing.T) {
	got := Generate(record("20231001", "", "", ""), MustParse("{original_name}_{student_id}"))
	assert.Equal(t, "原始 文件_20231001.pdf", got)
}

func TestGenerateString(t *testing.T) {
	rec := record("20231001", "张伟", "会计作业", "").WithStudentID("20239999")
	got, err := GenerateString(rec, "{name}-{student_id}")
	require.NoError(t, err)
	assert.Equal(t, "张伟-20239999.pdf", got)

	_, err = GenerateString(rec, "{id}")
	assert.ErrorIs(t, err, ErrUnknownPlaceholder)
}

func TestGenerate_Deterministic(t *testing.T) {
	tmpl := MustParse("{student_id}-{name}-{project}")
	r := record("20231001", "张伟", "作业", "")
	first := Generate(r, tmpl)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Generate(r, tmpl))
	}
}

func TestCompose(t *testing.T) {
	cases := []struct {
		preset, sep, pos string
		want             string
	}{
		{PresetIDNameProject, "-", ClassNone, "{student_id}-{name}-{project}"},
		{PresetNameIDProject, "_", "", "{name}_{student_id}_{project}"},
		{PresetProjectIDName, " ", ClassStart, "{class_name} {project} {student_id} {name}"},
		{PresetOriginalID, "-", ClassEnd, "{original_name}-{student_id}-{class_name}"},
		{PresetIDNameProject, "-", ClassAfterID, "{student_id}-{class_name}-{name}-{project}"},
		{PresetProjectIDName, "", ClassAfterID, "{project}{student_id}{class_name}{name}"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			got, err := Compose(tc.preset, tc.sep, tc.pos)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			_, err = Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestCompose_Errors(t *testing.T) {
	_, err := Compose("id-project", "-", ClassNone)
	assert.ErrorIs(t, err, ErrUnknownPreset)

	_, err = Compose(PresetIDNameProject, "/", ClassNone)
	assert.ErrorIs(t, err, ErrInvalidSeparator)

	_, err = Compose(PresetIDNameProject, "-", "middle")
	assert.ErrorIs(t, err, ErrInvalidClassPosition)
}

func TestCompose_DoesNotMutatePresets(t *testing.T) {
	_, err := Compose(PresetIDNameProject, "-", ClassEnd)
	require.NoError(t, err)
	got, err := Compose(PresetIDNameProject, "-", ClassNone)
	require.NoError(t, err)
	assert.Equal(t, "{student_id}-{name}-{project}", got)
	assert.Len(t, Presets(), 4)
}
