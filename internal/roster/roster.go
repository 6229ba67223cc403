// Package roster 从 HTML 花名册表格读取“学号 → 姓名”，用于补全抽取结果中缺失的字段。
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/subren/internal/domain"
)

// ErrNoTable 表示文档中没有同时包含学号列与姓名列的表格。
var ErrNoTable = errors.New("未找到包含学号/姓名列的表格")

var (
	idHeaders   = []string{"学号", "學號", "学生学号", "id", "studentid", "student id"}
	nameHeaders = []string{"姓名", "名字", "学生姓名", "name", "studentname", "student name"}
)

// Roster 是只读的花名册索引。只收录满足学号不变量的行。
type Roster struct {
	byID   map[string]string
	byName map[string][]string

	minLen, maxLen int
}

// Load 读取并解析 HTML 花名册文件。minLen/maxLen 是生效的学号长度区间。
func Load(path string, minLen, maxLen int) (*Roster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(b, minLen, maxLen)
	if err != nil {
		return nil, fmt.Errorf("花名册 %q：%w", path, err)
	}
	return r, nil
}

// Parse 在文档中寻找第一张表头同时含学号列与姓名列的表格，读取其后的数据行。
// 学号或姓名为空的行跳过；学号不是 [minLen, maxLen] 位纯数字的行整行丢弃
// （既不能按学号查，也不参与按姓名反查）；同一学号出现多次时保留第一次。
func Parse(html []byte, minLen, maxLen int) (*Roster, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	r := &Roster{
		byID:   map[string]string{},
		byName: map[string][]string{},
		minLen: minLen,
		maxLen: maxLen,
	}
	found := false
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		idCol, nameCol := -1, -1
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := rowCells(tr)
			if idCol < 0 {
				idCol, nameCol = headerColumns(cells)
				if idCol < 0 || nameCol < 0 {
					idCol, nameCol = -1, -1
				}
				return
			}
			if idCol >= len(cells) || nameCol >= len(cells) {
				return
			}
			r.add(cells[idCol], cells[nameCol])
		})
		if idCol >= 0 {
			found = true
			return false
		}
		return true
	})
	if !found {
		return nil, ErrNoTable
	}
	return r, nil
}

func (r *Roster) add(id, name string) {
	id = strings.ReplaceAll(id, " ", "")
	if id == "" || name == "" {
		return
	}
	if !domain.ValidStudentID(id, r.minLen, r.maxLen) {
		return
	}
	if _, ok := r.byID[id]; ok {
		return
	}
	r.byID[id] = name
	r.byName[name] = append(r.byName[name], id)
}

func (r *Roster) Len() int { return len(r.byID) }

// NameOf 返回学号对应的姓名。
func (r *Roster) NameOf(id string) (string, bool) {
	n, ok := r.byID[id]
	return n, ok
}

// IDOf 返回姓名对应的学号；重名（对应多个学号）时视为无法确定。
func (r *Roster) IDOf(name string) (string, bool) {
	ids := r.byName[name]
	if len(ids) != 1 {
		return "", false
	}
	return ids[0], true
}

// Fill 用花名册补全记录：有学号缺姓名时补姓名，有姓名缺学号时按唯一姓名补学号。
// 已有字段从不覆盖。第二个返回值表示记录是否被修改。
func (r *Roster) Fill(rec domain.FilenameRecord) (domain.FilenameRecord, bool) {
	switch {
	case rec.HasID() && rec.Name == "":
		if n, ok := r.NameOf(rec.StudentID); ok {
			rec.Name = n
			return rec, true
		}
	case !rec.HasID() && rec.Name != "":
		if id, ok := r.IDOf(rec.Name); ok {
			return rec.WithStudentID(id), true
		}
	}
	return rec, false
}

func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Children().Filter("th, td").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, normSpace(c.Text()))
	})
	return cells
}

func headerColumns(cells []string) (idCol, nameCol int) {
	idCol, nameCol = -1, -1
	for i, c := range cells {
		h := normHeader(c)
		if idCol < 0 && contains(idHeaders, h) {
			idCol = i
			continue
		}
		if nameCol < 0 && contains(nameHeaders, h) {
			nameCol = i
		}
	}
	return idCol, nameCol
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normHeader(s string) string {
	s = normSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.ToLower(strings.TrimSpace(s))
}
