// Package synth 把抽取结果按模板渲染为新文件名，并规范化分隔符。
package synth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/John-Robertt/subren/internal/domain"
)

var (
	ErrUnknownPlaceholder = errors.New("未知占位符")
	ErrMalformedTemplate  = errors.New("模板格式错误")
)

// 模板中允许的占位符。
const (
	FieldStudentID    = "student_id"
	FieldName         = "name"
	FieldProject      = "project"
	FieldClassName    = "class_name"
	FieldOriginalName = "original_name"
)

var knownFields = map[string]struct{}{
	FieldStudentID:    {},
	FieldName:         {},
	FieldProject:      {},
	FieldClassName:    {},
	FieldOriginalName: {},
}

type segment struct {
	literal string
	field   string // 非空表示占位符
}

// Template 是解析后的命名模板（不可变，可并发使用）。
type Template struct {
	raw  string
	segs []segment
	sep  string
}

// Parse 解析模板；未知占位符与未闭合的 '{' 都视为配置错误。
func Parse(s string) (Template, error) {
	if strings.TrimSpace(s) == "" {
		return Template{}, fmt.Errorf("%w：模板为空", ErrMalformedTemplate)
	}

	var segs []segment
	var lit strings.Builder
	rest := s
	for rest != "" {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			lit.WriteString(rest)
			break
		}
		if rest[open] == '}' {
			return Template{}, fmt.Errorf("%w：多余的 '}'：%q", ErrMalformedTemplate, s)
		}
		lit.WriteString(rest[:open])

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return Template{}, fmt.Errorf("%w：未闭合的 '{'：%q", ErrMalformedTemplate, s)
		}
		field := rest[open+1 : open+end]
		if _, ok := knownFields[field]; !ok {
			return Template{}, fmt.Errorf("%w：{%s}", ErrUnknownPlaceholder, field)
		}
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
		segs = append(segs, segment{field: field})
		rest = rest[open+end+1:]
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{literal: lit.String()})
	}

	return Template{raw: s, segs: segs, sep: detectSeparator(segs)}, nil
}

// MustParse 用于常量模板（测试/预设）；解析失败直接 panic。
func MustParse(s string) Template {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) String() string { return t.raw }

// Separator 返回模板主分隔符：'-' 优先，其次 '_'，否则空格。
func (t Template) Separator() string { return t.sep }

// detectSeparator 只看字面文本：占位符名本身带 '_'，不能计入。
func detectSeparator(segs []segment) string {
	var lit strings.Builder
	for _, s := range segs {
		lit.WriteString(s.literal)
	}
	text := lit.String()
	switch {
	case strings.Contains(text, "-"):
		return "-"
	case strings.Contains(text, "_"):
		return "_"
	default:
		return " "
	}
}

var spaceRunRE = regexp.MustCompile(`\s+`)

// Generate 渲染新文件名（含原扩展名）。纯函数：同一输入总得到同一输出。
//
// 空字段渲染为空串（NoID 同样视为空），随后折叠重复分隔符并去掉首尾分隔符，
// 因此空字段不会留下 "--" 或悬空的分隔符。
func Generate(rec domain.FilenameRecord, t Template) string {
	var b strings.Builder
	for _, s := range t.segs {
		if s.field == "" {
			b.WriteString(s.literal)
			continue
		}
		b.WriteString(fieldValue(rec, s.field))
	}

	out := b.String()
	if t.sep == " " {
		out = spaceRunRE.ReplaceAllString(out, " ")
	} else {
		out = collapseRuns(out, t.sep)
	}
	out = strings.Trim(out, t.sep+" \t")
	return out + rec.Extension
}

// GenerateString 是 Parse + Generate 的便捷组合（人工修改记录后再生成文件名）。
func GenerateString(rec domain.FilenameRecord, template string) (string, error) {
	t, err := Parse(template)
	if err != nil {
		return "", err
	}
	return Generate(rec, t), nil
}

func fieldValue(rec domain.FilenameRecord, field string) string {
	switch field {
	case FieldStudentID:
		if !rec.HasID() {
			return ""
		}
		return rec.StudentID
	case FieldName:
		return rec.Name
	case FieldProject:
		return rec.Project
	case FieldClassName:
		return rec.ClassName
	case FieldOriginalName:
		return rec.Stem()
	default:
		return ""
	}
}

func collapseRuns(s, sep string) string {
	double := sep + sep
	for strings.Contains(s, double) {
		s = strings.ReplaceAll(s, double, sep)
	}
	return s
}
