package synth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownPreset        = errors.New("未知命名模式")
	ErrInvalidSeparator     = errors.New("分隔符无效")
	ErrInvalidClassPosition = errors.New("班级位置无效")
)

// 预设命名模式。
const (
	PresetIDNameProject = "id-name-project"
	PresetNameIDProject = "name-id-project"
	PresetProjectIDName = "project-id-name"
	PresetOriginalID    = "original-id"
)

// 班级字段的插入位置。
const (
	ClassNone    = "none"
	ClassStart   = "start"
	ClassEnd     = "end"
	ClassAfterID = "after_id"
)

var presets = map[string][]string{
	PresetIDNameProject: {FieldStudentID, FieldName, FieldProject},
	PresetNameIDProject: {FieldName, FieldStudentID, FieldProject},
	PresetProjectIDName: {FieldProject, FieldStudentID, FieldName},
	PresetOriginalID:    {FieldOriginalName, FieldStudentID},
}

// Presets 返回全部预设名（固定顺序）。
func Presets() []string {
	return []string{PresetIDNameProject, PresetNameIDProject, PresetProjectIDName, PresetOriginalID}
}

// ValidSeparators 是预设模式允许的分隔符；空串表示直接拼接。
var ValidSeparators = []string{"-", "_", " ", ""}

// Compose 由预设模式、分隔符与班级位置生成模板字符串。
//
// classPos 为 after_id 时，班级紧跟在学号之后；预设里没有学号时退化为 end。
func Compose(preset, sep, classPos string) (string, error) {
	fields, ok := presets[preset]
	if !ok {
		return "", fmt.Errorf("%w：%q", ErrUnknownPreset, preset)
	}
	if !validSeparator(sep) {
		return "", fmt.Errorf("%w：%q", ErrInvalidSeparator, sep)
	}

	fields = append([]string(nil), fields...)
	switch classPos {
	case "", ClassNone:
	case ClassStart:
		fields = append([]string{FieldClassName}, fields...)
	case ClassEnd:
		fields = append(fields, FieldClassName)
	case ClassAfterID:
		fields = insertAfter(fields, FieldStudentID, FieldClassName)
	default:
		return "", fmt.Errorf("%w：%q", ErrInvalidClassPosition, classPos)
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = "{" + f + "}"
	}
	return strings.Join(parts, sep), nil
}

func validSeparator(sep string) bool {
	for _, s := range ValidSeparators {
		if s == sep {
			return true
		}
	}
	return false
}

func insertAfter(fields []string, after, f string) []string {
	for i, x := range fields {
		if x == after {
			out := make([]string, 0, len(fields)+1)
			out = append(out, fields[:i+1]...)
			out = append(out, f)
			return append(out, fields[i+1:]...)
		}
	}
	return append(fields, f)
}
