package domain

import (
	"path/filepath"
	"strings"
)

// NoID 是未找到学号时的哨兵值。
const NoID = "NoID"

// FilenameRecord 是单个输入文件的抽取结果。
//
// 不变量（实现必须遵守）：
// - OriginalName/FilePath/Extension 创建后不可变
// - StudentID 要么是 NoID，要么是长度在配置区间内的纯数字串
// - 抽取只修改字段，从不修改原文件名
type FilenameRecord struct {
	OriginalName string `json:"original_name"`
	FilePath     string `json:"filepath"`
	Extension    string `json:"extension"`

	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Project   string `json:"project"`
	ClassName string `json:"class_name"`
}

// NewRecord 以路径初始化一条空记录（StudentID=NoID）。
func NewRecord(path string) FilenameRecord {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		// ".bashrc" 这类名字没有扩展名。
		ext = ""
	}
	return FilenameRecord{
		OriginalName: base,
		FilePath:     path,
		Extension:    ext,
		StudentID:    NoID,
	}
}

// Stem 返回去掉扩展名的原文件名。
func (r FilenameRecord) Stem() string {
	return strings.TrimSuffix(r.OriginalName, r.Extension)
}

// HasID 报告 StudentID 是否为真实学号（非空且非 NoID）。
func (r FilenameRecord) HasID() bool {
	return r.StudentID != "" && r.StudentID != NoID
}

// ValidStudentID 报告 id 是否满足学号不变量：纯数字，长度在 [minLen, maxLen] 内。
// 花名册、人工修正等外部来源的学号写入记录前都要经过这一检查。
func ValidStudentID(id string, minLen, maxLen int) bool {
	if len(id) < minLen || len(id) > maxLen || id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// WithStudentID 返回替换了学号的副本（人工修正学号后再生成文件名使用）。
func (r FilenameRecord) WithStudentID(id string) FilenameRecord {
	id = strings.TrimSpace(id)
	if id == "" {
		id = NoID
	}
	r.StudentID = id
	return r
}
