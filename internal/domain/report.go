package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	FileStatusPlanned    = "planned"
	FileStatusUnchanged  = "unchanged"
	FileStatusMoved      = "moved"
	FileStatusRolledBack = "rolled_back"
	FileStatusFailed     = "failed"
)

const (
	ErrCodeTargetConflict    = "target_conflict"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeMoveFailed        = "move_failed"
	ErrCodeHistoryFailed     = "history_failed"
	ErrCodeNothingToUndo     = "nothing_to_undo"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path    string `json:"path"`
	DryRun  bool   `json:"dry_run"`
	BatchID string `json:"batch_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Template string          `json:"template"`
	Analysis *AnalysisReport `json:"analysis,omitempty"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// AnalysisReport 是语料词频分析的对外输出。
type AnalysisReport struct {
	Files               int      `json:"files"`
	ProposedProject     string   `json:"proposed_project"`
	ProposedExclusions  []string `json:"proposed_exclusions"`
	MandatoryExclusions []string `json:"mandatory_exclusions"`
	IDMinLen            int      `json:"id_min_len,omitempty"`
	IDMaxLen            int      `json:"id_max_len,omitempty"`

	// 实际交给抽取器的项目名与排除词。
	StandardProject string   `json:"standard_project,omitempty"`
	ExcludedTokens  []string `json:"excluded_tokens,omitempty"`
}

type ItemResult struct {
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	NewName string `json:"new_name"`

	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Project   string `json:"project"`
	ClassName string `json:"class_name"`

	Status     string `json:"status"`
	FileStatus string `json:"file_status"`
	ErrorCode  string `json:"error_code"`
	ErrorMsg   string `json:"error_msg"`
	// Note 记录跳过原因等非错误说明。
	Note string `json:"note,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 src 字典序；src=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Src
		b := r.Items[j].Src
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
