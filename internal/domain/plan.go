package domain

// MovePlan 规划一次重命名（只描述 src/dst；真正执行由 run 层负责且不允许覆盖）。
type MovePlan struct {
	SrcAbs string `json:"src"`
	DstAbs string `json:"dst"`
}

// RenamePlan 是对单个文件的最小执行计划。
//
// - Skip=true：无需移动（新文件名与原文件名相同，或无法生成文件名），原因见 SkipReason
// - ConflictMsg 非空：规划阶段已判定冲突（目标已存在/批内重名），执行阶段直接记为失败
type RenamePlan struct {
	Record  FilenameRecord
	NewName string
	Move    MovePlan

	Skip       bool
	SkipReason string

	ConflictMsg string
}
