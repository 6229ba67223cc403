package run

import (
	"time"

	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：抽取阶段的事件可能来自多个 goroutine。
type Observer interface {
	// OnStart 在运行开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个文件的重命名（或预览）完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
	// OnProgress 在抽取阶段每完成一个文件时调用。
	OnProgress(done, total int, elapsed time.Duration)
}

// 阶段名。
const (
	PhaseScan    = "scan"
	PhaseAnalyze = "analyze"
	PhaseExtract = "extract"
	PhasePlan    = "plan"
	PhaseApply   = "apply"
	PhaseUndo    = "undo"
)
