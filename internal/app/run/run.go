package run

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/subren/internal/app/planner"
	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/extract"
	"github.com/John-Robertt/subren/internal/history"
	"github.com/John-Robertt/subren/internal/infra/fsx"
	"github.com/John-Robertt/subren/internal/roster"
	"github.com/John-Robertt/subren/internal/scan"
	"github.com/John-Robertt/subren/internal/synth"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	if log == nil {
		log = zap.NewNop()
	}
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Template:  eff.Template,
		Items:     make([]domain.ItemResult, 0, 128),
	}
	fail := func(code, msg string) domain.RunReport {
		rr.Items = append(rr.Items, syntheticFailed(code, msg))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	tmpl, err := synth.Parse(eff.Template)
	if err != nil {
		return fail(domain.ErrCodeConfigInvalid, fmt.Sprintf("template 无效：%v", err))
	}

	scanStarted := time.Now()
	files, err := scan.ScanFiles(eff.Path, eff.ExcludeDirs, eff.RosterPath)
	if err != nil {
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err))
	}
	paths := scan.Paths(files)
	if obs != nil {
		obs.OnPhaseDone(PhaseScan, map[string]any{"files": len(files)}, time.Since(scanStarted))
	}

	analyzeStarted := time.Now()
	opts, analysis := buildOptions(eff, paths)
	rr.Analysis = &analysis
	log.Debug("抽取参数",
		zap.Int("id_min_len", opts.IDMinLen),
		zap.Int("id_max_len", opts.IDMaxLen),
		zap.String("project", opts.StandardProject),
		zap.Strings("excluded", opts.ExcludedTokens),
	)
	if obs != nil {
		obs.OnPhaseDone(PhaseAnalyze, map[string]any{
			"project":   opts.StandardProject,
			"excluded":  len(opts.ExcludedTokens),
			"id_min":    opts.IDMinLen,
			"id_max":    opts.IDMaxLen,
			"mandatory": len(analysis.MandatoryExclusions),
		}, time.Since(analyzeStarted))
	}

	// 花名册按生效的学号区间（含自动探测结果）过滤，非法学号不会进入记录。
	var ros *roster.Roster
	if eff.RosterPath != "" {
		if ros, err = roster.Load(eff.RosterPath, opts.IDMinLen, opts.IDMaxLen); err != nil {
			return fail(domain.ErrCodeConfigInvalid, fmt.Sprintf("读取花名册失败：%v", err))
		}
		log.Debug("已加载花名册", zap.String("path", eff.RosterPath), zap.Int("students", ros.Len()))
	}

	parser, err := extract.NewParser(opts, log)
	if err != nil {
		return fail(domain.ErrCodeConfigInvalid, err.Error())
	}

	extractStarted := time.Now()
	recs, err := extractAll(ctx, parser, paths, eff.Concurrency, obs)
	if err != nil {
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("抽取中断：%v", err))
	}
	recs = applyCorrections(recs, files, eff.Overrides, ros, opts, log)
	if obs != nil {
		obs.OnPhaseDone(PhaseExtract, map[string]any{
			"files":   len(recs),
			"workers": workers(eff.Concurrency),
		}, time.Since(extractStarted))
	}

	planStarted := time.Now()
	st, err := planner.ReadDirState(recs)
	if err != nil {
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("读取目录状态失败：%v", err))
	}
	plans := planner.PlanRenames(recs, tmpl, st)
	if obs != nil {
		var renames, skipped, conflicts int
		for _, p := range plans {
			switch {
			case p.Skip:
				skipped++
			case p.ConflictMsg != "":
				conflicts++
			default:
				renames++
			}
		}
		obs.OnPhaseDone(PhasePlan, map[string]any{
			"renames":   renames,
			"skipped":   skipped,
			"conflicts": conflicts,
		}, time.Since(planStarted))
	}

	if eff.Apply {
		rr.BatchID = history.NewID()
	}

	// rename 串行执行：冲突检测依赖前序结果。
	applyStarted := time.Now()
	moved := make([]history.Move, 0, len(plans))
	for i, p := range plans {
		oneStarted := time.Now()
		res := itemFromPlan(eff.Path, p)

		switch {
		case p.Skip:
			res.Status = domain.StatusSkipped
			res.FileStatus = domain.FileStatusUnchanged
			res.Note = p.SkipReason
		case p.ConflictMsg != "":
			res.Status = domain.StatusFailed
			res.FileStatus = domain.FileStatusFailed
			res.ErrorCode = domain.ErrCodeTargetConflict
			res.ErrorMsg = p.ConflictMsg
		case !eff.Apply:
			res.Status = domain.StatusProcessed
			res.FileStatus = domain.FileStatusPlanned
		case ctx.Err() != nil:
			res.Status = domain.StatusFailed
			res.FileStatus = domain.FileStatusFailed
			res.ErrorCode = domain.ErrCodeMoveFailed
			res.ErrorMsg = fmt.Sprintf("已取消：%v", ctx.Err())
		default:
			if err := fsx.RenameNoOverwrite(p.Move.SrcAbs, p.Move.DstAbs); err != nil {
				res.Status = domain.StatusFailed
				res.FileStatus = domain.FileStatusFailed
				res.ErrorCode = domain.ErrCodeMoveFailed
				if fsx.IsTargetConflict(err) {
					res.ErrorCode = domain.ErrCodeTargetConflict
				}
				res.ErrorMsg = err.Error()
				log.Warn("重命名失败", zap.String("src", p.Move.SrcAbs), zap.Error(err))
			} else {
				res.Status = domain.StatusProcessed
				res.FileStatus = domain.FileStatusMoved
				moved = append(moved, history.Move{Src: p.Move.SrcAbs, Dst: p.Move.DstAbs})
			}
		}

		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(i+1, len(plans), res, time.Since(oneStarted))
		}
	}
	if obs != nil {
		obs.OnPhaseDone(PhaseApply, map[string]any{
			"total": len(plans),
			"moved": len(moved),
		}, time.Since(applyStarted))
	}

	if eff.Apply && len(moved) > 0 {
		if err := recordHistory(ctx, eff.Path, rr.BatchID, moved); err != nil {
			log.Error("写入历史失败", zap.String("batch", rr.BatchID), zap.Error(err))
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeHistoryFailed,
				fmt.Sprintf("重命名已完成，但写入历史失败（无法撤回本批次）：%v", err)))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// extractAll 按 worker pool 并发抽取；结果按输入顺序回填。
func extractAll(ctx context.Context, p *extract.Parser, paths []string, concurrency int, obs Observer) ([]domain.FilenameRecord, error) {
	recs := make([]domain.FilenameRecord, len(paths))
	n := workers(concurrency)
	started := time.Now()

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				recs[idx] = p.Extract(paths[idx])
				if obs != nil {
					mu.Lock()
					done++
					d := done
					mu.Unlock()
					obs.OnProgress(d, len(paths), time.Since(started))
				}
			}
		}()
	}

	var err error
feed:
	for i := range paths {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// applyCorrections 应用人工学号修正（overrides），再用花名册补全缺失字段。
// overrides 的键可以是相对 root 的路径，也可以是原文件名；
// 不在生效学号区间内的修正值被忽略（id_len=auto 时区间在探测后才确定）。
func applyCorrections(recs []domain.FilenameRecord, files []domain.SourceFile, overrides map[string]string, ros *roster.Roster, opts extract.Options, log *zap.Logger) []domain.FilenameRecord {
	for i := range recs {
		if id, ok := overrideFor(overrides, files[i].RelPath, recs[i].OriginalName); ok {
			if domain.ValidStudentID(id, opts.IDMinLen, opts.IDMaxLen) {
				recs[i] = recs[i].WithStudentID(id)
				log.Debug("应用学号修正", zap.String("file", files[i].RelPath), zap.String("student_id", id))
			} else {
				log.Warn("学号修正不在生效长度区间内，已忽略",
					zap.String("file", files[i].RelPath),
					zap.String("student_id", id),
					zap.Int("id_min_len", opts.IDMinLen),
					zap.Int("id_max_len", opts.IDMaxLen),
				)
			}
		}
		if ros != nil {
			if r, changed := ros.Fill(recs[i]); changed {
				recs[i] = r
				log.Debug("花名册补全", zap.String("file", files[i].RelPath),
					zap.String("student_id", r.StudentID), zap.String("name", r.Name))
			}
		}
	}
	return recs
}

func overrideFor(overrides map[string]string, rel, base string) (string, bool) {
	if id, ok := overrides[filepath.ToSlash(rel)]; ok {
		return id, true
	}
	id, ok := overrides[base]
	return id, ok
}

func recordHistory(ctx context.Context, root, batchID string, moved []history.Move) error {
	store, err := history.Open(ctx, filepath.Join(root, config.StateDir, history.FileName))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, history.Batch{
		ID:        batchID,
		Root:      root,
		CreatedAt: time.Now(),
		Moves:     moved,
	})
}

func itemFromPlan(root string, p domain.RenamePlan) domain.ItemResult {
	r := p.Record
	return domain.ItemResult{
		Src:       relOrAbs(root, p.Move.SrcAbs),
		Dst:       relOrAbs(root, p.Move.DstAbs),
		NewName:   p.NewName,
		StudentID: r.StudentID,
		Name:      r.Name,
		Project:   r.Project,
		ClassName: r.ClassName,
	}
}

// relOrAbs 尽量输出相对路径；失败则输出原始 abs（至少可追溯）。
func relOrAbs(root, abs string) string {
	if abs == "" {
		return ""
	}
	if rel, err := filepath.Rel(root, abs); err == nil {
		return rel
	}
	return abs
}

func workers(concurrency int) int {
	if concurrency < 1 {
		return 1
	}
	return concurrency
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:     domain.StatusFailed,
		FileStatus: domain.FileStatusFailed,
		ErrorCode:  code,
		ErrorMsg:   msg,
	}
}
