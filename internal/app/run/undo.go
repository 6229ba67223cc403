package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/history"
	"github.com/John-Robertt/subren/internal/infra/fsx"
)

// Undo 撤回 root 下最近一次尚未撤回的批次：按倒序把每个文件改回原名（同样不覆盖）。
//
// 已经是原名的文件（目标不存在、源存在）记为 skipped，因此部分失败后可以重复执行。
// 全部成功时批次被标记为已撤回。
func Undo(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	if log == nil {
		log = zap.NewNop()
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		StartedAt: time.Now().UTC(),
		Items:     []domain.ItemResult{},
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	dbPath := filepath.Join(eff.Path, config.StateDir, history.FileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeNothingToUndo, history.ErrNoBatch.Error()))
		return finish()
	}

	store, err := history.Open(ctx, dbPath)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeHistoryFailed, err.Error()))
		return finish()
	}
	defer store.Close()

	b, err := store.Last(ctx, eff.Path)
	if errors.Is(err, history.ErrNoBatch) {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeNothingToUndo, err.Error()))
		return finish()
	}
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeHistoryFailed, err.Error()))
		return finish()
	}
	rr.BatchID = b.ID

	started := time.Now()
	failed := 0
	for i := len(b.Moves) - 1; i >= 0; i-- {
		mv := b.Moves[i]
		res := domain.ItemResult{
			Src:     relOrAbs(eff.Path, mv.Dst),
			Dst:     relOrAbs(eff.Path, mv.Src),
			NewName: filepath.Base(mv.Src),
		}

		switch {
		case alreadyRestored(mv):
			res.Status = domain.StatusSkipped
			res.FileStatus = domain.FileStatusRolledBack
			res.Note = "已是原文件名"
		default:
			if err := fsx.RenameNoOverwrite(mv.Dst, mv.Src); err != nil {
				failed++
				res.Status = domain.StatusFailed
				res.FileStatus = domain.FileStatusFailed
				res.ErrorCode = domain.ErrCodeMoveFailed
				if fsx.IsTargetConflict(err) {
					res.ErrorCode = domain.ErrCodeTargetConflict
				}
				res.ErrorMsg = err.Error()
				log.Warn("撤回失败", zap.String("src", mv.Dst), zap.Error(err))
			} else {
				res.Status = domain.StatusProcessed
				res.FileStatus = domain.FileStatusRolledBack
			}
		}
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(len(b.Moves)-i, len(b.Moves), res, 0)
		}
	}
	if obs != nil {
		obs.OnPhaseDone(PhaseUndo, map[string]any{
			"total":  len(b.Moves),
			"failed": failed,
		}, time.Since(started))
	}

	if failed == 0 {
		if err := store.MarkUndone(ctx, b.ID); err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeHistoryFailed,
				fmt.Sprintf("撤回已完成，但标记批次失败：%v", err)))
		}
	}
	return finish()
}

func alreadyRestored(mv history.Move) bool {
	if _, err := os.Lstat(mv.Dst); !os.IsNotExist(err) {
		return false
	}
	_, err := os.Lstat(mv.Src)
	return err == nil
}
