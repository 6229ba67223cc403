package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/synth"
)

// DirState 是若干目录下现有条目名的快照：目录 → 名字集合。
type DirState map[string]map[string]struct{}

// Has 报告 dir 下是否已存在名为 name 的条目。
func (s DirState) Has(dir, name string) bool {
	_, ok := s[dir][name]
	return ok
}

// ReadDirState 读取 records 所在目录的现状（只做 ReadDir，不读文件内容）。
// 目录不存在时视为空目录且不报错。
func ReadDirState(recs []domain.FilenameRecord) (DirState, error) {
	st := DirState{}
	for _, r := range recs {
		dir := filepath.Dir(r.FilePath)
		if _, ok := st[dir]; ok {
			continue
		}
		names := map[string]struct{}{}
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			names[e.Name()] = struct{}{}
		}
		st[dir] = names
	}
	return st, nil
}

// PlanRenames 基于记录 + 目录现状生成确定性的重命名计划（不做任何写入/移动）。
//
// 规则：
// - 新文件名（不含扩展名）为空：跳过
// - 新文件名与原文件名相同：跳过，并占用该名字
// - 目标已被本批次更早的条目占用：冲突（批内重名）
// - 目标在磁盘上已存在：冲突；仅大小写不同的自身改名除外
//
// 计划顺序与 recs 一致。
func PlanRenames(recs []domain.FilenameRecord, tmpl synth.Template, st DirState) []domain.RenamePlan {
	// 未变更的文件先占位：后面的条目不能改名成它们的名字。
	used := make(map[string]string, len(recs))
	newNames := make([]string, len(recs))
	for i, r := range recs {
		newNames[i] = synth.Generate(r, tmpl)
		if newNames[i] == r.OriginalName {
			used[r.FilePath] = r.FilePath
		}
	}

	plans := make([]domain.RenamePlan, 0, len(recs))
	for i, r := range recs {
		dir := filepath.Dir(r.FilePath)
		name := newNames[i]
		dst := filepath.Join(dir, name)
		p := domain.RenamePlan{
			Record:  r,
			NewName: name,
			Move:    domain.MovePlan{SrcAbs: r.FilePath, DstAbs: dst},
		}

		switch {
		case strings.TrimSuffix(name, r.Extension) == "":
			p.Skip, p.SkipReason = true, "无法生成新文件名（抽取结果为空）"
			p.Move.DstAbs = ""
		case name == r.OriginalName:
			p.Skip, p.SkipReason = true, "文件名未变化"
		default:
			if owner, ok := used[dst]; ok {
				p.ConflictMsg = fmt.Sprintf("批内重名：目标 %q 已被 %q 占用", name, filepath.Base(owner))
				break
			}
			if st.Has(dir, name) && !strings.EqualFold(name, r.OriginalName) {
				p.ConflictMsg = fmt.Sprintf("目标已存在：%q", dst)
				break
			}
			used[dst] = r.FilePath
		}
		plans = append(plans, p)
	}
	return plans
}
