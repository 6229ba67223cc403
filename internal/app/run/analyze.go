package run

import (
	"context"
	"fmt"

	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/corpus"
	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/extract"
	"github.com/John-Robertt/subren/internal/scan"
)

// Analyze 只扫描并做批量词频分析，不抽取、不改名。
func Analyze(ctx context.Context, eff config.EffectiveConfig) (domain.AnalysisReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnalysisReport{}, err
	}
	files, err := scan.ScanFiles(eff.Path, eff.ExcludeDirs, eff.RosterPath)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("扫描失败：%w", err)
	}

	eff.AutoAnalyze = true
	_, rep := buildOptions(eff, scan.Paths(files))
	return rep, nil
}

// buildOptions 把生效配置与批次分析结果合并为抽取参数。
//
// - id_len=auto：按批次文件名探测学号长度（min=max=探测值）；探测不到则用配置区间
// - auto_analyze：未配置项目名且建议可信时用建议项目名；强制排除集并入用户排除词
func buildOptions(eff config.EffectiveConfig, paths []string) (extract.Options, domain.AnalysisReport) {
	opts := extract.Options{
		IDMinLen:        eff.IDMinLen,
		IDMaxLen:        eff.IDMaxLen,
		StandardProject: eff.Project,
		StandardClass:   eff.Class,
		ExcludedTokens:  corpus.SplitWords(eff.Exclude...),
	}
	if opts.IDMinLen == 0 && opts.IDMaxLen == 0 {
		opts.IDMinLen, opts.IDMaxLen = extract.DefaultIDMinLen, extract.DefaultIDMaxLen
	}
	if eff.IDLenAuto {
		if n, ok := corpus.DetectIDLength(paths); ok {
			opts.IDMinLen, opts.IDMaxLen = n, n
		}
	}

	rep := domain.AnalysisReport{
		Files:               len(paths),
		ProposedExclusions:  []string{},
		MandatoryExclusions: []string{},
		IDMinLen:            opts.IDMinLen,
		IDMaxLen:            opts.IDMaxLen,
	}
	if !eff.AutoAnalyze {
		rep.StandardProject, rep.ExcludedTokens = opts.StandardProject, opts.ExcludedTokens
		return opts, rep
	}

	a := corpus.Analyze(paths, eff.Exclude)
	rep.ProposedProject = a.ProposedProject
	rep.ProposedExclusions = a.ProposedExclusions
	rep.MandatoryExclusions = a.MandatoryExclusions

	if opts.StandardProject == "" && a.Reliable() {
		opts.StandardProject = a.ProposedProject
	}
	opts.ExcludedTokens = append(opts.ExcludedTokens, a.MandatoryExclusions...)
	rep.StandardProject, rep.ExcludedTokens = opts.StandardProject, opts.ExcludedTokens
	return opts, rep
}
