package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/subren/internal/app/run"
	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/history"
	"github.com/John-Robertt/subren/internal/infra/fsx"
)

const (
	reportFileName     = "report.json"
	undoReportFileName = "undo-report.json"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := newCLI().execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// cli 保存输出目标与退出码；测试可以替换 stdout/stderr 并关闭进度输出。
type cli struct {
	stdout io.Writer
	stderr io.Writer
	// stdoutTTY 为 true 时 stdout 输出人类可读摘要，否则只输出一个 JSON。
	stdoutTTY bool
	// progress 为 nil 时不输出进度（非交互环境）。
	progress io.Writer

	// cwd 为空时使用进程当前目录。
	cwd  string
	code int
}

func newCLI() *cli {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, stdoutTTY: isTTY(os.Stdout)}
	if w, ok := pickProgressWriter(); ok {
		c.progress = w
	}
	return c
}

func (c *cli) execute(ctx context.Context, args []string) int {
	root := c.newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(c.stderr, "参数错误：%v\n\n", err)
		fmt.Fprintln(c.stderr, `使用 "subren --help" 查看详细说明。`)
		return 2
	}
	return c.code
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subren",
		Short:         "按统一模板批量重命名学生作业文件",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.AddCommand(c.newRunCmd(), c.newAnalyzeCmd(), c.newUndoCmd())
	return root
}

type runFlags struct {
	apply    bool
	project  string
	class    string
	idLen    string
	pattern  string
	sep      string
	classPos string
	template string
	exclude  []string
	roster   string
	verbose  bool
}

func (c *cli) newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "抽取字段并按模板重命名（默认 dry-run）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.code = c.run(cmd.Context(), runArgs(cmd, args, f))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.apply, "apply", false, "执行重命名（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply: true")
	fl.StringVar(&f.project, "project", "", "标准项目名（为空时由批次词频分析建议）")
	fl.StringVar(&f.class, "class", "", "标准班级名")
	fl.StringVar(&f.idLen, "id-len", "", "学号长度：8 | 8-12 | auto")
	fl.StringVar(&f.pattern, "pattern", "", "命名模式：id-name-project | name-id-project | project-id-name | original-id")
	fl.StringVar(&f.sep, "sep", "", `分隔符："-" | "_" | " " | ""`)
	fl.StringVar(&f.classPos, "class-pos", "", "班级位置：none | start | end | after_id")
	fl.StringVar(&f.template, "template", "", "自定义模板，例如 {student_id}-{name}-{project}（优先于 --pattern）")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "忽略词（逗号分隔，可重复）")
	fl.StringVar(&f.roster, "roster", "", "HTML 花名册路径（相对 path）")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志到 stderr")
	return cmd
}

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "只做批次词频分析（不改名）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.code = c.analyze(cmd.Context(), runArgs(cmd, args, f))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.exclude, "exclude", nil, "忽略词（逗号分隔，可重复）")
	fl.StringVar(&f.idLen, "id-len", "", "学号长度：8 | 8-12 | auto")
	fl.StringVar(&f.roster, "roster", "", "HTML 花名册路径（扫描时排除）")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志到 stderr")
	return cmd
}

func (c *cli) newUndoCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "undo [path]",
		Short: "撤回最近一次 apply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.code = c.undo(cmd.Context(), runArgs(cmd, args, f))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "输出调试日志到 stderr")
	return cmd
}

// runArgs 把 flag 转为 CLIArgs；XxxSet 只在用户显式给出 flag 时为 true。
func runArgs(cmd *cobra.Command, args []string, f runFlags) config.CLIArgs {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	ca := config.CLIArgs{
		Apply:            f.apply,
		ApplySet:         changed("apply"),
		Project:          f.project,
		ProjectSet:       changed("project"),
		Class:            f.class,
		ClassSet:         changed("class"),
		IDLen:            f.idLen,
		IDLenSet:         changed("id-len"),
		Pattern:          f.pattern,
		PatternSet:       changed("pattern"),
		Separator:        f.sep,
		SeparatorSet:     changed("sep"),
		ClassPosition:    f.classPos,
		ClassPositionSet: changed("class-pos"),
		Template:         f.template,
		TemplateSet:      changed("template"),
		Exclude:          f.exclude,
		ExcludeSet:       changed("exclude"),
		Roster:           f.roster,
		RosterSet:        changed("roster"),
		Verbose:          f.verbose,
	}
	if len(args) > 0 {
		ca.Path = args[0]
	}
	return ca
}

func (c *cli) load(args config.CLIArgs) (config.EffectiveConfig, string, error) {
	cwd := c.cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.EffectiveConfig{}, "", &config.Error{Code: config.ErrCodeInvalid, Path: ".", Err: err}
		}
		cwd = wd
	}
	cwdAbs, _ := filepath.Abs(cwd)
	eff, err := config.LoadEffective(cwd, args)
	return eff, cwdAbs, err
}

func (c *cli) run(ctx context.Context, args config.CLIArgs) int {
	eff, cwdAbs, err := c.load(args)
	if err != nil {
		c.emitReport(reportForConfigError(cwdAbs, args, err))
		return 1
	}

	log := newLogger(c.stderr, eff.Verbose)
	defer func() { _ = log.Sync() }()

	var obs run.Observer
	if c.progress != nil {
		obs = newProgressUI(c.progress, "run")
	}

	rr := run.ExecuteWithObserver(ctx, eff, log, obs)

	// apply：写入 <path>/.subren/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, reportFileName, rr); err != nil {
			fmt.Fprintf(c.stderr, "写入 report.json 失败：%v\n", err)
			c.emitReport(rr)
			return 1
		}
	}

	c.emitReport(rr)
	if c.progress != nil {
		emitLocations(c.progress, eff)
	}
	return exitCode(rr)
}

func (c *cli) analyze(ctx context.Context, args config.CLIArgs) int {
	eff, cwdAbs, err := c.load(args)
	if err != nil {
		c.emitReport(reportForConfigError(cwdAbs, args, err))
		return 1
	}

	log := newLogger(c.stderr, eff.Verbose)
	defer func() { _ = log.Sync() }()

	rep, err := run.Analyze(ctx, eff)
	if err != nil {
		log.Error("分析失败", zap.String("path", eff.Path), zap.Error(err))
		c.emitReport(failedReport(eff.Path, domain.ErrCodeIOFailed, err))
		return 1
	}
	c.emitAnalysis(rep)
	return 0
}

func (c *cli) undo(ctx context.Context, args config.CLIArgs) int {
	eff, cwdAbs, err := c.load(args)
	if err != nil {
		c.emitReport(reportForConfigError(cwdAbs, args, err))
		return 1
	}

	log := newLogger(c.stderr, eff.Verbose)
	defer func() { _ = log.Sync() }()

	var obs run.Observer
	if c.progress != nil {
		obs = newProgressUI(c.progress, "undo")
	}

	rr := run.Undo(ctx, eff, log, obs)
	if rr.BatchID != "" {
		if err := writeReportFile(eff.Path, undoReportFileName, rr); err != nil {
			fmt.Fprintf(c.stderr, "写入 %s 失败：%v\n", undoReportFileName, err)
		}
	}
	c.emitReport(rr)
	return exitCode(rr)
}

func exitCode(rr domain.RunReport) int {
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

// newLogger 构建写到 w 的 console logger：verbose 时 Debug 级，否则只输出 Warn 及以上。
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func (c *cli) emitReport(rr domain.RunReport) {
	summary := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed,
	)
	if c.stdoutTTY {
		st := newStyles(c.stdout)
		if rr.Summary.Failed > 0 {
			fmt.Fprintln(c.stdout, st.fail.Render(summary))
		} else {
			fmt.Fprintln(c.stdout, st.ok.Render(summary))
		}
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.Src
			if key == "" {
				key = "<" + rr.Path + ">"
			}
			fmt.Fprintf(c.stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(c.stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(c.stderr, summary)
}

func (c *cli) emitAnalysis(rep domain.AnalysisReport) {
	if !c.stdoutTTY {
		enc := json.NewEncoder(c.stdout)
		_ = enc.Encode(rep)
		return
	}
	st := newStyles(c.stdout)
	fmt.Fprintln(c.stdout, st.header.Render("批次分析"))
	fmt.Fprintf(c.stdout, "  files: %d\n", rep.Files)
	fmt.Fprintf(c.stdout, "  id_len: %s\n", formatIDRange(rep.IDMinLen, rep.IDMaxLen))
	fmt.Fprintf(c.stdout, "  建议项目名: %s\n", orDash(rep.ProposedProject))
	fmt.Fprintf(c.stdout, "  建议忽略词: %s\n", formatStringListJSON(rep.ProposedExclusions))
	fmt.Fprintf(c.stdout, "  强制排除词: %s\n", formatStringListJSON(rep.MandatoryExclusions))
	if rep.StandardProject != "" {
		fmt.Fprintf(c.stdout, "  生效项目名: %s\n", rep.StandardProject)
	}
}

func reportForConfigError(cwdAbs string, args config.CLIArgs, err error) domain.RunReport {
	rr := failedReport(cwdAbs, config.Code(err), err)
	rr.DryRun = !(args.ApplySet && args.Apply)
	return rr
}

func failedReport(path, code string, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       path,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:     domain.StatusFailed,
			FileStatus: domain.FileStatusFailed,
			ErrorCode:  code,
			ErrorMsg:   err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root, name string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, config.StateDir), name, b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, config.StateDir, reportFileName))
		fmt.Fprintf(w, "history: %s（subren undo 可撤回）\n", filepath.Join(eff.Path, config.StateDir, history.FileName))
		return
	}
	fmt.Fprintln(w, "dry-run：未改动任何文件；确认无误后加 --apply 执行。")
}
