package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/subren/internal/app/run"
	"github.com/John-Robertt/subren/internal/config"
	"github.com/John-Robertt/subren/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// styles 按输出目标检测终端能力：写入非终端时自动退化为纯文本。
type styles struct {
	header lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	skip   lipgloss.Style
	fail   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("241")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		skip:   r.NewStyle().Foreground(lipgloss.Color("220")),
		fail:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 抽取进度节流输出，最后一个文件完成时总会打印一行
type progressUI struct {
	w     io.Writer
	title string
	st    styles

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	ok   int
	fail int
	skip int

	progressInterval time.Duration
}

func newProgressUI(w io.Writer, title string) *progressUI {
	return &progressUI{
		w:                w,
		title:            title,
		st:               newStyles(w),
		progressInterval: time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不改动任何文件)"
	if eff.Apply {
		mode, modeHint = "apply", ""
	}
	if p.title == "undo" {
		mode, modeHint = "undo", ""
	}

	fmt.Fprintln(p.w, p.st.header.Render(fmt.Sprintf("[%s] subren %s (%s)", now.Format("15:04:05"), p.title, mode)))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	if p.title != "undo" {
		fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
		fmt.Fprintf(p.w, "  template: %s\n", eff.Template)
		fmt.Fprintf(p.w, "  project: %s\n", orDash(eff.Project))
		fmt.Fprintf(p.w, "  class: %s\n", orDash(eff.Class))
		fmt.Fprintf(p.w, "  id_len: %s\n", formatIDLen(eff))
		fmt.Fprintf(p.w, "  exclude: %s\n", formatStringListJSON(eff.Exclude))
		fmt.Fprintf(p.w, "  auto_analyze: %s\n", onOff(eff.AutoAnalyze))
		fmt.Fprintf(p.w, "  roster: %s\n", orDash(eff.RosterPath))
		fmt.Fprintf(p.w, "  overrides: %d\n", len(eff.Overrides))
		fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
		fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 %s/\n", formatStringListJSON(eff.ExcludeDirs), config.StateDir)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseScan:
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case run.PhaseAnalyze:
		fmt.Fprintf(p.w, "分析: project=%s excluded=%d mandatory=%d id_len=%s (%s)\n",
			orDash(stringField(fields, "project")),
			intField(fields, "excluded"),
			intField(fields, "mandatory"),
			formatIDRange(intField(fields, "id_min"), intField(fields, "id_max")),
			formatShortDuration(dur),
		)
	case run.PhaseExtract:
		fmt.Fprintf(p.w, "抽取: files=%d workers=%d (%s)\n",
			intField(fields, "files"), intField(fields, "workers"), formatShortDuration(dur),
		)
	case run.PhasePlan:
		fmt.Fprintf(p.w, "规划: renames=%d skipped=%d conflicts=%d (%s)\n\n",
			intField(fields, "renames"), intField(fields, "skipped"), intField(fields, "conflicts"), formatShortDuration(dur),
		)
	case run.PhaseApply:
		fmt.Fprintf(p.w, "\n执行: total=%d moved=%d ok=%d fail=%d skip=%d (%s)\n",
			intField(fields, "total"), intField(fields, "moved"), p.ok, p.fail, p.skip, formatShortDuration(dur),
		)
	case run.PhaseUndo:
		fmt.Fprintf(p.w, "\n撤回: total=%d failed=%d (%s)\n",
			intField(fields, "total"), intField(fields, "failed"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
	case domain.StatusFailed:
		p.fail++
	case domain.StatusSkipped:
		p.skip++
	}
	fmt.Fprintln(p.w, p.formatItem(idx, total, res))
	p.lastPrinted = time.Now()
}

func (p *progressUI) formatItem(idx, total int, res domain.ItemResult) string {
	prefix := fmt.Sprintf("[%d/%d]", idx, total)
	switch res.Status {
	case domain.StatusFailed:
		return fmt.Sprintf("%s %s %s %s: %s",
			prefix, p.st.fail.Render("FAIL"), res.Src, res.ErrorCode, truncate(res.ErrorMsg, 160),
		)
	case domain.StatusSkipped:
		note := ""
		if res.Note != "" {
			note = " " + p.st.dim.Render("("+res.Note+")")
		}
		return fmt.Sprintf("%s %s %s%s", prefix, p.st.skip.Render("SKIP"), res.Src, note)
	default:
		return fmt.Sprintf("%s %s %s -> %s", prefix, p.st.ok.Render("OK"), res.Src, res.NewName)
	}
}

func (p *progressUI) OnProgress(done, total int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done < total && time.Since(p.lastPrinted) < p.progressInterval {
		return
	}
	fmt.Fprintf(p.w, "进度: done=%d/%d elapsed=%s\n", done, total, formatElapsed(elapsed))
	p.lastPrinted = time.Now()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatIDLen(eff config.EffectiveConfig) string {
	r := formatIDRange(eff.IDMinLen, eff.IDMaxLen)
	if eff.IDLenAuto {
		return "auto（探测失败时 " + r + "）"
	}
	return r
}

func formatIDRange(lo, hi int) string {
	switch {
	case lo == 0 && hi == 0:
		return "-"
	case lo == hi:
		return fmt.Sprintf("%d", lo)
	default:
		return fmt.Sprintf("%d-%d", lo, hi)
	}
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按字符截断（文件名多为中文，不能按字节切）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if max <= 0 || len(rs) <= max {
		return s
	}
	if max <= 3 {
		return string(rs[:max])
	}
	return string(rs[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
