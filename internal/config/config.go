package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/subren/internal/domain"
	"github.com/John-Robertt/subren/internal/synth"
)

const (
	// FileName 是批次根目录（或 cwd）下的配置文件名。
	FileName = "subren.yaml"
	// StateDir 是 <root> 下保存报告与历史库的目录，扫描时固定排除。
	StateDir = ".subren"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 subren.yaml。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	DefaultPattern       = synth.PresetIDNameProject
	DefaultSeparator     = "-"
	DefaultClassPosition = synth.ClassNone
	// DefaultConcurrency 是抽取并发的内置默认值（当配置未指定时）。
	DefaultConcurrency = 4
)

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Apply    bool
	ApplySet bool

	Project    string
	ProjectSet bool

	Class    string
	ClassSet bool

	IDLen    string
	IDLenSet bool

	Pattern    string
	PatternSet bool

	Separator    string
	SeparatorSet bool

	ClassPosition    string
	ClassPositionSet bool

	Template    string
	TemplateSet bool

	Exclude    []string
	ExcludeSet bool

	Roster    string
	RosterSet bool

	Verbose bool
}

// FileConfig 对应 subren.yaml 的解析结构。未知字段忽略。
type FileConfig struct {
	Path          string            `yaml:"path"`
	Apply         *bool             `yaml:"apply"`
	IDLen         string            `yaml:"id_len"`
	Project       string            `yaml:"project"`
	Class         string            `yaml:"class"`
	ClassPosition string            `yaml:"class_position"`
	Pattern       string            `yaml:"pattern"`
	Separator     *string           `yaml:"separator"`
	Template      string            `yaml:"template"`
	Exclude       []string          `yaml:"exclude"`
	AutoAnalyze   *bool             `yaml:"auto_analyze"`
	Concurrency   int               `yaml:"concurrency"`
	ExcludeDirs   []string          `yaml:"exclude_dirs"`
	Roster        string            `yaml:"roster"`
	Overrides     map[string]string `yaml:"overrides"`
	Verbose       bool              `yaml:"verbose"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path       string
	ConfigPath string

	Apply bool

	// IDLenAuto 为 true 时由批次文件名探测学号长度；探测失败回落到 IDMinLen/IDMaxLen。
	IDLenAuto bool
	IDMinLen  int
	IDMaxLen  int

	Project string
	Class   string

	// Template 是最终生效的命名模板：显式 template 优先，否则由 pattern/separator/class_position 组合。
	Template string

	Exclude     []string
	AutoAnalyze bool

	Concurrency int
	ExcludeDirs []string

	// RosterPath 为绝对路径；空表示不使用花名册。
	RosterPath string
	// Overrides：原文件名 → 人工指定的学号。
	Overrides map[string]string

	Verbose bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/subren.yaml（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/subren.yaml（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：CLI 显式指定 > 配置文件 > 内置默认。
// concurrency/exclude_dirs/overrides/auto_analyze 仅由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/subren.yaml。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, FileName)

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/subren.yaml，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

var digitsRE = regexp.MustCompile(`^\d+$`)

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	idLen := pick(cli.IDLenSet, cli.IDLen, fc.IDLen)
	rng, err := ParseIDLen(idLen)
	if err != nil {
		return invalid(err)
	}

	template, err := resolveTemplate(cli, fc)
	if err != nil {
		return invalid(err)
	}

	exclude := fc.Exclude
	if cli.ExcludeSet {
		exclude = cli.Exclude
	}

	autoAnalyze := true
	if fc.AutoAnalyze != nil {
		autoAnalyze = *fc.AutoAnalyze
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	rosterPath := ""
	if r := pick(cli.RosterSet, cli.Roster, fc.Roster); strings.TrimSpace(r) != "" {
		rosterPath = absCleanFrom(absPath, r)
	}

	// id_len=auto 时长度要等探测后才确定，这里只校验数字；运行时再按生效区间过滤。
	overrides := make(map[string]string, len(fc.Overrides))
	for name, id := range fc.Overrides {
		id = strings.TrimSpace(id)
		if !digitsRE.MatchString(id) {
			return invalid(fmt.Errorf("overrides[%q] 必须是数字学号，实际是 %q", name, id))
		}
		if !rng.Auto && !domain.ValidStudentID(id, rng.Min, rng.Max) {
			return invalid(fmt.Errorf("overrides[%q] 学号长度不在 id_len %d-%d 内：%q", name, rng.Min, rng.Max, id))
		}
		overrides[name] = id
	}

	return EffectiveConfig{
		Path:        absPath,
		ConfigPath:  cfgPath,
		Apply:       apply,
		IDLenAuto:   rng.Auto,
		IDMinLen:    rng.Min,
		IDMaxLen:    rng.Max,
		Project:     strings.TrimSpace(pick(cli.ProjectSet, cli.Project, fc.Project)),
		Class:       strings.TrimSpace(pick(cli.ClassSet, cli.Class, fc.Class)),
		Template:    template,
		Exclude:     cleanWords(exclude),
		AutoAnalyze: autoAnalyze,
		Concurrency: concurrency,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		RosterPath:  rosterPath,
		Overrides:   overrides,
		Verbose:     cli.Verbose || fc.Verbose,
	}, nil
}

// resolveTemplate：显式 template（CLI > config）优先；否则按 pattern/separator/class_position 组合。
func resolveTemplate(cli CLIArgs, fc FileConfig) (string, error) {
	if t := pick(cli.TemplateSet, cli.Template, fc.Template); strings.TrimSpace(t) != "" {
		if _, err := synth.Parse(t); err != nil {
			return "", fmt.Errorf("template 无效：%w", err)
		}
		return t, nil
	}

	pattern := orDefault(pick(cli.PatternSet, cli.Pattern, fc.Pattern), DefaultPattern)
	classPos := orDefault(pick(cli.ClassPositionSet, cli.ClassPosition, fc.ClassPosition), DefaultClassPosition)

	sep := DefaultSeparator
	if cli.SeparatorSet {
		sep = cli.Separator
	} else if fc.Separator != nil {
		sep = *fc.Separator
	}

	t, err := synth.Compose(pattern, sep, classPos)
	if err != nil {
		return "", err
	}
	return t, nil
}

func pick(set bool, cliVal, fileVal string) string {
	if set {
		return cliVal
	}
	return fileVal
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func cleanWords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
