// Package extract 从命名混乱的提交文件名中推断学号、班级、姓名与项目。
//
// 流水线固定为：预处理 → 学号 → 班级 → 姓名 → 项目。
// 每一步从残余文本中删除自己的匹配，再把残余交给下一步；
// 各步骤以值传递 working，不做原地修改，便于单独测试。
package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/subren/internal/domain"
)

// Parser 在构造后只读，可被多个 goroutine 共享。
type Parser struct {
	opts Options
	pre  preprocessor

	excluded    []string
	excludedSet map[string]struct{}

	stdClassRE   *regexp.Regexp
	stdProjectRE *regexp.Regexp

	log *zap.Logger
}

// working 是流水线各步骤之间传递的值：残余文本 + 已填充的字段。
type working struct {
	text string
	rec  domain.FilenameRecord
}

// NewParser 校验配置并预编译正则。log 为 nil 时不输出诊断日志。
func NewParser(opts Options, log *zap.Logger) (*Parser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts.StandardProject = strings.TrimSpace(opts.StandardProject)
	opts.StandardClass = strings.TrimSpace(opts.StandardClass)
	opts.ExcludedTokens = normalizeTokens(opts.ExcludedTokens)

	p := &Parser{
		opts:        opts,
		pre:         newPreprocessor(opts.IDMinLen),
		excluded:    opts.ExcludedTokens,
		excludedSet: make(map[string]struct{}, len(opts.ExcludedTokens)),
		log:         log,
	}
	for _, t := range p.excluded {
		p.excludedSet[t] = struct{}{}
	}
	if opts.StandardClass != "" {
		p.stdClassRE = foldRE(opts.StandardClass)
	}
	if opts.StandardProject != "" {
		p.stdProjectRE = foldRE(opts.StandardProject)
	}
	return p, nil
}

// Options 返回规范化后的配置副本。
func (p *Parser) Options() Options {
	o := p.opts
	o.ExcludedTokens = append([]string(nil), p.excluded...)
	return o
}

// Extract 从路径推断元数据。从不失败：找不到的字段留空（学号为 NoID）。
func (p *Parser) Extract(path string) domain.FilenameRecord {
	rec := domain.NewRecord(path)
	w := working{
		text: p.pre.apply(norm.NFC.String(rec.Stem())),
		rec:  rec,
	}

	w = p.extractID(w)
	w = p.extractClass(w)
	w = p.extractName(w)
	w = p.resolveProject(w)
	return w.rec
}

// Preprocess 用本 Parser 的 id_min_len 预处理文件名（不含扩展名）。
func (p *Parser) Preprocess(raw string) string {
	return p.pre.apply(raw)
}
