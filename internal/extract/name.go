package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// breakMarker 替代硬分隔符，让英文聚类能区分“有意分隔”与“多词姓名内部的空格”。
const breakMarker = "|"

var (
	hardSepRE  = regexp.MustCompile(`[_\-+—]+`)
	hanNameRE  = regexp.MustCompile(`[` + han + `]{2,4}`)
	alphaTokRE = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// extractName 依次尝试策略 A（汉字姓名）与策略 B（英文 token 聚类）。
func (p *Parser) extractName(w working) working {
	w.text = hardSepRE.ReplaceAllString(w.text, " "+breakMarker+" ")

	// 标准项目名先删掉，避免被误认为姓名。
	if p.stdProjectRE != nil {
		w.text = p.stdProjectRE.ReplaceAllString(w.text, " ")
	}

	name := p.hanName(w.text)
	if name == "" {
		name = p.latinName(w.text)
	}
	w.rec.Name = name

	if name != "" {
		// 删除全部出现（姓名单词可能重复出现），与学号只删一处不同。
		w.text = removeFold(w.text, name)
	}
	return w
}

// hanName 是策略 A：2–4 个汉字的首个匹配，排除词只做“剥离”而不是整体否决。
func (p *Parser) hanName(text string) string {
	matches := hanNameRE.FindAllString(text, -1)
	for _, cand := range matches {
		cleaned := p.stripExcluded(cand)
		if cleaned != "" {
			return cleaned
		}
		p.log.Debug("汉字候选被排除词完全剥离", zap.String("candidate", cand))
	}
	return ""
}

// stripExcluded 从候选中去掉所有排除词（原样/大写/首字母大写三种形态）。
func (p *Parser) stripExcluded(cand string) string {
	cleaned := cand
	for _, ex := range p.excluded {
		if !strings.Contains(strings.ToLower(cleaned), ex) {
			continue
		}
		before := cleaned
		cleaned = strings.ReplaceAll(cleaned, ex, "")
		cleaned = strings.ReplaceAll(cleaned, strings.ToUpper(ex), "")
		cleaned = strings.ReplaceAll(cleaned, capitalize(ex), "")
		p.log.Debug("从姓名候选中剥离排除词",
			zap.String("token", ex),
			zap.String("before", before),
			zap.String("after", cleaned),
		)
	}
	return strings.TrimSpace(cleaned)
}

// latinName 是策略 B：连续纯字母 token 聚成候选簇。
// 排除词与非字母 token（数字、断点标记）都会终止当前簇。
func (p *Parser) latinName(text string) string {
	var c cluster
	for _, tok := range strings.Fields(text) {
		if !alphaTokRE.MatchString(tok) || p.isExcluded(tok) {
			c.flush()
			continue
		}
		c.add(tok)
	}
	c.flush()
	return c.pick()
}

func (p *Parser) isExcluded(tok string) bool {
	_, ok := p.excludedSet[strings.ToLower(tok)]
	return ok
}

// cluster 累积连续的姓名单词；flush 把非空的当前簇收为一个候选。
type cluster struct {
	cands []string
	cur   []string
}

func (c *cluster) add(tok string) { c.cur = append(c.cur, tok) }

func (c *cluster) flush() {
	if len(c.cur) == 0 {
		return
	}
	c.cands = append(c.cands, strings.Join(c.cur, " "))
	c.cur = c.cur[:0]
}

// pick 优先第一个多词候选（"First Last"），否则取第一个单词候选。
func (c *cluster) pick() string {
	for _, s := range c.cands {
		if strings.Contains(s, " ") {
			return s
		}
	}
	if len(c.cands) > 0 {
		return c.cands[0]
	}
	return ""
}

func capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

// removeFold 把 lit 的所有大小写不敏感出现替换为空格。
func removeFold(text, lit string) string {
	if lit == "" {
		return text
	}
	return foldRE(lit).ReplaceAllString(text, " ")
}

func foldRE(lit string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(lit))
}
