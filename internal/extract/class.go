package extract

import (
	"regexp"
	"strings"
)

const (
	classKeywords = `班|级|Class|Section`
	cnNumerals    = `[一二三四五六七八九十]+`
)

// 两种形态："1班" / "十二班" / "3 Class" 与 "Class 3" / "Section二"。
var classRE = regexp.MustCompile(
	`(?i)(?:\d+|` + cnNumerals + `)\s*(?:` + classKeywords + `)` +
		`|(?:` + classKeywords + `)\s*(?:\d+|` + cnNumerals + `)`,
)

// extractClass 提取班级。标准模式与模式匹配互斥。
func (p *Parser) extractClass(w working) working {
	if p.opts.StandardClass != "" {
		w.rec.ClassName = p.opts.StandardClass
		w.text = p.stdClassRE.ReplaceAllString(w.text, " ")
		return w
	}

	// 多个匹配时只取扫描顺序第一个。
	m := classRE.FindString(w.text)
	if m == "" {
		return w
	}
	w.rec.ClassName = m
	w.text = strings.ReplaceAll(w.text, m, " ")
	return w
}
