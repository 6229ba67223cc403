package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	englishWordRE = regexp.MustCompile(`[A-Z][a-z]+`)
	latinWordRE   = regexp.MustCompile(`[a-zA-Z]+`)
)

// resolveProject 赋值项目名。
//
// 标准模式下还要做一次一致性复查：若姓名其实是项目名的一部分，说明前面的姓名抽取被污染，
// 用 reextractName 在更窄的约束下重选一次（最多一次，不回到流水线开头）。
func (p *Parser) resolveProject(w working) working {
	if p.opts.StandardProject == "" {
		residual := strings.ReplaceAll(w.text, breakMarker, " ")
		w.rec.Project = strings.Join(strings.Fields(residual), " ")
		return w
	}

	w.rec.Project = p.opts.StandardProject
	if !nameContaminates(w.rec.Name, w.rec.Project) {
		return w
	}

	p.log.Warn("姓名是项目名的一部分，重新抽取姓名",
		zap.String("file", w.rec.OriginalName),
		zap.String("project", w.rec.Project),
		zap.String("name", w.rec.Name),
	)
	w.rec.Name = p.reextractName(w.rec.Stem())
	if w.rec.Name == "" {
		p.log.Warn("重新抽取未找到姓名", zap.String("file", w.rec.OriginalName))
	} else {
		p.log.Debug("重新抽取得到姓名", zap.String("file", w.rec.OriginalName), zap.String("name", w.rec.Name))
	}
	return w
}

// nameContaminates 判断 name 是否是 project 的一部分（大小写不敏感）。
// 同时比较去掉空白后的形态：驼峰拆分会把 "JohnReport" 变成 "John Report"。
func nameContaminates(name, project string) bool {
	if name == "" {
		return false
	}
	n := strings.ToLower(name)
	pj := strings.ToLower(project)
	if strings.Contains(pj, n) {
		return true
	}
	return strings.Contains(compact(pj), compact(n))
}

// reextractName 从未被改动的原文件名重新挑选英文姓名：
// 只考虑首字母大写的英文单词，与项目单词或排除词相同的单词视为分隔符。
func (p *Parser) reextractName(stem string) string {
	text := p.pre.apply(norm.NFC.String(stem))

	projectWords := make(map[string]struct{})
	for _, w := range latinWordRE.FindAllString(splitCamel(p.opts.StandardProject), -1) {
		projectWords[strings.ToLower(w)] = struct{}{}
	}

	var c cluster
	for _, word := range englishWordRE.FindAllString(text, -1) {
		lw := strings.ToLower(word)
		if _, ok := projectWords[lw]; ok || p.isExcluded(lw) {
			c.flush()
			continue
		}
		c.add(word)
	}
	c.flush()
	return c.pick()
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
