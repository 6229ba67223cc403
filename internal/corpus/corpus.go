// Package corpus 在整批文件名上做词频统计，给出项目名建议、忽略词建议与强制排除集。
//
// 分析只看文件名，不读文件内容；每次调用新建统计表，不持久化。
package corpus

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxSuggestionRank = 20 // 忽略词建议只看前 20 名
	maxSuggestions    = 4
	maxSuggestionLen  = 5 // 汉字数

	// 出现次数严格超过文件数的 80% 即进入强制排除集（count/files > 4/5）。
	mandatoryNum = 4
	mandatoryDen = 5
)

var (
	// 极大汉字串，或字母开头的拉丁词（允许后随数字，如 HW1）。
	tokenRE  = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+|[a-zA-Z][a-zA-Z0-9]*`)
	hanLead  = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}]`)
	latinLed = regexp.MustCompile(`^[a-zA-Z]`)
)

// Analysis 是一次词频分析的结果。所有字段在无数据时为空值。
type Analysis struct {
	Files int `json:"files"`

	// ProposedProject 是最高频 token（首见时的大小写）；ProposedProjectCount 是它的出现次数。
	ProposedProject      string `json:"proposed_project"`
	ProposedProjectCount int    `json:"proposed_project_count"`
	// ProposedExclusions 是排名 2–20 中长度不超过 5 的汉字 token，至多 4 个。
	ProposedExclusions []string `json:"proposed_exclusions"`
	// MandatoryExclusions 是出现次数超过文件数 80% 的 token（小写，已排序）。
	MandatoryExclusions []string `json:"mandatory_exclusions"`
}

// Reliable 报告建议项目名是否足够可信，可直接作为标准项目名：
// 至少出现 2 次，且覆盖不少于一半的文件。
func (a Analysis) Reliable() bool {
	return a.ProposedProjectCount >= 2 && a.ProposedProjectCount*2 >= a.Files
}

// Analyze 统计 paths 中各文件名（去扩展名）的 token 频次。
//
// userWords 中的每一项再按空白与逗号切分：汉字开头的词精确匹配，
// 字母开头的词不区分大小写匹配；被匹配的 token 不参与计数。
func Analyze(paths []string, userWords []string) Analysis {
	out := Analysis{
		Files:               len(paths),
		ProposedExclusions:  []string{},
		MandatoryExclusions: []string{},
	}
	if len(paths) == 0 {
		return out
	}

	ign := newIgnoreSet(userWords)
	tbl := NewTable()
	for _, p := range paths {
		base := filepath.Base(p)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		for _, tok := range tokenRE.FindAllString(stem, -1) {
			if !keepToken(tok) || ign.match(tok) {
				continue
			}
			tbl.Add(tok)
		}
	}

	ranked := tbl.Ranked()
	if len(ranked) == 0 {
		return out
	}
	out.ProposedProject = ranked[0].Display
	out.ProposedProjectCount = ranked[0].Count

	limit := min(len(ranked), maxSuggestionRank)
	for _, e := range ranked[1:limit] {
		if !hanLead.MatchString(e.Display) || utf8.RuneCountInString(e.Display) > maxSuggestionLen {
			continue
		}
		out.ProposedExclusions = append(out.ProposedExclusions, e.Display)
		if len(out.ProposedExclusions) >= maxSuggestions {
			break
		}
	}

	for _, e := range ranked {
		if e.Count*mandatoryDen > len(paths)*mandatoryNum {
			out.MandatoryExclusions = append(out.MandatoryExclusions, e.Key)
		}
	}
	sort.Strings(out.MandatoryExclusions)
	return out
}

// keepToken 过滤过短的 token：汉字少于 2 个，拉丁词不超过 2 个字符。
func keepToken(tok string) bool {
	if hanLead.MatchString(tok) {
		return utf8.RuneCountInString(tok) >= 2
	}
	return len(tok) > 2
}

type ignoreSet struct {
	han   map[string]struct{}
	latin map[string]struct{}
}

func newIgnoreSet(words []string) ignoreSet {
	s := ignoreSet{han: map[string]struct{}{}, latin: map[string]struct{}{}}
	for _, w := range SplitWords(words...) {
		switch {
		case hanLead.MatchString(w):
			s.han[w] = struct{}{}
		case latinLed.MatchString(w):
			s.latin[strings.ToLower(w)] = struct{}{}
		}
	}
	return s
}

func (s ignoreSet) match(tok string) bool {
	if hanLead.MatchString(tok) {
		_, ok := s.han[tok]
		return ok
	}
	_, ok := s.latin[strings.ToLower(tok)]
	return ok
}

// SplitWords 把若干输入按空白与逗号（含全角逗号）切分为独立的词，丢弃空项。
func SplitWords(in ...string) []string {
	var out []string
	for _, s := range in {
		out = append(out, strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == '，' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
		})...)
	}
	return out
}
