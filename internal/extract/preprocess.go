package extract

import (
	"fmt"
	"regexp"
)

// han 是本包识别的“汉字”范围（CJK 统一表意文字基本区）。
const han = `\x{4e00}-\x{9fa5}`

var (
	hanThenLatinRE = regexp.MustCompile(`([` + han + `])([a-zA-Z0-9])`)
	latinThenHanRE = regexp.MustCompile(`([a-zA-Z0-9])([` + han + `])`)
	camelRE        = regexp.MustCompile(`([a-z])([A-Z])`)

	// 副本标记：" - 副本"、"Copy (2)"、"copy(3)" 等；整段删除，不留空格。
	copyMarkerRE = regexp.MustCompile(`(?i)(?: - )?(?:副本|Copy)(?:\s*\(\d+\))?`)
)

// preprocessor 持有依赖 id_min_len 的正则（构造一次，之后只读）。
type preprocessor struct {
	letterThenIDRE *regexp.Regexp
	idThenLetterRE *regexp.Regexp
}

func newPreprocessor(idMinLen int) preprocessor {
	if idMinLen < 1 {
		idMinLen = 1
	}
	return preprocessor{
		letterThenIDRE: regexp.MustCompile(fmt.Sprintf(`([a-zA-Z])(\d{%d,})`, idMinLen)),
		idThenLetterRE: regexp.MustCompile(fmt.Sprintf(`(\d{%d,})([a-zA-Z])`, idMinLen)),
	}
}

// apply 按固定顺序拆分粘连并剥离副本标记；每条规则作用于上一条的输出。
//
// 副本标记最后删除，删除后新拼接出的粘连（如 "abccopy(2)12345678" 得到 "abc12345678"）
// 本轮不再拆分，要到下一次 apply 才拆开；除此之外 apply 幂等。
func (p preprocessor) apply(s string) string {
	s = hanThenLatinRE.ReplaceAllString(s, "${1} ${2}")
	s = latinThenHanRE.ReplaceAllString(s, "${1} ${2}")
	s = camelRE.ReplaceAllString(s, "${1} ${2}")
	s = p.letterThenIDRE.ReplaceAllString(s, "${1} ${2}")
	s = p.idThenLetterRE.ReplaceAllString(s, "${1} ${2}")
	s = copyMarkerRE.ReplaceAllString(s, "")
	return s
}

// Preprocess 处理单个文件名（不含扩展名）中的粘连与副本标记。纯函数，无失败。
func Preprocess(raw string, idMinLen int) string {
	return newPreprocessor(idMinLen).apply(raw)
}

// splitCamel 只做驼峰拆分（用于把标准项目名拆成单词）。
func splitCamel(s string) string {
	return camelRE.ReplaceAllString(s, "${1} ${2}")
}
