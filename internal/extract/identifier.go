package extract

import (
	"regexp"

	"github.com/John-Robertt/subren/internal/domain"
)

var digitRunRE = regexp.MustCompile(`\d+`)

// extractID 在残余文本中寻找学号（锚点）。
//
// 只考虑极大数字串；长度在 [IDMinLen, IDMaxLen] 内才是候选。
// 选最长者（并列取最先出现），按位置删除被选中的这一段：学号默认唯一，
// 其它相同数字串原样保留；更长数字串里的同样子串也不会被切开。
func (p *Parser) extractID(w working) working {
	bestStart, bestEnd := -1, -1
	for _, loc := range digitRunRE.FindAllStringIndex(w.text, -1) {
		n := loc[1] - loc[0]
		if n < p.opts.IDMinLen || n > p.opts.IDMaxLen {
			continue
		}
		if n > bestEnd-bestStart {
			bestStart, bestEnd = loc[0], loc[1]
		}
	}
	if bestStart < 0 {
		w.rec.StudentID = domain.NoID
		return w
	}

	w.rec.StudentID = w.text[bestStart:bestEnd]
	w.text = w.text[:bestStart] + " " + w.text[bestEnd:]
	return w
}
