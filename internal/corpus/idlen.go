package corpus

import (
	"path/filepath"
	"regexp"
)

const (
	idProbeFiles = 50
	idProbeMin   = 4
	idProbeMax   = 15
)

var digitRunRE = regexp.MustCompile(`\d+`)

// DetectIDLength 在前 50 个文件名中统计长度 4–15 的数字串，返回最常见的长度。
// 频次相同时取先出现的长度；没有任何候选时 ok=false（调用方回落到默认区间）。
func DetectIDLength(paths []string) (n int, ok bool) {
	if len(paths) > idProbeFiles {
		paths = paths[:idProbeFiles]
	}

	counts := map[int]int{}
	var order []int
	for _, p := range paths {
		for _, m := range digitRunRE.FindAllString(filepath.Base(p), -1) {
			l := len(m)
			if l < idProbeMin || l > idProbeMax {
				continue
			}
			if counts[l] == 0 {
				order = append(order, l)
			}
			counts[l]++
		}
	}

	best := 0
	for _, l := range order {
		if counts[l] > best {
			n, best = l, counts[l]
		}
	}
	return n, best > 0
}
