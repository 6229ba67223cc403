package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultIDMinLen = 8
	DefaultIDMaxLen = 12
)

// ErrInvalidIDRange 表示学号长度区间非法（min < 1 或 min > max）。
var ErrInvalidIDRange = errors.New("学号长度区间非法")

// Options 是一次抽取运行的只读配置。
type Options struct {
	IDMinLen int
	IDMaxLen int

	// StandardProject/StandardClass 非空时进入“标准模式”：字段直接取配置值。
	StandardProject string
	StandardClass   string

	// ExcludedTokens 永远不能被选为姓名的一部分（大小写不敏感）。
	ExcludedTokens []string
}

func DefaultOptions() Options {
	return Options{IDMinLen: DefaultIDMinLen, IDMaxLen: DefaultIDMaxLen}
}

// Validate 在处理任何文件之前检查配置。
func (o Options) Validate() error {
	if o.IDMinLen < 1 {
		return fmt.Errorf("%w：id_min_len=%d 必须 >= 1", ErrInvalidIDRange, o.IDMinLen)
	}
	if o.IDMinLen > o.IDMaxLen {
		return fmt.Errorf("%w：id_min_len=%d 大于 id_max_len=%d", ErrInvalidIDRange, o.IDMinLen, o.IDMaxLen)
	}
	return nil
}

// normalizeTokens 小写 + 去空白 + 去重 + 排序。
// 排序保证剥离顺序稳定（同一输入总得到同一结果）。
func normalizeTokens(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
