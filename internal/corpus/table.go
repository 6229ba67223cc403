package corpus

import (
	"sort"
	"strings"
)

// Table 是两级词频表：小写键 → 计数，小写键 → 首见时的原始大小写。
// 另记首见顺序，用于频次相同时的稳定排序。
type Table struct {
	counts  map[string]int
	display map[string]string
	order   []string
}

// Entry 是排序后的一行。
type Entry struct {
	Key     string
	Display string
	Count   int
}

func NewTable() *Table {
	return &Table{
		counts:  map[string]int{},
		display: map[string]string{},
	}
}

func (t *Table) Add(token string) {
	key := strings.ToLower(token)
	if _, ok := t.counts[key]; !ok {
		t.display[key] = token
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *Table) Count(token string) int { return t.counts[strings.ToLower(token)] }

func (t *Table) Len() int { return len(t.order) }

// Ranked 按频次降序返回全部条目；频次相同者保持首见顺序。
func (t *Table) Ranked() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Key: k, Display: t.display[k], Count: t.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
