package corpus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_MandatoryExclusionAboveEightyPercent(t *testing.T) {
	names := []string{"张伟", "王芳", "李雷", "韩梅", "赵六", "钱七", "孙八", "周九", "吴十"}
	var paths []string
	for i, n := range names {
		paths = append(paths, fmt.Sprintf("/in/HW1_%s_2023100%d.pdf", n, i))
	}
	paths = append(paths, "/in/Lab_郑一_20231010.pdf")

	a := Analyze(paths, nil)

	assert.Equal(t, 10, a.Files)
	assert.Equal(t, "HW1", a.ProposedProject)
	assert.Equal(t, []string{"hw1"}, a.MandatoryExclusions)
}

func TestAnalyze_ExactlyEightyPercentIsNotMandatory(t *testing.T) {
	var paths []string
	for i := 0; i < 8; i++ {
		paths = append(paths, fmt.Sprintf("/in/Report %d.pdf", i))
	}
	paths = append(paths, "/in/a.pdf", "/in/b.pdf")

	a := Analyze(paths, nil)
	assert.Equal(t, "Report", a.ProposedProject)
	assert.Empty(t, a.MandatoryExclusions)
}

func TestAnalyze_SuggestionsFromRanksTwoOnward(t *testing.T) {
	paths := []string{
		"会计作业 张伟 第一次.pdf",
		"会计作业 王芳 第一次.pdf",
		"会计作业 李雷 第二次 计算机科学导论.pdf",
		"会计作业 韩梅 第三次.pdf",
	}

	a := Analyze(paths, nil)

	assert.Equal(t, "会计作业", a.ProposedProject)
	// 排名：会计作业(4) 第一次(2) 张伟 王芳 李雷 第二次 计算机科学导论 韩梅 第三次
	assert.Equal(t, []string{"第一次", "张伟", "王芳", "李雷"}, a.ProposedExclusions)
	assert.Equal(t, []string{"会计作业"}, a.MandatoryExclusions)
}

func TestAnalyze_SuggestionsSkipLatinAndLongHan(t *testing.T) {
	paths := []string{
		"Project 计算机科学导论 Report 作业.pdf",
		"Project Report 作业.pdf",
		"Project 作业.pdf",
	}

	a := Analyze(paths, nil)
	assert.Equal(t, "Project", a.ProposedProject)
	assert.Equal(t, []string{"作业"}, a.ProposedExclusions)
}

func TestAnalyze_UserWordsAreIgnored(t *testing.T) {
	paths := []string{
		"HW1 会计作业 Alice.pdf",
		"hw1 会计作业 Bob.pdf",
		"HW1 会计 Carol.pdf",
	}

	a := Analyze(paths, []string{"hw1, 会计作业"})
	assert.Equal(t, "Alice", a.ProposedProject)
	assert.Empty(t, a.MandatoryExclusions)

	// 汉字词精确匹配：“会计”不会连带排除“会计作业”。
	a = Analyze(paths, []string{"会计", "HW1"})
	assert.Equal(t, "会计作业", a.ProposedProject)
}

func TestAnalyze_ShortTokensDropped(t *testing.T) {
	a := Analyze([]string{"ab 张 HW1.pdf", "ab 张 xyz.pdf"}, nil)
	assert.Equal(t, "HW1", a.ProposedProject)
	assert.Empty(t, a.MandatoryExclusions)
}

func TestAnalyze_DisplayKeepsFirstSeenCase(t *testing.T) {
	a := Analyze([]string{"report x.pdf", "REPORT y.pdf", "Report z.pdf"}, nil)
	assert.Equal(t, "report", a.ProposedProject)
	assert.Equal(t, []string{"report"}, a.MandatoryExclusions)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a := Analyze(nil, nil)
	assert.Zero(t, a.Files)
	assert.Empty(t, a.ProposedProject)
	assert.NotNil(t, a.ProposedExclusions)
	assert.NotNil(t, a.MandatoryExclusions)

	a = Analyze([]string{"1.pdf", "2 3.pdf"}, nil)
	assert.Equal(t, 2, a.Files)
	assert.Empty(t, a.ProposedProject)
}

func TestAnalyze_Deterministic(t *testing.T) {
	paths := []string{"alpha beta 张伟.pdf", "beta alpha 王芳.pdf", "gamma 张伟.pdf"}
	first := Analyze(paths, nil)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Analyze(paths, nil))
	}
	assert.Equal(t, "alpha", first.ProposedProject)
}

func TestTable_RankedTiesKeepFirstSeenOrder(t *testing.T) {
	tbl := NewTable()
	for _, tok := range []string{"b", "a", "C", "a", "c"} {
		tbl.Add(tok)
	}
	got := tbl.Ranked()
	require.Len(t, got, 3)
	assert.Equal(t, Entry{Key: "a", Display: "a", Count: 2}, got[0])
	assert.Equal(t, Entry{Key: "c", Display: "C", Count: 2}, got[1])
	assert.Equal(t, Entry{Key: "b", Display: "b", Count: 1}, got[2])
	assert.Equal(t, 2, tbl.Count("A"))
	assert.Equal(t, 3, tbl.Len())
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"hw", "作业", "report", "final"}, SplitWords("hw,作业  report", "，final,"))
	assert.Empty(t, SplitWords("", " , "))
}

func TestDetectIDLength(t *testing.T) {
	n, ok := DetectIDLength([]string{"20231001 a.pdf", "20231002 b.pdf", "2023100112 c.pdf", "123.pdf"})
	require.True(t, ok)
	assert.Equal(t, 8, n)

	_, ok = DetectIDLength([]string{"abc.pdf", "12.pdf", "1234567890123456.pdf"})
	assert.False(t, ok)

	_, ok = DetectIDLength(nil)
	assert.False(t, ok)
}

func TestDetectIDLength_OnlyProbesFirstFiles(t *testing.T) {
	var paths []string
	for i := 0; i < 50; i++ {
		paths = append(paths, fmt.Sprintf("/in/20231000%02d.pdf", i))
	}
	for i := 0; i < 100; i++ {
		paths = append(paths, fmt.Sprintf("/in/2023%04d.pdf", i))
	}

	n, ok := DetectIDLength(paths)
	require.True(t, ok)
	assert.Equal(t, 10, n)
}

func TestDetectIDLength_TieTakesFirstSeen(t *testing.T) {
	n, ok := DetectIDLength([]string{"123456 12345678.pdf", "87654321 654321.pdf"})
	require.True(t, ok)
	assert.Equal(t, 6, n)
}

func TestAnalysis_Reliable(t *testing.T) {
	// 每个 token 只出现一次：建议项目名只是某个学生的名字，不可信。
	a := Analyze([]string{"20231001 张伟.pdf", "20231002 王芳.pdf"}, nil)
	assert.Equal(t, "张伟", a.ProposedProject)
	assert.Equal(t, 1, a.ProposedProjectCount)
	assert.False(t, a.Reliable())

	a = Analyze([]string{"作业 张伟.pdf", "作业 王芳.pdf", "李雷.pdf", "韩梅.pdf"}, nil)
	assert.Equal(t, "作业", a.ProposedProject)
	assert.True(t, a.Reliable())
}
