package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/subren/internal/extract"
	"github.com/John-Robertt/subren/internal/synth"
)

func TestLoadEffective_ConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_ConfigMissingPath(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("project: 会计作业\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingPath, err, Code(err))
	}
}

func TestLoadEffective_ApplyCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: homework\napply: true\n"))

	eff, err := LoadEffective(cwd, CLIArgs{
		Apply:    false,
		ApplySet: true, // --apply=false
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Apply != false {
		t.Fatalf("期望 apply=false，实际=%v", eff.Apply)
	}

	wantPath := filepath.Join(cwd, "homework")
	if eff.Path != wantPath {
		t.Fatalf("期望 path=%q，实际=%q", wantPath, eff.Path)
	}
}

func TestLoadEffective_ProjectMergeOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: p\nproject: 会计作业\n"))

	// CLI 未指定 project，则应使用配置文件中的值。
	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Project != "会计作业" {
		t.Fatalf("期望 project=会计作业，实际=%q", eff.Project)
	}

	// CLI 显式指定（即使为空），则覆盖配置文件。
	eff2, err := LoadEffective(cwd, CLIArgs{
		Project:    "",
		ProjectSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Project != "" {
		t.Fatalf("期望 project 为空，实际=%q", eff2.Project)
	}
}

func TestLoadEffective_CLIPath_ConfigOptional(t *testing.T) {
	cwd := t.TempDir()
	root := filepath.Join(cwd, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	eff, err := LoadEffective(cwd, CLIArgs{
		Path: root,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != root {
		t.Fatalf("期望 path=%q，实际=%q", root, eff.Path)
	}
	if eff.Template != "{student_id}-{name}-{project}" {
		t.Fatalf("期望默认模板，实际=%q", eff.Template)
	}
	if eff.IDMinLen != extract.DefaultIDMinLen || eff.IDMaxLen != extract.DefaultIDMaxLen || eff.IDLenAuto {
		t.Fatalf("期望默认 id 区间，实际=%d-%d auto=%v", eff.IDMinLen, eff.IDMaxLen, eff.IDLenAuto)
	}
	if !eff.AutoAnalyze {
		t.Fatalf("期望 auto_analyze 默认开启")
	}
	if eff.Concurrency != DefaultConcurrency {
		t.Fatalf("期望 concurrency=%d，实际=%d", DefaultConcurrency, eff.Concurrency)
	}
}

func TestLoadEffective_CLIPath_InvalidConfig(t *testing.T) {
	cwd := t.TempDir()
	root := filepath.Join(cwd, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(root, FileName), []byte("path: [\n"))

	_, err := LoadEffective(cwd, CLIArgs{Path: root})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_TemplateWinsOverPattern(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(
		"path: p\npattern: name-id-project\nseparator: \"_\"\ntemplate: \"{project} {name}\"\n"))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Template != "{project} {name}" {
		t.Fatalf("期望显式模板，实际=%q", eff.Template)
	}

	// CLI 显式清空 template 后回落到 pattern 组合。
	eff, err = LoadEffective(cwd, CLIArgs{TemplateSet: true, ClassPosition: synth.ClassAfterID, ClassPositionSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Template != "{name}_{student_id}_{class_name}_{project}" {
		t.Fatalf("期望组合模板，实际=%q", eff.Template)
	}
}

func TestLoadEffective_EmptySeparatorFromFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: p\nseparator: \"\"\n"))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Template != "{student_id}{name}{project}" {
		t.Fatalf("期望无分隔模板，实际=%q", eff.Template)
	}
}

func TestLoadEffective_InvalidFields(t *testing.T) {
	cases := map[string]string{
		"unknown placeholder": "path: p\ntemplate: \"{id}-{name}\"\n",
		"unknown pattern":     "path: p\npattern: id-only\n",
		"bad separator":       "path: p\nseparator: \"/\"\n",
		"bad class position":  "path: p\nclass_position: middle\n",
		"bad id_len":          "path: p\nid_len: eight\n",
		"inverted id_len":     "path: p\nid_len: 12-8\n",
		"non-digit override":  "path: p\noverrides:\n  a.pdf: abc\n",
		"short override":      "path: p\nid_len: 8-12\noverrides:\n  a.pdf: \"123\"\n",
		"long override":       "path: p\nid_len: 8\noverrides:\n  a.pdf: \"2023100112\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(body))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_InvertedIDLenWrapsSentinel(t *testing.T) {
	cwd := t.TempDir()
	_, err := LoadEffective(cwd, CLIArgs{Path: cwd, IDLen: "9-8", IDLenSet: true})
	if !errors.Is(err, extract.ErrInvalidIDRange) {
		t.Fatalf("期望 ErrInvalidIDRange，实际=%v", err)
	}
}

func TestLoadEffective_FileOnlyFields(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`path: batch
id_len: auto
exclude: [" hw ", "作业", ""]
auto_analyze: false
concurrency: 100
exclude_dirs: ["old"]
roster: ../roster.html
overrides:
  "张伟.pdf": " 20231001 "
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !eff.IDLenAuto {
		t.Fatalf("期望 id_len=auto")
	}
	if len(eff.Exclude) != 2 || eff.Exclude[0] != "hw" || eff.Exclude[1] != "作业" {
		t.Fatalf("exclude 规范化不符合预期：%#v", eff.Exclude)
	}
	if eff.AutoAnalyze {
		t.Fatalf("期望 auto_analyze=false")
	}
	if eff.Concurrency != 32 {
		t.Fatalf("期望 concurrency 截断为 32，实际=%d", eff.Concurrency)
	}
	if want := filepath.Join(cwd, "roster.html"); eff.RosterPath != want {
		t.Fatalf("期望 roster=%q，实际=%q", want, eff.RosterPath)
	}
	if eff.Overrides["张伟.pdf"] != "20231001" {
		t.Fatalf("overrides 不符合预期：%#v", eff.Overrides)
	}
	if len(eff.ExcludeDirs) != 1 || eff.ExcludeDirs[0] != "old" {
		t.Fatalf("exclude_dirs 不符合预期：%#v", eff.ExcludeDirs)
	}
}

func TestLoadEffective_OverrideRangeFollowsCLIIDLen(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: batch\nid_len: 8-12\noverrides:\n  a.pdf: \"2023100112\"\n"))

	// CLI 收紧 id_len 后，原本合法的 10 位修正不再合法。
	_, err := LoadEffective(cwd, CLIArgs{IDLen: "8", IDLenSet: true})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}

	// auto 模式只校验数字，长度留到探测后再判断。
	eff, err := LoadEffective(cwd, CLIArgs{IDLen: "auto", IDLenSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Overrides["a.pdf"] != "2023100112" {
		t.Fatalf("overrides 不符合预期：%#v", eff.Overrides)
	}
}

func TestLoadEffective_CLIExcludeReplacesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("path: p\nexclude: [hw]\n"))

	eff, err := LoadEffective(cwd, CLIArgs{Exclude: []string{"report"}, ExcludeSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(eff.Exclude) != 1 || eff.Exclude[0] != "report" {
		t.Fatalf("期望 exclude=[report]，实际=%#v", eff.Exclude)
	}
}

func TestParseIDLen(t *testing.T) {
	cases := []struct {
		in   string
		want IDRange
	}{
		{in: "", want: IDRange{Min: 8, Max: 12}},
		{in: "auto", want: IDRange{Min: 8, Max: 12, Auto: true}},
		{in: "AUTO", want: IDRange{Min: 8, Max: 12, Auto: true}},
		{in: "10", want: IDRange{Min: 10, Max: 10}},
		{in: " 6 - 9 ", want: IDRange{Min: 6, Max: 9}},
	}
	for _, tc := range cases {
		got, err := ParseIDLen(tc.in)
		if err != nil {
			t.Fatalf("ParseIDLen(%q) 不期望错误：%v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseIDLen(%q)=%+v，期望 %+v", tc.in, got, tc.want)
		}
	}

	for _, in := range []string{"0", "x-9", "8-", "-3"} {
		if _, err := ParseIDLen(in); err == nil {
			t.Fatalf("ParseIDLen(%q) 期望错误", in)
		}
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
