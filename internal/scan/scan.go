package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/subren/internal/domain"
)

// StateDirName 与 ConfigFileName 在 root 下永久排除。
const (
	StateDirName   = ".subren"
	ConfigFileName = "subren.yaml"
)

var systemFiles = map[string]struct{}{
	".DS_Store": {},
	"Thumbs.db": {},
}

// ScanFiles 递归扫描 root 下的全部普通文件，并应用排除规则。
//
// 规则（硬约束）：
// - 跳过以 '.' 开头的文件与目录、.DS_Store、Thumbs.db
// - 永久排除：<root>/.subren/ 与 <root>/subren.yaml
// - excludeDirs：均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
// - excludeFiles：额外排除的单个文件（例如放在 root 下的花名册）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanFiles(root string, excludeDirs []string, excludeFiles ...string) ([]domain.SourceFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)
	skipFiles := map[string]struct{}{filepath.Join(root, ConfigFileName): {}}
	for _, f := range excludeFiles {
		if f = strings.TrimSpace(f); f != "" {
			skipFiles[filepath.Clean(f)] = struct{}{}
		}
	}

	files := make([]domain.SourceFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) || isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := systemFiles[d.Name()]; ok {
			return nil
		}
		if _, ok := skipFiles[path]; ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.SourceFile{
			AbsPath: path,
			RelPath: rel,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Paths 取出绝对路径（保持顺序）。
func Paths(files []domain.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.AbsPath
	}
	return out
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, filepath.Join(root, StateDirName))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
