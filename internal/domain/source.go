package domain

// SourceFile 是扫描阶段得到的一个候选文件（只做 stat，不读内容）。
type SourceFile struct {
	AbsPath string
	RelPath string
	Size    int64
	ModUnix int64
}
