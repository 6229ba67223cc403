package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/subren/internal/extract"
)

// IDLenAuto 表示由批次文件名探测学号长度。
const IDLenAuto = "auto"

// IDRange 是解析后的 id_len。Auto 时 Min/Max 仍为默认区间，作为探测失败的回落值。
type IDRange struct {
	Min, Max int
	Auto     bool
}

// ParseIDLen 解析 "8-12"、"8"、"auto" 或空串（默认 8-12）。
func ParseIDLen(s string) (IDRange, error) {
	s = strings.TrimSpace(s)
	def := IDRange{Min: extract.DefaultIDMinLen, Max: extract.DefaultIDMaxLen}
	switch strings.ToLower(s) {
	case "":
		return def, nil
	case IDLenAuto:
		def.Auto = true
		return def, nil
	}

	loStr, hiStr, ranged := strings.Cut(s, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(loStr))
	if err != nil {
		return IDRange{}, fmt.Errorf("id_len 无效：%q", s)
	}
	hi := lo
	if ranged {
		if hi, err = strconv.Atoi(strings.TrimSpace(hiStr)); err != nil {
			return IDRange{}, fmt.Errorf("id_len 无效：%q", s)
		}
	}

	opts := extract.Options{IDMinLen: lo, IDMaxLen: hi}
	if err := opts.Validate(); err != nil {
		return IDRange{}, err
	}
	return IDRange{Min: lo, Max: hi}, nil
}
