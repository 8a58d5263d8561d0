package service

import (
	"regexp"
	"strings"
)

// 变体分组：第一轮分组时算出的 key 必须与用户选择回填时
// 算出的 key 完全一致，否则选中的桶无法精确还原。

var (
	roleKeywords = []string{"牵引车", "载货车", "自卸车", "环卫车", "专用车", "搅拌车"}

	extRe         = regexp.MustCompile(`\.[A-Za-z0-9]{2,5}$`)
	axleRe        = regexp.MustCompile(`(?i)^\d+x\d+`)
	configDRe     = regexp.MustCompile(`^D\d{2,3}[._]`)
	configDFullRe = regexp.MustCompile(`^D\d{2,3}$`)
	emissionRe    = regexp.MustCompile(`^国[三四五六七]$`)
)

// StripExt 去掉文件扩展名。
func StripExt(fileName string) string {
	return strings.TrimSpace(extRe.ReplaceAllString(fileName, ""))
}

// fileNameParts 去扩展名后按下划线切段，空段丢弃。
func fileNameParts(fileName string) []string {
	base := StripExt(fileName)
	var parts []string
	for _, p := range strings.Split(base, "_") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// isRoleVariantSegment 段是否为用途/桥型变体（牵引车、6x4 等）。
func isRoleVariantSegment(seg string) bool {
	for _, w := range roleKeywords {
		if strings.Contains(seg, w) {
			return true
		}
	}
	return axleRe.MatchString(seg)
}

// hasConfigSegment 第三段是否为具体配置段（D320. / D912_ 形态）。
func hasConfigSegment(parts []string) bool {
	return len(parts) >= 3 && configDRe.MatchString(parts[2])
}

// VariantKeyForQuery 按查询语境从文件名计算稳定分组 key。
// 两种策略：
//   - 系列代码查询（天龙KL电路图）：按 p0 / p0_p1（用途变体）/ p0_Dxxx 分组；
//   - ECU/代码查询（C81电路图、EDC17C81电路图）：按前两段分组，
//     第三段是排放标准（国四/国五...）时并入。
//
// 无法归组时返回 ("", false)。
func VariantKeyForQuery(fileName, query string) (string, bool) {
	if fileName == "" {
		return "", false
	}
	parts := fileNameParts(fileName)
	if len(parts) == 0 {
		return "", false
	}

	hasECUCode := ecuCodeQueryRe.MatchString(query)
	hasSeriesCode := seriesCodeRe.MatchString(query) && !hasECUCode

	if hasSeriesCode {
		p0 := parts[0]
		if len(parts) == 1 {
			return p0, true
		}
		p1 := parts[1]

		if isRoleVariantSegment(p1) {
			// 用途变体只有带具体 Dxxx 配置段时才可归组
			if hasConfigSegment(parts) {
				return p0 + "_" + p1, true
			}
			return "", false
		}

		// 型号后紧跟 Dxxx（东风新天龙KL_D320_...）
		if configDFullRe.MatchString(p1) {
			return p0 + "_" + p1, true
		}
		return p0, true
	}

	if len(parts) == 1 {
		return parts[0], true
	}
	if len(parts) == 2 {
		return parts[0] + "_" + parts[1], true
	}

	p0, p1, p2 := parts[0], parts[1], parts[2]
	if emissionRe.MatchString(p2) {
		return p0 + "_" + p1 + "_" + p2, true
	}
	// 其余情况默认取前两段（覆盖 福田_时代康瑞H1 / 江淮_瑞风M5 / 奥铃_493）
	return p0 + "_" + p1, true
}
