package service

import (
	"strings"

	"circuit-nav-go/internal/keyword"
	"circuit-nav-go/internal/model"
)

// 层级筛选：选项缺失 ids 时的兜底筛选路径。正常选择流程永远走
// 选项携带的精确 id 集合，不走这里。

// HierarchyFilter 层级筛选条件，空字段跳过。
type HierarchyFilter struct {
	Brand           string
	Model           string
	DiagramType     string
	VehicleCategory string
}

// FilterByHierarchy 按层级条件过滤结果，保持输入顺序。
func FilterByHierarchy(results []*model.ScoredResult, f HierarchyFilter) []*model.ScoredResult {
	out := results
	if f.Brand != "" {
		out = filterResults(out, func(d *model.Document) bool { return matchBrand(d, f.Brand) })
	}
	if f.Model != "" {
		out = filterResults(out, func(d *model.Document) bool { return matchModel(d, f.Model) })
	}
	if f.DiagramType != "" {
		out = filterResults(out, func(d *model.Document) bool {
			return matchLoose(d, d.DiagramType, f.DiagramType)
		})
	}
	if f.VehicleCategory != "" {
		out = filterResults(out, func(d *model.Document) bool {
			return matchLoose(d, d.VehicleCategory, f.VehicleCategory)
		})
	}
	return out
}

func filterResults(results []*model.ScoredResult, keep func(*model.Document) bool) []*model.ScoredResult {
	var out []*model.ScoredResult
	for _, r := range results {
		if keep(r.Document) {
			out = append(out, r)
		}
	}
	return out
}

// matchBrand 品牌匹配：解析字段双向包含，回退到全字段包含。
func matchBrand(d *model.Document, brand string) bool {
	return matchLoose(d, d.Brand, brand)
}

// matchModel 型号匹配。只接受“用户值包含于文档值”这一个方向：
// 反向包含会让解析出的泛指值（如“天龙”）错误命中
// “天龙KL_6x4牵引车”这类具体选择。
func matchModel(d *model.Document, userModel string) bool {
	wanted := keyword.Normalize(userModel)
	if wanted == "" {
		return true
	}
	// 清掉常见后缀提升命中率
	variants := []string{wanted}
	for _, suf := range []string{"系列电路图", "系列图", "系列"} {
		if strings.HasSuffix(wanted, suf) {
			variants = append(variants, strings.TrimSuffix(wanted, suf))
			break
		}
	}

	for _, v := range variants {
		if v == "" {
			continue
		}
		if d.Model != "" && strings.Contains(keyword.Normalize(d.Model), v) {
			return true
		}
		for _, field := range d.TextFields() {
			if strings.Contains(keyword.Normalize(field), v) {
				return true
			}
		}
	}
	return false
}

// matchLoose 宽松匹配：解析字段双向包含，回退到全字段双向包含。
func matchLoose(d *model.Document, parsed, wanted string) bool {
	wn := keyword.Normalize(wanted)
	if wn == "" {
		return true
	}
	if parsed != "" && eitherContains(parsed, wanted) {
		return true
	}
	for _, field := range d.TextFields() {
		if eitherContains(field, wanted) {
			return true
		}
	}
	return false
}
