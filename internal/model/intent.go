package model

import "strings"

// IntentResult 用户意图解析结果（LLM 或规则解析）。
type IntentResult struct {
	Brand           string   `json:"brand,omitempty"`
	Model           string   `json:"model,omitempty"`
	DiagramType     string   `json:"diagram_type,omitempty"`
	VehicleCategory string   `json:"vehicle_category,omitempty"`
	Keywords        []string `json:"keywords"`
	Confidence      float64  `json:"confidence"`
	OriginalQuery   string   `json:"original_query"`
}

// HasBrand 是否包含品牌信息。
func (r *IntentResult) HasBrand() bool {
	return r != nil && strings.TrimSpace(r.Brand) != ""
}

// HasModel 是否包含型号信息。
func (r *IntentResult) HasModel() bool {
	return r != nil && strings.TrimSpace(r.Model) != ""
}

// HasDiagramType 是否包含电路图类型信息。
func (r *IntentResult) HasDiagramType() bool {
	return r != nil && strings.TrimSpace(r.DiagramType) != ""
}

// SearchQuery 把意图字段拼装为搜索查询字符串；没有提取到信息时返回原始查询。
func (r *IntentResult) SearchQuery() string {
	if r == nil {
		return ""
	}
	var parts []string
	if r.HasBrand() {
		parts = append(parts, r.Brand)
	}
	if r.HasModel() {
		parts = append(parts, r.Model)
	}
	if r.HasDiagramType() {
		parts = append(parts, r.DiagramType)
	}
	if r.VehicleCategory != "" {
		parts = append(parts, r.VehicleCategory)
	}
	parts = append(parts, r.Keywords...)
	if len(parts) == 0 {
		return r.OriginalQuery
	}
	return strings.Join(parts, " ")
}
