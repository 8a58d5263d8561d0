package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"circuit-nav-go/internal/keyword"
	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/llm"
	"circuit-nav-go/pkg/log"
)

// intentSynonyms 意图字段的近义词映射（简称 -> 标准叫法）。
var intentSynonyms = map[string]string{
	"天龙": "东风天龙",
	"解放": "一汽解放",
	"重汽": "中国重汽",
	"上汽": "上汽大通",
	"大通": "上汽大通",

	"仪表图":  "仪表电路图",
	"仪表":   "仪表电路图",
	"ECU图": "ECU电路图",
	"ECU":  "ECU电路图",
	"整车图":  "整车电路图",
}

const intentSystemPrompt = `你是一个专业的车辆电路图资料导航助手。你的任务是分析用户的自然语言查询，提取出以下信息：
1. 品牌（如：三一、徐工、东风、解放、重汽等）
2. 型号（如：天龙KL、JH6、SY60等）
3. 电路图类型（如：仪表图、ECU电路图、整车电路图等）
4. 车辆类别（如：工程机械、商用车等）
5. 其他关键词

请以JSON格式返回结果，格式如下：
{
    "brand": "品牌名称或null",
    "model": "型号名称或null",
    "diagram_type": "电路图类型或null",
    "vehicle_category": "车辆类别或null",
    "keywords": ["关键词1", "关键词2"],
    "confidence": 0.8
}

注意：
- 如果某个字段无法确定，请设置为null
- keywords字段应包含查询中的其他重要关键词
- confidence表示你对解析结果的置信度（0-1之间）
- 如果用户说"天龙"，应该理解为"东风天龙"品牌
- 如果用户说"仪表图"、"仪表"，应该理解为"仪表电路图"`

// IntentService 意图理解服务：LLM 解析，失败降级为规则匹配。
type IntentService struct {
	llm       llm.Client
	extractor *keyword.Extractor
}

// NewIntentService 创建意图理解服务。client 为 nil 时只走规则匹配。
func NewIntentService(client llm.Client, ext *keyword.Extractor) *IntentService {
	return &IntentService{llm: client, extractor: ext}
}

// ParseIntent 解析用户意图。LLM 出错或超时是可恢复的降级路径，
// 记日志后改走规则匹配，绝不中断本轮对话。
func (s *IntentService) ParseIntent(ctx context.Context, userQuery string) *model.IntentResult {
	userQuery = strings.TrimSpace(userQuery)
	if userQuery == "" {
		return &model.IntentResult{OriginalQuery: ""}
	}

	if s.llm != nil {
		result, err := s.parseWithLLM(ctx, userQuery)
		if err == nil {
			SanitizeIntent(result, userQuery)
			return result
		}
		log.Warnf("[IntentService] LLM解析失败，降级为规则匹配: %v", err)
	}

	result := s.parseWithRules(userQuery)
	SanitizeIntent(result, userQuery)
	return result
}

func (s *IntentService) parseWithLLM(ctx context.Context, userQuery string) (*model.IntentResult, error) {
	prompt := fmt.Sprintf("请分析以下用户查询，提取出品牌、型号、电路图类型、车辆类别等信息：\n\n用户查询：%s\n\n请以JSON格式返回解析结果。", userQuery)

	temp := 0.3
	maxTokens := 500
	raw, err := s.llm.ChatCompletion(ctx, []llm.Message{
		{Role: "system", Content: intentSystemPrompt},
		{Role: "user", Content: prompt},
	}, &llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		return nil, err
	}

	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Brand           *string  `json:"brand"`
		Model           *string  `json:"model"`
		DiagramType     *string  `json:"diagram_type"`
		VehicleCategory *string  `json:"vehicle_category"`
		Keywords        []string `json:"keywords"`
		Confidence      float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("解析LLM返回的JSON失败: %w", err)
	}

	result := &model.IntentResult{
		Brand:           deref(parsed.Brand),
		Model:           deref(parsed.Model),
		DiagramType:     deref(parsed.DiagramType),
		VehicleCategory: deref(parsed.VehicleCategory),
		Keywords:        parsed.Keywords,
		Confidence:      parsed.Confidence,
		OriginalQuery:   userQuery,
	}
	if result.Confidence == 0 {
		result.Confidence = 0.5
	}
	normalizeIntent(result)
	return result, nil
}

// parseWithRules 规则匹配降级方案，置信度固定为 0.3。
func (s *IntentService) parseWithRules(userQuery string) *model.IntentResult {
	result := &model.IntentResult{
		Confidence:    0.3,
		OriginalQuery: userQuery,
	}

	for _, brand := range model.CommonBrands {
		if strings.Contains(userQuery, brand) {
			result.Brand = brand
			break
		}
	}
	for _, t := range model.CommonDiagramTypes {
		if strings.Contains(userQuery, t) {
			result.DiagramType = t
			break
		}
	}
	for _, c := range model.CommonVehicleCategories {
		if strings.Contains(userQuery, c) {
			result.VehicleCategory = c
			break
		}
	}

	if s.extractor != nil {
		result.Keywords = s.extractor.Extract(userQuery)
	}
	normalizeIntent(result)
	return result
}

// normalizeIntent 应用近义词映射，并在只有型号时从型号推断品牌。
func normalizeIntent(r *model.IntentResult) {
	if v, ok := intentSynonyms[r.Brand]; ok {
		r.Brand = v
	}
	if v, ok := intentSynonyms[r.Model]; ok {
		r.Model = v
	}
	if v, ok := intentSynonyms[r.DiagramType]; ok {
		r.DiagramType = v
	}

	if r.Model != "" && r.Brand == "" {
		for _, brand := range model.CommonBrands {
			if strings.Contains(r.Model, brand) {
				r.Brand = brand
				break
			}
		}
	}
}

// SanitizeIntent 外部推断结果的消毒：品牌与类型只有在用户原话里
// 确实出现了对应字面提示时才可信，否则丢弃，避免用无法验证的
// 推断值把搜索约束得过死。
func SanitizeIntent(r *model.IntentResult, rawMessage string) {
	normRaw := keyword.Normalize(rawMessage)

	if r.Brand != "" && !brandHintInMessage(r.Brand, normRaw) {
		log.Infof("[IntentService] 丢弃原话未出现的品牌推断 %q", r.Brand)
		r.Brand = ""
	}

	if r.DiagramType != "" {
		diagramType, extraKeywords := sanitizeDiagramType(r.DiagramType)
		if diagramType != "" && !strings.Contains(normRaw, keyword.Normalize(diagramType)) {
			// 标准化后的类型（仪表图->仪表电路图）原话里未必全文出现，
			// 退一步检查其族内任一成员
			if !anyTypeHintInMessage(normRaw) {
				diagramType = ""
			}
		}
		if diagramType == "" && r.DiagramType != "" {
			log.Infof("[IntentService] 丢弃无法验证的类型推断 %q", r.DiagramType)
		}
		r.DiagramType = diagramType
		for _, kw := range extraKeywords {
			if !containsKeyword(r.Keywords, kw) {
				r.Keywords = append(r.Keywords, kw)
			}
		}
	}
}

// sanitizeDiagramType 清洗类型值：值本身不是已知类型时，找出其中
// 包含的最长已知类型词作为类型，剩余的代码片段（如 VGT）转为关键词。
// 找不到已知类型则整体作废。
func sanitizeDiagramType(value string) (string, []string) {
	normValue := keyword.Normalize(value)
	for _, t := range model.CommonDiagramTypes {
		if keyword.Normalize(t) == normValue {
			return value, nil
		}
	}

	// 按类型词长度降序找最长的内含已知类型
	types := append([]string(nil), model.CommonDiagramTypes...)
	sort.SliceStable(types, func(i, j int) bool {
		return utf8.RuneCountInString(types[i]) > utf8.RuneCountInString(types[j])
	})
	for _, t := range types {
		if idx := strings.Index(value, t); idx >= 0 {
			residue := strings.TrimSpace(value[:idx] + value[idx+len(t):])
			var extra []string
			if residue != "" && utf8.RuneCountInString(residue) >= 2 {
				extra = append(extra, residue)
			}
			return t, extra
		}
	}
	return "", nil
}

// brandHintInMessage 品牌或其任一简称是否出现在原话里。
func brandHintInMessage(brand, normRaw string) bool {
	if strings.Contains(normRaw, keyword.Normalize(brand)) {
		return true
	}
	for alias, full := range intentSynonyms {
		if full == brand && strings.Contains(normRaw, keyword.Normalize(alias)) {
			return true
		}
	}
	return false
}

// anyTypeHintInMessage 原话里是否出现了任何已知类型词。
func anyTypeHintInMessage(normRaw string) bool {
	for _, t := range model.CommonDiagramTypes {
		if strings.Contains(normRaw, keyword.Normalize(t)) {
			return true
		}
	}
	return false
}

func containsKeyword(keywords []string, kw string) bool {
	nk := keyword.Normalize(kw)
	for _, k := range keywords {
		if keyword.Normalize(k) == nk {
			return true
		}
	}
	return false
}

// extractJSONObject 从 LLM 回复里抠出第一个完整的 JSON 对象。
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("LLM回复中没有JSON对象: %q", raw)
	}
	return raw[start : end+1], nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}
