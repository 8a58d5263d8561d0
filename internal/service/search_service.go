// Package service 实现检索、放宽、问题生成与多轮对话编排。
package service

import (
	"regexp"
	"sort"
	"strings"

	"circuit-nav-go/internal/catalog"
	"circuit-nav-go/internal/keyword"
	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/log"
)

// 字段权重与加成系数，与评分规则一一对应。
const (
	weightFileName    = 1.0
	weightModel       = 0.9
	weightBrand       = 0.8
	weightHierarchy   = 0.5
	weightDiagramType = 0.6

	exactFileNameBonus  = 2.0
	exactBrandBonus     = 1.5
	exactModelBonus     = 1.5
	exactHierarchyBonus = 1.2

	fuzzyMatchWeight = 0.7
	orMatchBoost     = 0.3
)

// rootCategoryTerm 目录第一层的通用词，命中它不构成区分度。
const rootCategoryTerm = "电路图"

// excludedAcronyms 不走短代码守卫的常见缩写（它们本身就是部件词）。
var excludedAcronyms = map[string]struct{}{
	"ECU": {}, "ABS": {}, "EBS": {}, "VGT": {}, "EGR": {},
	"DPF": {}, "SCR": {}, "CAN": {}, "LNG": {}, "CNG": {},
}

var (
	shortCodeRe    = regexp.MustCompile(`^[A-Z]{2,3}$`)
	letterDigitRe  = regexp.MustCompile(`^[A-Za-z]+\d+[A-Za-z0-9]*$|^\d+[A-Za-z]+[A-Za-z0-9]*$`)
	ecuCodeQueryRe = regexp.MustCompile(`[A-Za-z]{1,6}\d{1,3}`)
	seriesCodeRe   = regexp.MustCompile(`[A-Z]{2,3}`)
)

// SearchService 搜索服务
type SearchService struct {
	catalog   *catalog.Catalog
	extractor *keyword.Extractor
	families  *keyword.Families
}

// NewSearchService 创建搜索服务。
func NewSearchService(cat *catalog.Catalog, ext *keyword.Extractor, fam *keyword.Families) *SearchService {
	return &SearchService{catalog: cat, extractor: ext, families: fam}
}

// Extractor 暴露关键词提取器（对话层需要复用）。
func (s *SearchService) Extractor() *keyword.Extractor { return s.extractor }

// Families 暴露同义词族表。
func (s *SearchService) Families() *keyword.Families { return s.families }

// IsShortCode 是否为受守卫的 2-3 位大写短代码（KL/VL 等）。
func IsShortCode(term string) bool {
	if !shortCodeRe.MatchString(term) {
		return false
	}
	_, excluded := excludedAcronyms[term]
	return !excluded
}

// isProtectedTerm 放宽搜索中不可轻易丢弃的词：品牌提示词、
// 字母数字混合的型号代码、受守卫的短代码。
func isProtectedTerm(term string) bool {
	for _, b := range model.CommonBrands {
		if term == b {
			return true
		}
	}
	for _, b := range model.CompoundBrands {
		if term == b {
			return true
		}
	}
	return letterDigitRe.MatchString(term) || IsShortCode(term)
}

// isGenericTerm 泛指图纸类型的词（放宽时优先丢弃）。
func isGenericTerm(term string) bool {
	if isProtectedTerm(term) {
		return false
	}
	return strings.Contains(term, "图")
}

// rawText 文档的原文拼接（短代码守卫专用，不做归一化）。
func rawText(d *model.Document) string {
	return strings.Join(d.TextFields(), " ")
}

// shortCodeMatches 短代码必须在原文中连续出现，且两侧不能紧贴
// 其它字母或数字。归一化会剥掉分隔符，容易把无关片段拼成假命中，
// 所以这里必须用原文检查。
func shortCodeMatches(raw, code string) bool {
	upper := strings.ToUpper(raw)
	from := 0
	for {
		i := strings.Index(upper[from:], code)
		if i < 0 {
			return false
		}
		pos := from + i
		if !asciiAlnumAt(upper, pos-1) && !asciiAlnumAt(upper, pos+len(code)) {
			return true
		}
		from = pos + 1
	}
}

func asciiAlnumAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// calculateMatchScore 计算单个关键词对单个文档的加权得分。
func calculateMatchScore(d *model.Document, term string, exact bool) float64 {
	score := 0.0
	normTerm := keyword.Normalize(term)
	matchWeight := fuzzyMatchWeight
	if exact {
		matchWeight = 1.0
	}

	normName := keyword.Normalize(d.FileName)
	if strings.Contains(normName, normTerm) {
		if normTerm == normName {
			score += weightFileName * matchWeight * exactFileNameBonus
		} else {
			score += weightFileName * matchWeight
		}
	}

	if d.Brand != "" {
		normBrand := keyword.Normalize(d.Brand)
		if strings.Contains(normBrand, normTerm) {
			if normTerm == normBrand {
				score += weightBrand * matchWeight * exactBrandBonus
			} else {
				score += weightBrand * matchWeight
			}
		}
	}

	if d.Model != "" {
		normModel := keyword.Normalize(d.Model)
		if strings.Contains(normModel, normTerm) {
			if normTerm == normModel {
				score += weightModel * matchWeight * exactModelBonus
			} else {
				score += weightModel * matchWeight
			}
		}
	}

	for _, level := range d.HierarchyPath {
		normLevel := keyword.Normalize(level)
		if strings.Contains(normLevel, normTerm) {
			if normTerm == normLevel {
				score += weightHierarchy * matchWeight * exactHierarchyBonus
			} else {
				score += weightHierarchy * matchWeight
			}
			break
		}
	}

	if d.DiagramType != "" && strings.Contains(keyword.Normalize(d.DiagramType), normTerm) {
		score += weightDiagramType * matchWeight
	}

	return score
}

// matchTerm 检查文档是否匹配单个关键词，返回 (是否匹配, 得分)。
func (s *SearchService) matchTerm(d *model.Document, term string) (bool, float64) {
	normTerm := keyword.Normalize(term)
	if normTerm == "" {
		return false, 0
	}

	// 短代码守卫
	if IsShortCode(term) && !shortCodeMatches(rawText(d), term) {
		return false, 0
	}

	// 根类别守卫：目录通用词只有出现在文件名里才算命中
	if normTerm == rootCategoryTerm {
		normName := keyword.Normalize(d.FileName)
		if !strings.Contains(normName, normTerm) {
			return false, 0
		}
		if normTerm == normName {
			return true, weightFileName * 1.0 * exactFileNameBonus
		}
		return true, weightFileName * fuzzyMatchWeight
	}

	exact := false
	if normTerm == keyword.Normalize(d.FileName) {
		exact = true
	} else {
		for _, level := range d.HierarchyPath {
			if normTerm == keyword.Normalize(level) {
				exact = true
				break
			}
		}
	}
	if exact {
		return true, calculateMatchScore(d, term, true)
	}

	for _, field := range d.TextFields() {
		if strings.Contains(keyword.Normalize(field), normTerm) {
			return true, calculateMatchScore(d, term, false)
		}
	}
	return false, 0
}

// matchGroup 词组匹配：任一同义变体命中即算命中，取变体最高分。
func (s *SearchService) matchGroup(d *model.Document, g *keyword.TermGroup) (bool, float64) {
	matched := false
	best := 0.0
	for _, v := range g.Variants {
		ok, score := s.matchTerm(d, v)
		if ok {
			matched = true
			if score > best {
				best = score
			}
		}
	}
	return matched, best
}

// Search 搜索电路图。logic 为 AND / OR；maxResults <= 0 表示不截断。
// 结果按评分降序，同分保持目录顺序。
func (s *SearchService) Search(query, logic string, maxResults int, intent *model.IntentResult) []*model.ScoredResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if intent != nil {
		if sq := strings.TrimSpace(intent.SearchQuery()); sq != "" {
			query = sq
		}
	}

	terms := s.extractor.Extract(query)
	if len(terms) == 0 {
		return nil
	}
	groups := s.families.Group(terms)

	log.Infof("[SearchService] 查询 %q 提取关键词 %v (logic=%s)", query, terms, logic)

	results := s.searchGroups(groups, logic)
	if intent != nil {
		adjustScoresByIntent(results, intent)
	}
	results = s.postFilterSeriesVariants(query, terms, results)

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if maxResults > 0 && maxResults < len(results) {
		results = results[:maxResults]
	}
	return results
}

// SearchTerms 用已确定的关键词列表执行 AND 搜索（放宽流程复用）。
func (s *SearchService) SearchTerms(terms []string, intent *model.IntentResult) []*model.ScoredResult {
	if len(terms) == 0 {
		return nil
	}
	groups := s.families.Group(terms)
	results := s.searchGroups(groups, "AND")
	if intent != nil {
		adjustScoresByIntent(results, intent)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// searchGroups 逐文档评估全部词组。
func (s *SearchService) searchGroups(groups []*keyword.TermGroup, logic string) []*model.ScoredResult {
	var results []*model.ScoredResult
	requireAll := strings.ToUpper(logic) != "OR"

	for _, d := range s.catalog.All() {
		matchedCount := 0
		total := 0.0
		for _, g := range groups {
			if ok, score := s.matchGroup(d, g); ok {
				matchedCount++
				total += score
			}
		}
		if requireAll {
			if matchedCount == len(groups) {
				results = append(results, &model.ScoredResult{Document: d, Score: total})
			}
		} else if matchedCount > 0 {
			// OR：命中词组越多排名越靠前
			total += float64(matchedCount) * orMatchBoost
			results = append(results, &model.ScoredResult{Document: d, Score: total})
		}
	}
	return results
}

// adjustScoresByIntent 按意图解析结果加分（品牌 +0.5 / 型号 +0.6 / 类型 +0.4）。
func adjustScoresByIntent(results []*model.ScoredResult, intent *model.IntentResult) {
	for _, r := range results {
		d := r.Document
		bonus := 0.0
		if intent.HasBrand() && d.Brand != "" && eitherContains(intent.Brand, d.Brand) {
			bonus += 0.5
		}
		if intent.HasModel() && d.Model != "" && eitherContains(intent.Model, d.Model) {
			bonus += 0.6
		}
		if intent.HasDiagramType() && d.DiagramType != "" && eitherContains(intent.DiagramType, d.DiagramType) {
			bonus += 0.4
		}
		r.Score += bonus
	}
}

func eitherContains(a, b string) bool {
	na, nb := keyword.Normalize(a), keyword.Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// hasSeriesCodeQuery 查询是否为“短系列代码 + 图纸词”形态。
func hasSeriesCodeQuery(query string, terms []string) bool {
	if ecuCodeQueryRe.MatchString(query) {
		return false
	}
	if !seriesCodeRe.MatchString(query) {
		return false
	}
	for _, t := range terms {
		if isGenericTerm(t) {
			return true
		}
	}
	return false
}

// postFilterSeriesVariants 系列代码查询的后置过滤：
// 文件名第二段是用途/桥型变体、却没有具体 Dxxx 配置段的文档被剔除，
// 避免把含混的变体混进明确指名的系列结果里。
func (s *SearchService) postFilterSeriesVariants(query string, terms []string, results []*model.ScoredResult) []*model.ScoredResult {
	if !hasSeriesCodeQuery(query, terms) {
		return results
	}
	kept := results[:0]
	removed := 0
	for _, r := range results {
		parts := fileNameParts(r.Document.FileName)
		if len(parts) >= 2 && isRoleVariantSegment(parts[1]) && !hasConfigSegment(parts) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed > 0 {
		log.Infof("[SearchService] 系列代码后置过滤剔除 %d 条无配置段的变体文档", removed)
	}
	return kept
}

// StrictStats 严格文件名门控的统计结果。
type StrictStats struct {
	TermCounts map[string]int
	AndCount   int
	AndIDs     map[int]struct{}
}

// StrictFilenameStats 只在文件名内做 AND 检查，用于决定是否进入
// 放宽确认流程，而不是默默接受仅靠层级命中的结果。
func (s *SearchService) StrictFilenameStats(terms []string) *StrictStats {
	stats := &StrictStats{TermCounts: make(map[string]int, len(terms))}
	var inter map[int]struct{}

	for _, term := range terms {
		ids := make(map[int]struct{})
		for _, d := range s.catalog.All() {
			if s.filenameMatches(d, term) {
				ids[d.ID] = struct{}{}
			}
		}
		stats.TermCounts[term] = len(ids)
		if inter == nil {
			inter = ids
		} else {
			inter = intersect(inter, ids)
		}
	}
	if inter == nil {
		inter = map[int]struct{}{}
	}
	stats.AndIDs = inter
	stats.AndCount = len(inter)
	return stats
}

// filenameMatches 词组任一变体是否命中文件名。
func (s *SearchService) filenameMatches(d *model.Document, term string) bool {
	for _, v := range s.families.Expand(term) {
		if IsShortCode(v) {
			if shortCodeMatches(d.FileName, v) {
				return true
			}
			continue
		}
		if strings.Contains(keyword.Normalize(d.FileName), keyword.Normalize(v)) {
			return true
		}
	}
	return false
}

// hitSet 词组在全目录上的命中 id 集合（放宽流程使用全字段匹配）。
func (s *SearchService) hitSet(term string) map[int]struct{} {
	ids := make(map[int]struct{})
	g := &keyword.TermGroup{Term: term, Variants: s.families.Expand(term)}
	for _, d := range s.catalog.All() {
		if ok, _ := s.matchGroup(d, g); ok {
			ids[d.ID] = struct{}{}
		}
	}
	return ids
}

// Deduplicate 基于文档 ID 去重，保留评分更高的一条。
func (s *SearchService) Deduplicate(results []*model.ScoredResult) []*model.ScoredResult {
	seen := make(map[int]int, len(results))
	var out []*model.ScoredResult
	for _, r := range results {
		if i, ok := seen[r.Document.ID]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		seen[r.Document.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func intersect(a, b map[int]struct{}) map[int]struct{} {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(map[int]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
