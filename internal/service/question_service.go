package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/llm"
	"circuit-nav-go/pkg/log"
)

// unclassifiedName 解析字段缺失时的占位桶名。
const unclassifiedName = "未分类"

// otherBucketName 截断折叠时的兜底桶名。
const otherBucketName = "其他"

var axleFindRe = regexp.MustCompile(`(?i)\d+x\d+`)

// dimensionNames 问题文案里的维度名称。
var dimensionNames = map[model.Dimension]string{
	model.DimensionBrand:            "品牌",
	model.DimensionModel:            "型号",
	model.DimensionType:             "电路图类型",
	model.DimensionCategory:         "车辆类别",
	model.DimensionBrandModel:       "品牌和型号",
	model.DimensionVariant:          "系列",
	model.DimensionConfig:           "配置",
	model.DimensionDocumentCategory: "资料类别",
	model.DimensionFilenamePrefix:   "文件分组",
	model.DimensionResult:           "文件",
	model.DimensionGroup:            "分组",
}

// QuestionService 问题生成服务：把候选集划分为互斥选项。
type QuestionService struct {
	llm      llm.Client
	patterns *CategoryPatterns
}

// NewQuestionService 创建问题生成服务。client 可为 nil（问题文案走本地模板）。
func NewQuestionService(client llm.Client, patterns *CategoryPatterns) *QuestionService {
	if patterns == nil {
		patterns = DefaultCategoryPatterns()
	}
	return &QuestionService{llm: client, patterns: patterns}
}

// MakeOptionLabels 生成 n 个选项标签：A..Z，然后 AA..AZ、BA..。
func MakeOptionLabels(n int) []string {
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		if i < 26 {
			labels[i] = string(rune('A' + i))
		} else {
			labels[i] = string(rune('A'+i/26-1)) + string(rune('A'+i%26))
		}
	}
	return labels
}

// bucket 构建过程中的中间桶。
type bucket struct {
	name  string
	ids   []int
	order int // 首次出现顺序，排序平局时保持稳定
}

// GenerateQuestion 根据候选集生成选择题。
// 维度按固定优先级尝试，已问过的维度跳过；候选集只剩一种类型时
// 跳过类型维度；所有维度都不可区分时退化为文件级选项。
// 生成不出问题（候选太少）时返回 nil。
func (q *QuestionService) GenerateQuestion(
	ctx context.Context,
	results []*model.ScoredResult,
	query string,
	minOptions, maxOptions int,
	asked []model.AskedDimension,
) *model.Question {
	if len(results) < minOptions || maxOptions <= 0 {
		return nil
	}

	askedSet := make(map[model.Dimension]struct{}, len(asked))
	for _, a := range asked {
		askedSet[a.Type] = struct{}{}
	}

	dims := []model.Dimension{
		model.DimensionVariant,
		model.DimensionBrand,
		model.DimensionModel,
		model.DimensionType,
		model.DimensionCategory,
		model.DimensionBrandModel,
		model.DimensionConfig,
		model.DimensionDocumentCategory,
		model.DimensionFilenamePrefix,
	}

	codeQuery := seriesCodeRe.MatchString(query) || ecuCodeQueryRe.MatchString(query)
	singleType := distinctTypeCount(results) <= 1

	for _, dim := range dims {
		if _, ok := askedSet[dim]; ok {
			continue
		}
		if dim == model.DimensionVariant && !codeQuery {
			continue
		}
		if dim == model.DimensionType && singleType {
			continue
		}

		options := q.buildOptions(dim, results, query, minOptions, maxOptions)
		if options == nil {
			continue
		}
		return q.finishQuestion(ctx, dim, options, len(results))
	}

	// 文件级兜底
	options := q.buildFileOptions(results, maxOptions)
	if len(options) < minOptions {
		return nil
	}
	return q.finishQuestion(ctx, model.DimensionResult, options, len(results))
}

// finishQuestion 补标签与问题文案。
func (q *QuestionService) finishQuestion(ctx context.Context, dim model.Dimension, options []*model.Option, total int) *model.Question {
	labels := MakeOptionLabels(len(options))
	for i, opt := range options {
		opt.Label = labels[i]
		opt.Type = dim
	}
	return &model.Question{
		Question: q.questionText(ctx, dim, options, total),
		Options:  options,
		Type:     dim,
	}
}

// buildOptions 为一个维度构建选项；无法满足区分度要求时返回 nil。
func (q *QuestionService) buildOptions(dim model.Dimension, results []*model.ScoredResult, query string, minOptions, maxOptions int) []*model.Option {
	buckets := q.buildBuckets(dim, results, query)
	if len(buckets) < minOptions {
		return nil
	}

	// 唯一的全覆盖桶没有区分度
	if len(buckets) == 1 && len(buckets[0].ids) == len(results) {
		return nil
	}

	// 大桶靠前；同量按出现顺序
	sort.SliceStable(buckets, func(i, j int) bool {
		if len(buckets[i].ids) != len(buckets[j].ids) {
			return len(buckets[i].ids) > len(buckets[j].ids)
		}
		return buckets[i].order < buckets[j].order
	})

	// 超出上限时折叠为“其他”，保证各桶 id 并集仍等于候选全集
	if len(buckets) > maxOptions {
		head := buckets[:maxOptions-1]
		var restIDs []int
		for _, b := range buckets[maxOptions-1:] {
			restIDs = append(restIDs, b.ids...)
		}
		sort.Ints(restIDs)
		buckets = append(append([]*bucket(nil), head...), &bucket{name: otherBucketName, ids: restIDs})
	}

	options := make([]*model.Option, 0, len(buckets))
	for _, b := range buckets {
		sort.Ints(b.ids)
		options = append(options, &model.Option{
			Name:  b.name,
			Count: len(b.ids),
			Type:  dim,
			IDs:   b.ids,
		})
	}

	if dim.NameDerived() {
		options = MergeSimilarOptions(options, 6, 0.5)
	}

	if len(options) < minOptions {
		return nil
	}
	if len(options) == 1 && options[0].Count == len(results) {
		return nil
	}
	return options
}

// buildBuckets 按维度分桶，保证不重不漏。
func (q *QuestionService) buildBuckets(dim model.Dimension, results []*model.ScoredResult, query string) []*bucket {
	byName := make(map[string]*bucket)
	var order []*bucket

	add := func(name string, id int) {
		name = strings.TrimSpace(strings.ReplaceAll(name, "*", ""))
		if name == "" {
			name = unclassifiedName
		}
		b, ok := byName[name]
		if !ok {
			b = &bucket{name: name, order: len(order)}
			byName[name] = b
			order = append(order, b)
		}
		b.ids = append(b.ids, id)
	}

	for _, r := range results {
		d := r.Document
		switch dim {
		case model.DimensionBrand:
			add(d.Brand, d.ID)
		case model.DimensionModel:
			add(d.Model, d.ID)
		case model.DimensionType:
			add(d.DiagramType, d.ID)
		case model.DimensionCategory:
			add(d.VehicleCategory, d.ID)
		case model.DimensionBrandModel:
			b, m := strings.TrimSpace(d.Brand), strings.TrimSpace(d.Model)
			switch {
			case b != "" && m != "":
				add(b+" "+m, d.ID)
			case b != "":
				add(b, d.ID)
			default:
				add(m, d.ID)
			}
		case model.DimensionVariant:
			if key, ok := VariantKeyForQuery(d.FileName, query); ok {
				add(key+" 系列", d.ID)
			} else {
				add(StripExt(d.FileName), d.ID)
			}
		case model.DimensionConfig:
			add(configKey(d), d.ID)
		case model.DimensionDocumentCategory:
			add(q.patterns.ExtractDocumentCategory(d.FileName), d.ID)
		case model.DimensionFilenamePrefix:
			parts := fileNameParts(d.FileName)
			if len(parts) > 0 {
				add(parts[0], d.ID)
			} else {
				add("", d.ID)
			}
		}
	}
	return order
}

// configKey 桥型 + 用途组合键（6x4 牵引车）。
func configKey(d *model.Document) string {
	text := d.FileName + " " + strings.Join(d.HierarchyPath, " ")
	axle := strings.ToLower(axleFindRe.FindString(text))
	role := ""
	for _, w := range roleKeywords {
		if strings.Contains(text, w) {
			role = w
			break
		}
	}
	switch {
	case axle != "" && role != "":
		return axle + " " + role
	case axle != "":
		return axle
	case role != "":
		return role
	default:
		return "其他配置"
	}
}

// buildFileOptions 文件级选项：一文件一选项，超限折叠“其他”。
func (q *QuestionService) buildFileOptions(results []*model.ScoredResult, maxOptions int) []*model.Option {
	var options []*model.Option
	if len(results) <= maxOptions {
		for _, r := range results {
			options = append(options, &model.Option{
				Name:  r.Document.FileName,
				Count: 1,
				Type:  model.DimensionResult,
				IDs:   []int{r.Document.ID},
			})
		}
	} else {
		for _, r := range results[:maxOptions-1] {
			options = append(options, &model.Option{
				Name:  r.Document.FileName,
				Count: 1,
				Type:  model.DimensionResult,
				IDs:   []int{r.Document.ID},
			})
		}
		var restIDs []int
		for _, r := range results[maxOptions-1:] {
			restIDs = append(restIDs, r.Document.ID)
		}
		sort.Ints(restIDs)
		options = append(options, &model.Option{
			Name:  otherBucketName,
			Count: len(restIDs),
			Type:  model.DimensionResult,
			IDs:   restIDs,
		})
	}
	labels := MakeOptionLabels(len(options))
	for i, opt := range options {
		opt.Label = labels[i]
	}
	return options
}

// questionText 生成问题文案：LLM 可用时请它润色，失败回退本地模板。
func (q *QuestionService) questionText(ctx context.Context, dim model.Dimension, options []*model.Option, total int) string {
	fallback := fmt.Sprintf("找到了 %d 个相关结果。请选择您需要的%s：", total, dimensionNames[dim])
	if q.llm == nil {
		return fallback
	}

	var names []string
	for _, opt := range options {
		names = append(names, opt.Name)
	}
	prompt := fmt.Sprintf(
		"你是车辆电路图资料导航助手。当前找到 %d 个相关结果，需要请用户按「%s」做一次选择，候选为：%s。\n请生成一句简短友好的中文提问（不超过40字，不要列出选项本身）。",
		total, dimensionNames[dim], strings.Join(names, "、"),
	)
	text, err := q.llm.ChatCompletion(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		log.Warnf("[QuestionService] LLM 生成问题文案失败，使用本地模板: %v", err)
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// FormatQuestionMessage 把问题渲染为聊天消息文本。
func FormatQuestionMessage(q *model.Question) string {
	var b strings.Builder
	b.WriteString(q.Question)
	b.WriteString("\n\n")
	for _, opt := range q.Options {
		fmt.Fprintf(&b, "%s. %s (%d个结果)\n", opt.Label, opt.Name, opt.Count)
	}
	b.WriteString("\n请回复选项字母（如：A）或直接输入选项名称。")
	return b.String()
}

// ParseUserChoice 解析用户的选择：先按标签精确匹配，
// 再按名称做大小写不敏感的双向包含匹配。识别不了返回 nil。
func ParseUserChoice(input string, options []*model.Option) *model.Option {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	label := strings.ToUpper(strings.TrimRight(trimmed, ".。 "))
	for _, opt := range options {
		if label == opt.Label {
			return opt
		}
	}

	lower := strings.ToLower(trimmed)
	for _, opt := range options {
		name := strings.ToLower(opt.Name)
		if name == "" {
			continue
		}
		if lower == name || strings.Contains(name, lower) || strings.Contains(lower, name) {
			return opt
		}
	}
	return nil
}

func distinctTypeCount(results []*model.ScoredResult) int {
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Document.DiagramType != "" {
			seen[r.Document.DiagramType] = struct{}{}
		}
	}
	return len(seen)
}
