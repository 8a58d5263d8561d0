package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-ego/gse"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/log"
)

// stopwords 分词后直接丢弃的词。
var stopwords = map[string]struct{}{
	"的": {}, "了": {}, "是": {}, "在": {}, "和": {}, "与": {}, "或": {},
	"我要": {}, "我想": {}, "帮我": {}, "查找": {}, "查询": {}, "请问": {}, "一下": {},
}

// splitCompounds 需要拆成两个可独立组合子词的复合词。
// 品牌+子品牌在后续筛选中需要各自独立生效，整词保护会让 AND 过严。
var splitCompounds = map[string][]string{
	"重汽豪沃": {"重汽", "豪沃"},
	"重汽豪瀚": {"重汽", "豪瀚"},
	"东风天龙": {"东风", "天龙"},
	"东风乘龙": {"东风", "乘龙"},
	"福田欧曼": {"福田", "欧曼"},
	"红岩杰狮": {"红岩", "杰狮"},
}

// emissionTags 排放标准标签，分词器容易拆散，需整体保护。
var emissionTags = []string{"国三", "国四", "国五", "国六"}

// Extractor 关键词提取器：复合词保护 + 通用分词 + 停用词过滤。
type Extractor struct {
	seg       gse.Segmenter
	protected []string // 保护词表，按长度降序
}

// NewExtractor 创建提取器并加载默认分词词典。
func NewExtractor() (*Extractor, error) {
	e := &Extractor{}
	if err := e.seg.LoadDict(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	add := func(tokens ...string) {
		for _, t := range tokens {
			norm := Normalize(t)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			e.protected = append(e.protected, t)
		}
	}
	for compound := range splitCompounds {
		add(compound)
	}
	add(model.CompoundBrands...)
	add(model.CommonDiagramTypes...)
	add(emissionTags...)

	// 长词优先，避免“仪表电路图”被“电路图”截断
	sort.SliceStable(e.protected, func(i, j int) bool {
		return utf8.RuneCountInString(e.protected[i]) > utf8.RuneCountInString(e.protected[j])
	})

	log.Infof("[Extractor] 分词器初始化完成，保护词 %d 个", len(e.protected))
	return e, nil
}

// positioned 带原文位置的词条，用于保持出现顺序。
type positioned struct {
	pos   int
	terms []string
}

// Extract 从查询中提取有序、去重的关键词列表。
// 提取不到任何词时回退为整句单词条。
func (e *Extractor) Extract(query string) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}

	working := trimmed
	lowered := strings.ToLower(working)
	var hits []positioned

	// 贪心匹配保护词（长词优先），命中片段从剩余文本中挖空
	for _, token := range e.protected {
		needle := strings.ToLower(token)
		from := 0
		for {
			i := strings.Index(lowered[from:], needle)
			if i < 0 {
				break
			}
			pos := from + i
			terms := []string{token}
			if sub, ok := splitCompounds[token]; ok {
				terms = sub
			}
			hits = append(hits, positioned{pos: pos, terms: terms})

			blank := strings.Repeat(" ", len(needle))
			working = working[:pos] + blank + working[pos+len(needle):]
			lowered = lowered[:pos] + blank + lowered[pos+len(needle):]
			from = pos + len(needle)
		}
	}

	// 剩余文本走通用分词。gse 会把 ASCII 词条折成小写，
	// 这里按位置回查原文，保留用户写出的大小写。
	searchFrom := 0
	for _, word := range e.seg.Cut(working, true) {
		needle := strings.ToLower(word)
		w := strings.TrimSpace(word)
		pos := strings.Index(lowered[searchFrom:], needle)
		if pos >= 0 {
			pos += searchFrom
			w = strings.TrimSpace(working[pos : pos+len(needle)])
			searchFrom = pos + len(needle)
		} else {
			pos = searchFrom
		}
		if w == "" || utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		hits = append(hits, positioned{pos: pos, terms: []string{w}})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]struct{})
	var terms []string
	appendTerm := func(t string) {
		norm := Normalize(t)
		if norm == "" {
			return
		}
		if _, ok := seen[norm]; ok {
			return
		}
		seen[norm] = struct{}{}
		terms = append(terms, t)
	}
	for _, h := range hits {
		for _, t := range h.terms {
			appendTerm(t)
		}
	}

	// 设备区域词与针脚类词必须保持为两个独立词条，
	// 且优先采用用户写出的更具体说法（针脚图优于针脚）。
	if strings.Contains(trimmed, "仪表") && strings.Contains(trimmed, "针脚") {
		appendTerm("仪表")
		if strings.Contains(trimmed, "针脚图") {
			appendTerm("针脚图")
		} else {
			appendTerm("针脚")
		}
	}

	if len(terms) == 0 {
		return []string{trimmed}
	}
	return terms
}
