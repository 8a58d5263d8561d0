package service

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"circuit-nav-go/pkg/log"
)

// CategoryPatterns 文档类别提取规则配置。规则顺序即应用顺序，
// 全部规则落空时走通用截断兜底。
type CategoryPatterns struct {
	DiagnosticSuffixes  []string `json:"diagnostic_suffixes"`
	ProductIntroWords   []string `json:"product_intro_keywords"`
	RecommendedPrefixes []string `json:"recommended_prefixes"`
	ComponentKeywords   []string `json:"component_keywords"`
	ComponentWindow     int      `json:"component_window"`
	BrandList           []string `json:"brands"`

	FallbackMaxLength  int      `json:"fallback_max_length"`
	FallbackSeparators []string `json:"fallback_separators"`
	MinLength          int      `json:"min_length"`
	MaxLength          int      `json:"max_length"`
}

// DefaultCategoryPatterns 内置默认配置。
func DefaultCategoryPatterns() *CategoryPatterns {
	return &CategoryPatterns{
		DiagnosticSuffixes:  []string{"_诊断指导"},
		ProductIntroWords:   []string{"产品介绍"},
		RecommendedPrefixes: []string{"【推荐】"},
		ComponentKeywords:   []string{"传感器", "执行器", "增压器"},
		ComponentWindow:     10,
		BrandList:           []string{"解放动力", "龙擎动力", "东风", "重汽", "柳汽", "乘龙"},
		FallbackMaxLength:   30,
		FallbackSeparators:  []string{"【", "(", "_", "-"},
		MinLength:           2,
		MaxLength:           50,
	}
}

// LoadCategoryPatterns 加载 JSON 配置；路径为空或加载失败时用默认配置。
func LoadCategoryPatterns(path string) *CategoryPatterns {
	p := DefaultCategoryPatterns()
	if path == "" {
		return p
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("[CategoryPatterns] 配置文件读取失败 %s，使用默认配置: %v", path, err)
		return p
	}
	if err := json.Unmarshal(raw, p); err != nil {
		log.Warnf("[CategoryPatterns] 配置文件解析失败 %s，使用默认配置: %v", path, err)
		return DefaultCategoryPatterns()
	}
	if p.ComponentWindow <= 0 {
		p.ComponentWindow = 10
	}
	if p.FallbackMaxLength <= 0 {
		p.FallbackMaxLength = 30
	}
	if p.MaxLength <= 0 {
		p.MaxLength = 50
	}
	return p
}

var (
	bracketNumRe  = regexp.MustCompile(`【\d+】`)
	trailingNumRe = regexp.MustCompile(`[-_]\d+$`)
	brandSeriesRe = regexp.MustCompile(`^([\p{Han}]{2,6}(?:动力)?)[_\-]?([A-Za-z0-9]{1,10})`)
)

// validateStripChars 校验时仅从两端剥离的字符。
const validateStripChars = "【】()（）-_ "

// ExtractDocumentCategory 从文件名提取展示用的文档类别名。
// 规则按固定顺序应用：诊断指导后缀、产品介绍关键词、【推荐】前缀、
// 组件关键词窗口、品牌+系列、通用截断兜底；结果做长度校验。
func (p *CategoryPatterns) ExtractDocumentCategory(fileName string) string {
	base := StripExt(fileName)
	if base == "" {
		return ""
	}

	// 1. 诊断指导类：去掉后缀取主体
	for _, suf := range p.DiagnosticSuffixes {
		if strings.HasSuffix(base, suf) {
			if out := p.validate(strings.TrimSuffix(base, suf)); out != "" {
				return out
			}
		}
	}

	// 2. 产品介绍类：去掉编号噪音后取关键词前的部分
	for _, kw := range p.ProductIntroWords {
		if i := strings.Index(base, kw); i >= 0 {
			head := bracketNumRe.ReplaceAllString(base[:i+len(kw)], "")
			head = strings.Trim(head, "-_ ")
			if out := p.validate(head); out != "" {
				return out
			}
		}
	}

	// 3. 推荐类：取前缀标签之后、下一个标签或句点之前的主体
	for _, pre := range p.RecommendedPrefixes {
		if strings.HasPrefix(base, pre) {
			rest := base[len(pre):]
			cut := len(rest)
			if i := strings.Index(rest, "【"); i >= 0 && i < cut {
				cut = i
			}
			if i := strings.Index(rest, "."); i >= 0 && i < cut {
				cut = i
			}
			if out := p.validate(strings.TrimSpace(rest[:cut])); out != "" {
				return out
			}
		}
	}

	// 4. 组件关键词：截到关键词之后的窗口内
	for _, kw := range p.ComponentKeywords {
		if i := strings.Index(base, kw); i >= 0 {
			tail := []rune(base[i+len(kw):])
			if len(tail) > p.ComponentWindow {
				tail = tail[:p.ComponentWindow]
			}
			if out := p.validate(base[:i+len(kw)] + string(tail)); out != "" {
				return out
			}
		}
	}

	// 5. 品牌+系列代码
	for _, brand := range p.BrandList {
		if strings.HasPrefix(base, brand) {
			if m := brandSeriesRe.FindStringSubmatch(base); m != nil {
				if out := p.validate(m[1] + m[2]); out != "" {
					return out
				}
			}
			if out := p.validate(brand); out != "" {
				return out
			}
		}
	}

	// 6. 通用截断兜底：第一个分隔符或最大长度处截断
	cut := len(base)
	for _, sep := range p.FallbackSeparators {
		if i := strings.Index(base, sep); i > 0 && i < cut {
			cut = i
		}
	}
	out := base[:cut]
	if runes := []rune(out); len(runes) > p.FallbackMaxLength {
		out = string(runes[:p.FallbackMaxLength])
	}
	out = trailingNumRe.ReplaceAllString(out, "")
	return p.validate(out)
}

// validate 清洗并校验长度，不合格返回空串。
func (p *CategoryPatterns) validate(s string) string {
	s = strings.Trim(s, validateStripChars)
	s = whitespaceRe.ReplaceAllString(s, "")
	n := utf8.RuneCountInString(s)
	if n < p.MinLength || n > p.MaxLength {
		return ""
	}
	return s
}
