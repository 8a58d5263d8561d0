package keyword

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"unicode/utf8"
)

// Family 一个同义词族：key 为族名，Members 为可互换的成员词，
// Root 为该族的“更宽泛的根词”（放宽搜索时的替换目标，可为空）。
type Family struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
	Root    string   `json:"root,omitempty"`
}

// Families 同义词族表。构建后只读。
type Families struct {
	families []*Family
	// byMember 归一化成员词 -> 所属族。
	// 一个词落在多个族时，族 key 归一化后更长（更具体）的族生效，
	// 而不是依赖注册顺序。
	byMember map[string]*Family
}

// builtinFamilies 内置同义词族。外部 JSON 配置在其上合并覆盖。
func builtinFamilies() []*Family {
	return []*Family{
		{
			Key:     "仪表图",
			Members: []string{"仪表图", "仪表电路图", "仪表线路图", "仪表接线图", "仪表模块"},
			Root:    "仪表",
		},
		{
			Key:     "ecu图",
			Members: []string{"ECU图", "ECU电路图", "ECU线路图", "ECU接线图"},
			Root:    "ECU",
		},
		{
			Key:     "整车图",
			Members: []string{"整车图", "整车电路图", "整车线路图", "全车电路图", "全车线路图"},
			Root:    "整车",
		},
		{
			Key:     "保险丝图",
			Members: []string{"保险丝图", "保险丝盒图", "保险丝电路图", "保险丝盒"},
			Root:    "保险丝",
		},
		{
			Key:     "针脚图",
			Members: []string{"针脚图", "引脚图", "端子图"},
			Root:    "针脚",
		},
		{
			Key:     "电路图",
			Members: []string{"电路图", "线路图"},
		},
	}
}

// NewFamilies 构建同义词族表。configPath 为可选的 JSON 覆盖文件
// （格式：{"族key": ["成员", ...], ...}），路径为空则只用内置表。
func NewFamilies(configPath string) (*Families, error) {
	families := builtinFamilies()

	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取同义词配置失败 %s: %w", configPath, err)
		}
		var override map[string][]string
		if err := json.Unmarshal(raw, &override); err != nil {
			return nil, fmt.Errorf("解析同义词配置失败 %s: %w", configPath, err)
		}
		keys := make([]string, 0, len(override))
		for k := range override {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			families = mergeFamily(families, k, override[k])
		}
	}

	f := &Families{families: families, byMember: make(map[string]*Family)}
	for _, fam := range families {
		for _, m := range fam.Members {
			norm := Normalize(m)
			if norm == "" {
				continue
			}
			if prev, ok := f.byMember[norm]; ok && !moreSpecific(fam, prev) {
				continue
			}
			f.byMember[norm] = fam
		}
	}
	return f, nil
}

// mergeFamily 用覆盖配置替换同 key 的族成员，新 key 则追加新族。
func mergeFamily(families []*Family, key string, members []string) []*Family {
	normKey := Normalize(key)
	for _, fam := range families {
		if Normalize(fam.Key) == normKey {
			fam.Members = append([]string(nil), members...)
			return families
		}
	}
	return append(families, &Family{Key: key, Members: append([]string(nil), members...)})
}

// moreSpecific 比较两个族的具体程度：key 归一化后更长者更具体。
func moreSpecific(a, b *Family) bool {
	return utf8.RuneCountInString(Normalize(a.Key)) > utf8.RuneCountInString(Normalize(b.Key))
}

// Expand 返回词条的同义词族全部成员；不在任何族内则返回只含自身的切片。
func (f *Families) Expand(term string) []string {
	if fam, ok := f.byMember[Normalize(term)]; ok {
		return append([]string(nil), fam.Members...)
	}
	return []string{term}
}

// BroaderSibling 返回词条所属族的更宽泛根词（放宽搜索时的替换候选）。
// 词条本身就是根词或族无根词时返回 false。
func (f *Families) BroaderSibling(term string) (string, bool) {
	fam, ok := f.byMember[Normalize(term)]
	if !ok || fam.Root == "" || Normalize(fam.Root) == Normalize(term) {
		return "", false
	}
	return fam.Root, true
}

// TermGroup 一个关键词与其同义词族展开（至少包含自身）。
type TermGroup struct {
	Term     string
	Variants []string
}

// Group 把关键词列表展开为匹配用的词组列表。
func (f *Families) Group(terms []string) []*TermGroup {
	groups := make([]*TermGroup, 0, len(terms))
	for _, t := range terms {
		groups = append(groups, &TermGroup{Term: t, Variants: f.Expand(t)})
	}
	return groups
}
