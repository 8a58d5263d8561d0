package service

import (
	"regexp"
	"sort"
	"strings"

	"circuit-nav-go/internal/model"
)

// 选项数量偏大时合并明显重复的选项。合并只在相似度 >= 阈值
// （约“一半以上字符相同”）时发生，且合并结果必须保留精确 ids，
// 保证后续按选项筛选仍然精确。

var (
	docExtRe     = regexp.MustCompile(`(?i)\.(docx|doc|pdf|pptx|ppt|xlsx|xls)$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

func stripDocExt(s string) string {
	return strings.TrimSpace(docExtRe.ReplaceAllString(s, ""))
}

// normForSimilarity 相似度计算前的归一（只用于比较，不用于展示）。
func normForSimilarity(s string) string {
	return whitespaceRe.ReplaceAllString(stripDocExt(s), "")
}

// charOverlapRatio 字符多重集重叠率：交集字符数 / 较长串长度。
func charOverlapRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ca := make(map[rune]int, len(a))
	for _, r := range a {
		ca[r]++
	}
	inter := 0
	for _, r := range b {
		if ca[r] > 0 {
			ca[r]--
			inter++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(inter) / float64(denom)
}

// sequenceRatio 顺序敏感的相似度：2*LCS / (len(a)+len(b))。
func sequenceRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(b)]
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

// NameSimilarity 名称相似度 [0,1]：顺序敏感比与字符重叠率取较大者。
func NameSimilarity(a, b string) float64 {
	na := []rune(normForSimilarity(a))
	nb := []rune(normForSimilarity(b))
	if len(na) == 0 || len(nb) == 0 {
		return 0
	}
	seq := sequenceRatio(na, nb)
	ov := charOverlapRatio(na, nb)
	if ov > seq {
		return ov
	}
	return seq
}

// displayBaseName 合并组的紧凑展示名：去扩展名；以【标签】开头时
// 截到下一个【之前（保留"【推荐】解放动力..."这类前缀语义）。
func displayBaseName(s string) string {
	raw := whitespaceRe.ReplaceAllString(stripDocExt(s), " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if end := strings.Index(raw, "】"); end >= 0 {
		if nxt := strings.Index(raw[end+len("】"):], "【"); nxt >= 0 {
			return strings.TrimSpace(raw[:end+len("】")+nxt])
		}
	}
	return raw
}

// chooseGroupName 为合并组挑选稳定展示名：基名全同时直接用；
// 否则找一个是所有基名公共子串的最长基名（至少 4 个字符，
// 避免“东风天”这类破坏语义的超短前缀）；再不行就退回第一个基名。
func chooseGroupName(names []string) string {
	var bases []string
	for _, n := range names {
		if b := displayBaseName(n); b != "" {
			bases = append(bases, b)
		}
	}
	if len(bases) == 0 {
		return ""
	}

	norm := make([]string, len(bases))
	for i, b := range bases {
		norm[i] = whitespaceRe.ReplaceAllString(b, "")
	}
	allEqual := true
	for _, n := range norm[1:] {
		if n != norm[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return bases[0]
	}

	best := ""
	for _, cand := range norm {
		if len([]rune(cand)) < 4 {
			continue
		}
		ok := true
		for _, other := range norm {
			if !strings.Contains(other, cand) {
				ok = false
				break
			}
		}
		if ok && len(cand) > len(best) {
			best = cand
		}
	}
	if best != "" {
		return best
	}
	return bases[0]
}

// MergeSimilarOptions 合并高度相似的选项。
// 只在选项数 >= minLen 时运行；缺少 ids 的选项不参与合并（安全起见
// 保持原样），合并后的选项 ids 为成员并集、count 等于 ids 数。
// 返回值保持各组首次出现的顺序。
func MergeSimilarOptions(options []*model.Option, minLen int, threshold float64) []*model.Option {
	if len(options) == 0 || len(options) < minLen {
		return options
	}

	n := len(options)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		if options[i].Name == "" {
			continue
		}
		for j := i + 1; j < n; j++ {
			if options[j].Name == "" {
				continue
			}
			if NameSimilarity(options[i].Name, options[j].Name) >= threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	var order []int
	for i := 0; i < n; i++ {
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], i)
	}

	var out []*model.Option
	for _, r := range order {
		members := groups[r]
		if len(members) == 1 {
			out = append(out, options[members[0]])
			continue
		}

		idSet := make(map[int]struct{})
		for _, m := range members {
			for _, id := range options[m].IDs {
				idSet[id] = struct{}{}
			}
		}
		// 凑不出 ids 就不合并，保留原有区分度
		if len(idSet) == 0 {
			for _, m := range members {
				out = append(out, options[m])
			}
			continue
		}

		ids := make([]int, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		names := make([]string, len(members))
		for i, m := range members {
			names[i] = options[m].Name
		}
		name := chooseGroupName(names)
		if name == "" {
			name = stripDocExt(names[0])
		}

		out = append(out, &model.Option{
			Name:  name,
			Count: len(ids),
			Type:  options[members[0]].Type,
			IDs:   ids,
		})
	}
	return out
}
