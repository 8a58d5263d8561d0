package service

import (
	"strings"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/log"
)

// relaxTerm 放宽流程中跟踪的单个关键词及其命中集。
type relaxTerm struct {
	term string
	hits map[int]struct{}
}

// SearchAndRelax 严格 AND 搜索为空时的放宽搜索。
// 步骤一：零命中词直接移除，有更宽泛根词的替换为根词重算；
// 步骤二：剩余词命中集交集仍为空时逐个丢词，丢词顺序见注释。
// forceRemove 里的词（文件名门控判为零命中的）先行移除。
func (s *SearchService) SearchAndRelax(query string, maxResults int, intent *model.IntentResult, forceRemove []string) ([]*model.ScoredResult, *model.RelaxMeta) {
	terms := s.extractor.Extract(strings.TrimSpace(query))
	meta := &model.RelaxMeta{Substitutions: make(map[string]string)}
	if len(terms) == 0 {
		return nil, meta
	}

	forced := make(map[string]struct{}, len(forceRemove))
	for _, t := range forceRemove {
		forced[t] = struct{}{}
	}

	var working []*relaxTerm
	for _, t := range terms {
		if _, ok := forced[t]; ok {
			s.removeOrSubstitute(t, &working, meta)
			continue
		}
		working = append(working, &relaxTerm{term: t, hits: s.hitSet(t)})
	}

	// 步骤一：零命中移除（带宽泛根词替换）
	var survivors []*relaxTerm
	for _, rt := range working {
		if len(rt.hits) > 0 {
			survivors = append(survivors, rt)
			continue
		}
		s.removeOrSubstitute(rt.term, &survivors, meta)
	}
	working = survivors

	// 步骤二：迭代丢词直到交集非空或只剩一个词
	for len(working) > 1 && len(intersectAll(working)) == 0 {
		drop := pickDropIndex(working)
		dropped := working[drop]
		meta.RemovedTerms = append(meta.RemovedTerms, dropped.term)
		working = append(working[:drop], working[drop+1:]...)
		log.Infof("[SearchService] 放宽搜索丢弃关键词 %q，剩余 %d 个", dropped.term, len(working))
	}

	for _, rt := range working {
		meta.UsedTerms = append(meta.UsedTerms, rt.term)
	}
	if len(meta.Substitutions) == 0 {
		meta.Substitutions = nil
	}

	finalTerms := make([]string, len(working))
	for i, rt := range working {
		finalTerms[i] = rt.term
	}
	results := s.SearchTerms(finalTerms, intent)
	results = s.Deduplicate(results)
	if maxResults > 0 && maxResults < len(results) {
		results = results[:maxResults]
	}
	return results, meta
}

// removeOrSubstitute 移除一个词；若同义词族配置了更宽泛的根词且
// 根词有命中，则以根词顶替并记录替换关系。
func (s *SearchService) removeOrSubstitute(term string, working *[]*relaxTerm, meta *model.RelaxMeta) {
	if sibling, ok := s.families.BroaderSibling(term); ok {
		hits := s.hitSet(sibling)
		if len(hits) > 0 {
			meta.Substitutions[term] = sibling
			*working = append(*working, &relaxTerm{term: sibling, hits: hits})
			log.Infof("[SearchService] 关键词 %q 零命中，替换为更宽泛的 %q", term, sibling)
			return
		}
	}
	meta.RemovedTerms = append(meta.RemovedTerms, term)
	log.Infof("[SearchService] 关键词 %q 零命中，移除", term)
}

// pickDropIndex 选出下一个要丢弃的词的下标。
// 超过 3 个词时按可组合度（与其它词两两交集非空的个数）最低者丢弃，
// 平局先丢泛指词、再丢靠后的词；3 个及以下时从尾部丢，
// 泛指词优先，且在还有非保护词时绝不丢保护词。
func pickDropIndex(working []*relaxTerm) int {
	n := len(working)
	if n > 3 {
		best := -1
		bestComb := n + 1
		for i := n - 1; i >= 0; i-- {
			comb := 0
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				if len(intersect(working[i].hits, working[j].hits)) > 0 {
					comb++
				}
			}
			gi := isGenericTerm(working[i].term)
			if comb < bestComb {
				best, bestComb = i, comb
				continue
			}
			if comb == bestComb && best >= 0 {
				gb := isGenericTerm(working[best].term)
				// 同可组合度：泛指词优先；都泛指/都不泛指时保留先出现的候选（即丢更靠后的）
				if gi && !gb {
					best = i
				}
			}
		}
		return best
	}

	hasUnprotected := false
	for _, rt := range working {
		if !isProtectedTerm(rt.term) {
			hasUnprotected = true
			break
		}
	}

	// 先找靠后的泛指词
	for i := n - 1; i >= 0; i-- {
		if isGenericTerm(working[i].term) {
			return i
		}
	}
	// 再从尾部找非保护词
	if hasUnprotected {
		for i := n - 1; i >= 0; i-- {
			if !isProtectedTerm(working[i].term) {
				return i
			}
		}
	}
	return n - 1
}

func intersectAll(working []*relaxTerm) map[int]struct{} {
	if len(working) == 0 {
		return map[int]struct{}{}
	}
	out := working[0].hits
	for _, rt := range working[1:] {
		out = intersect(out, rt.hits)
		if len(out) == 0 {
			return out
		}
	}
	return out
}
