package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuit-nav-go/internal/model"
)

func TestSearchAndRelaxRemovesZeroHitTerm(t *testing.T) {
	s := newTestSearchService(t, nil)

	// VGT 在目录里零命中，放宽后用剩余关键词重搜
	results, meta := s.SearchAndRelax("VGT线路图", 0, nil, nil)
	require.NotEmpty(t, results)
	assert.Contains(t, meta.RemovedTerms, "VGT")
	assert.Equal(t, []string{"线路图"}, meta.UsedTerms)
	assert.Empty(t, meta.Substitutions)

	// 线路图经同义词族覆盖所有文件名含电路图的文档
	ids := resultIDs(results)
	assert.Contains(t, ids, 1)
	assert.Contains(t, ids, 8)
	assert.NotContains(t, ids, 11)
}

func TestSearchAndRelaxSubstitutesBroaderSibling(t *testing.T) {
	docs := []*model.Document{
		model.NewDocument(1, []string{"电路图", "维修资料", "商用车", "东风", "天龙"}, "东风_天龙_仪表台配置说明.docx"),
	}
	s := newTestSearchService(t, docs)

	// 仪表图 族成员都不命中，但根词 仪表 命中，替换而不是移除
	results, meta := s.SearchAndRelax("天龙 仪表图", 0, nil, nil)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Document.ID)
	assert.Equal(t, "仪表", meta.Substitutions["仪表图"])
	assert.NotContains(t, meta.RemovedTerms, "仪表图")
}

func TestSearchAndRelaxForceRemove(t *testing.T) {
	s := newTestSearchService(t, nil)

	results, meta := s.SearchAndRelax("东风 仪表图", 0, nil, []string{"东风"})
	require.NotEmpty(t, results)
	assert.Contains(t, meta.RemovedTerms, "东风")
	assert.Equal(t, []string{"仪表图"}, meta.UsedTerms)

	// 去掉东风后重汽的仪表文档也进来了
	assert.Contains(t, resultIDs(results), 10)
}

func TestSearchAndRelaxMaxResults(t *testing.T) {
	s := newTestSearchService(t, nil)

	results, _ := s.SearchAndRelax("VGT 仪表图", 3, nil, nil)
	assert.Len(t, results, 3)
}

func buildRelaxTerms(terms []string, hits [][]int) []*relaxTerm {
	out := make([]*relaxTerm, len(terms))
	for i, term := range terms {
		set := make(map[int]struct{}, len(hits[i]))
		for _, id := range hits[i] {
			set[id] = struct{}{}
		}
		out[i] = &relaxTerm{term: term, hits: set}
	}
	return out
}

func TestPickDropIndexFewTerms(t *testing.T) {
	t.Run("generic diagram word dropped first", func(t *testing.T) {
		working := buildRelaxTerms(
			[]string{"东风", "线路图", "天龙"},
			[][]int{{1}, {2}, {3}},
		)
		assert.Equal(t, 1, pickDropIndex(working))
	})

	t.Run("protected term outlives unprotected", func(t *testing.T) {
		// KL 是受守卫的短代码，天龙不是，先丢天龙
		working := buildRelaxTerms(
			[]string{"天龙", "KL"},
			[][]int{{1}, {2}},
		)
		assert.Equal(t, 0, pickDropIndex(working))
	})

	t.Run("all protected drops from the end", func(t *testing.T) {
		working := buildRelaxTerms(
			[]string{"东风", "KL"},
			[][]int{{1}, {2}},
		)
		assert.Equal(t, 1, pickDropIndex(working))
	})
}

func TestPickDropIndexCombinability(t *testing.T) {
	t.Run("lowest combinability dropped", func(t *testing.T) {
		working := buildRelaxTerms(
			[]string{"东风", "天龙", "牵引", "保险丝"},
			[][]int{{1, 2}, {1, 2}, {2}, {99}},
		)
		assert.Equal(t, 3, pickDropIndex(working))
	})

	t.Run("tie prefers generic term", func(t *testing.T) {
		// 两两都不相交，可组合度全 0，泛指词优先被丢
		working := buildRelaxTerms(
			[]string{"东风", "天龙", "线路图", "豪沃"},
			[][]int{{1}, {2}, {3}, {4}},
		)
		assert.Equal(t, 2, pickDropIndex(working))
	})
}

func TestSearchAndRelaxTerminates(t *testing.T) {
	docs := []*model.Document{
		model.NewDocument(1, []string{"电路图"}, "东风_整车电路图.docx"),
		model.NewDocument(2, []string{"电路图"}, "三一_ECU电路图.pdf"),
	}
	s := newTestSearchService(t, docs)

	// 两个词各自有命中但交集为空，迭代丢词后必须收敛到非空结果
	results, meta := s.SearchAndRelax("整车电路图 ECU电路图", 0, nil, nil)
	require.NotEmpty(t, results)
	assert.Equal(t, []string{"整车电路图"}, meta.UsedTerms)
	assert.Equal(t, []string{"ECU电路图"}, meta.RemovedTerms)
	assert.Equal(t, []int{1}, resultIDs(results))
}
