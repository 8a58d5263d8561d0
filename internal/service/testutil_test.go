package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"circuit-nav-go/internal/catalog"
	"circuit-nav-go/internal/keyword"
	"circuit-nav-go/internal/model"
)

// 词典加载较慢，包内测试共享提取器与同义词族表。
var (
	sharedOnce sync.Once
	sharedExt  *keyword.Extractor
	sharedFam  *keyword.Families
	sharedErr  error
)

func testKeywordStack(t *testing.T) (*keyword.Extractor, *keyword.Families) {
	t.Helper()
	sharedOnce.Do(func() {
		sharedExt, sharedErr = keyword.NewExtractor()
		if sharedErr != nil {
			return
		}
		sharedFam, sharedErr = keyword.NewFamilies("")
	})
	require.NoError(t, sharedErr)
	return sharedExt, sharedFam
}

func fixtureDocs() []*model.Document {
	return []*model.Document{
		model.NewDocument(1, []string{"电路图", "仪表电路图", "商用车", "东风", "天龙"}, "东风_天龙_仪表电路图.docx"),
		model.NewDocument(2, []string{"电路图", "仪表电路图", "商用车", "东风", "天锦"}, "东风_天锦_仪表电路图.docx"),
		model.NewDocument(3, []string{"电路图", "仪表电路图", "商用车", "东风", "天龙KL"}, "东风_天龙KL_仪表电路图.docx"),
		model.NewDocument(4, []string{"电路图", "仪表电路图", "商用车", "东风", "天龙VL"}, "东风_天龙VL_仪表电路图.docx"),
		model.NewDocument(5, []string{"电路图", "仪表电路图", "商用车", "东风", "凯普特"}, "东风_凯普特_仪表电路图.docx"),
		model.NewDocument(6, []string{"电路图", "仪表电路图", "商用车", "东风", "多利卡"}, "东风_多利卡_仪表电路图.docx"),
		model.NewDocument(7, []string{"电路图", "仪表电路图", "商用车", "东风", "华神"}, "东风_华神_仪表电路图.docx"),
		model.NewDocument(8, []string{"电路图", "ECU电路图", "工程机械", "三一", "SY60"}, "三一_SY60_ECU电路图.pdf"),
		model.NewDocument(9, []string{"电路图", "整车电路图", "商用车", "一汽解放", "JH6"}, "一汽解放_JH6_整车电路图.docx"),
		model.NewDocument(10, []string{"电路图", "仪表电路图", "商用车", "重汽", "豪沃"}, "中国重汽_豪沃_仪表电路图.docx"),
		model.NewDocument(11, []string{"电路图", "维修资料", "商用车", "东风", "天龙"}, "东风_天龙_保养手册.pdf"),
	}
}

func newTestSearchService(t *testing.T, docs []*model.Document) *SearchService {
	t.Helper()
	ext, fam := testKeywordStack(t)
	if docs == nil {
		docs = fixtureDocs()
	}
	return NewSearchService(catalog.NewFromDocuments(docs), ext, fam)
}

func resultsOf(docs ...*model.Document) []*model.ScoredResult {
	out := make([]*model.ScoredResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, &model.ScoredResult{Document: d})
	}
	return out
}

func resultIDs(results []*model.ScoredResult) []int {
	ids := make([]int, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Document.ID)
	}
	return ids
}
