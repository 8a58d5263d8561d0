package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuit-nav-go/internal/model"
)

func TestNameSimilarity(t *testing.T) {
	t.Run("identical after ext strip", func(t *testing.T) {
		sim := NameSimilarity("解放动力针脚图.docx", "解放动力针脚图.pdf")
		assert.Equal(t, 1.0, sim)
	})

	t.Run("whitespace ignored", func(t *testing.T) {
		sim := NameSimilarity("解放 动力 针脚图", "解放动力针脚图")
		assert.Equal(t, 1.0, sim)
	})

	t.Run("near duplicates score high", func(t *testing.T) {
		sim := NameSimilarity("东风天龙", "东风天锦")
		assert.InDelta(t, 0.75, sim, 0.01)
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		sim := NameSimilarity("东风天龙", "三一挖机")
		assert.Less(t, sim, 0.5)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, 0.0, NameSimilarity("", "东风"))
	})
}

func mergeFixtureOptions() []*model.Option {
	return []*model.Option{
		{Name: "【推荐】解放动力 发动机针脚图及插接件信息.docx", Count: 2, IDs: []int{1, 2}},
		{Name: "【推荐】解放动力 发动机针脚图及插接件信息.pdf", Count: 2, IDs: []int{2, 3}},
		{Name: "三一SY60保养资料", Count: 1, IDs: []int{4}},
		{Name: "徐工XE215操作手册", Count: 1, IDs: []int{5}},
		{Name: "重汽豪沃维修说明", Count: 1, IDs: []int{6}},
		{Name: "江淮骏铃使用指南", Count: 1, IDs: []int{7}},
	}
}

func TestMergeSimilarOptions(t *testing.T) {
	out := MergeSimilarOptions(mergeFixtureOptions(), 6, 0.5)
	require.Len(t, out, 5)

	// 两个近重复选项合并为一个，ids 取并集、count 随之更新
	merged := out[0]
	assert.Equal(t, []int{1, 2, 3}, merged.IDs)
	assert.Equal(t, 3, merged.Count)
	assert.Contains(t, merged.Name, "解放动力")

	// 其余选项原样保留且顺序不变
	assert.Equal(t, "三一SY60保养资料", out[1].Name)
	assert.Equal(t, "江淮骏铃使用指南", out[4].Name)
}

func TestMergeSimilarOptionsManyNearDuplicates(t *testing.T) {
	// 12 个只差尾部【n】标签的资料类别选项
	options := []*model.Option{
		{Name: "解放动力发动机针脚图【1】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{1}},
		{Name: "解放动力发动机针脚图【2】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{2}},
		{Name: "解放动力发动机针脚图【3】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{3}},
		{Name: "解放动力发动机针脚图【4】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{4}},
		{Name: "解放动力发动机针脚图【5】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{5}},
		{Name: "解放动力发动机针脚图【6】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{6}},
		{Name: "解放动力发动机针脚图【7】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{7}},
		{Name: "解放动力发动机针脚图【8】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{8}},
		{Name: "解放动力发动机针脚图【9】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{9}},
		{Name: "解放动力发动机针脚图【10】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{10}},
		{Name: "解放动力发动机针脚图【11】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{11}},
		{Name: "解放动力发动机针脚图【12】", Count: 1, Type: model.DimensionDocumentCategory, IDs: []int{12}},
	}

	out := MergeSimilarOptions(options, 6, 0.5)
	require.Len(t, out, 1)

	// 合并后 ids 并集与 count 必须仍覆盖原有全集
	merged := out[0]
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, merged.IDs)
	assert.Equal(t, 12, merged.Count)
	assert.Equal(t, model.DimensionDocumentCategory, merged.Type)
	assert.Contains(t, merged.Name, "解放动力发动机针脚图")

	// 再次合并不再变化
	again := MergeSimilarOptions(out, 6, 0.5)
	assert.Equal(t, out, again)
}

func TestMergeSimilarOptionsBelowMinLen(t *testing.T) {
	options := mergeFixtureOptions()[:4]
	out := MergeSimilarOptions(options, 6, 0.5)
	assert.Len(t, out, 4)
	assert.Equal(t, options[0].Name, out[0].Name)
	assert.Equal(t, options[1].Name, out[1].Name)
}

func TestMergeSimilarOptionsWithoutIDs(t *testing.T) {
	options := []*model.Option{
		{Name: "解放动力针脚图.docx", Count: 2},
		{Name: "解放动力针脚图.pdf", Count: 2},
		{Name: "三一SY60保养资料", Count: 1, IDs: []int{4}},
		{Name: "徐工XE215操作手册", Count: 1, IDs: []int{5}},
		{Name: "重汽豪沃维修说明", Count: 1, IDs: []int{6}},
		{Name: "江淮骏铃使用指南", Count: 1, IDs: []int{7}},
	}

	// 凑不出 ids 的组放弃合并，保持原有区分度
	out := MergeSimilarOptions(options, 6, 0.5)
	assert.Len(t, out, 6)
}

func TestChooseGroupName(t *testing.T) {
	t.Run("all equal bases", func(t *testing.T) {
		name := chooseGroupName([]string{"解放动力针脚图.docx", "解放动力针脚图.pdf"})
		assert.Equal(t, "解放动力针脚图", name)
	})

	t.Run("common substring base wins", func(t *testing.T) {
		name := chooseGroupName([]string{"东风天龙KL整车电路图高清版", "东风天龙KL整车电路图"})
		assert.Equal(t, "东风天龙KL整车电路图", name)
	})

	t.Run("no common base falls back to first", func(t *testing.T) {
		name := chooseGroupName([]string{"东风天龙资料", "三一挖机手册"})
		assert.Equal(t, "东风天龙资料", name)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", chooseGroupName(nil))
	})
}
