package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"circuit-nav-go/internal/model"
)

const sampleCSV = `ID,层级路径,关联文件名称
1,电路图 -> 仪表电路图 -> 商用车 -> 东风 -> 天龙,东风_天龙旗舰版_仪表电路图.DOCX
2,电路图 -> 仪表电路图 -> 商用车 -> 东风 -> 天锦,东风_天锦_仪表_电路图.DOCX
3,电路图 -> ECU电路图 -> 工程机械 -> 三一 -> SY60,三一_SY60_ECU电路图.pdf
`

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadUTF8(t *testing.T) {
	path := writeTemp(t, "catalog.csv", []byte(sampleCSV))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Size())
	assert.Equal(t, "utf-8", cat.EncodingUsed)

	doc, ok := cat.Get(1)
	require.True(t, ok)
	assert.Equal(t, "东风_天龙旗舰版_仪表电路图.DOCX", doc.FileName)
	assert.Equal(t, []string{"电路图", "仪表电路图", "商用车", "东风", "天龙"}, doc.HierarchyPath)
	assert.Equal(t, "仪表电路图", doc.DiagramType)
	assert.Equal(t, "商用车", doc.VehicleCategory)
	assert.Equal(t, "东风", doc.Brand)
	assert.Equal(t, "天龙", doc.Model)
}

func TestLoadUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	path := writeTemp(t, "catalog.csv", data)

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Size())
	_, ok := cat.Get(2)
	assert.True(t, ok)
}

func TestLoadGBKFallback(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)
	path := writeTemp(t, "catalog.csv", gbk)

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Size())
	assert.Equal(t, "gbk", cat.EncodingUsed)

	doc, ok := cat.Get(3)
	require.True(t, ok)
	assert.Equal(t, "三一", doc.Brand)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("missing required column", func(t *testing.T) {
		path := writeTemp(t, "bad.csv", []byte("ID,层级路径\n1,电路图 -> 东风\n"))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "关联文件名称")
	})

	t.Run("bad id row skipped", func(t *testing.T) {
		path := writeTemp(t, "mixed.csv", []byte("ID,层级路径,关联文件名称\nabc,电路图 -> 东风,x.docx\n7,电路图 -> 东风,y.docx\n"))
		cat, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, cat.Size())
		_, ok := cat.Get(7)
		assert.True(t, ok)
	})
}

func TestStats(t *testing.T) {
	cat := NewFromDocuments([]*model.Document{
		model.NewDocument(1, []string{"电路图", "仪表电路图", "商用车", "东风", "天龙"}, "a.docx"),
		model.NewDocument(2, []string{"电路图", "仪表电路图", "商用车", "东风", "天锦"}, "b.docx"),
		model.NewDocument(3, []string{"电路图", "ECU电路图", "工程机械", "三一", "SY60"}, "c.docx"),
	})

	stats := cat.Stats()
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.DiagramTypes["仪表电路图"])
	assert.Equal(t, 1, stats.DiagramTypes["ECU电路图"])
	assert.Equal(t, 2, stats.Brands["东风"])
	assert.Equal(t, 1, stats.VehicleCategories["工程机械"])
	assert.Equal(t, 1, stats.Models["SY60"])
}
