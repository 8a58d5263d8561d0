package keyword

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamiliesExpand(t *testing.T) {
	fam, err := NewFamilies("")
	require.NoError(t, err)

	t.Run("family member expands to full family", func(t *testing.T) {
		got := fam.Expand("仪表图")
		assert.Contains(t, got, "仪表电路图")
		assert.Contains(t, got, "仪表图")
		assert.Contains(t, got, "仪表模块")
	})

	t.Run("unknown term expands to itself", func(t *testing.T) {
		assert.Equal(t, []string{"VGT"}, fam.Expand("VGT"))
	})

	t.Run("lookup is normalization-insensitive", func(t *testing.T) {
		got := fam.Expand("ECU 图")
		assert.Contains(t, got, "ECU电路图")
	})

	t.Run("specific family wins over generic", func(t *testing.T) {
		// 仪表电路图 同时像“仪表图”族成员和含“电路图”的词，
		// 必须归入更具体的仪表族而不是通用电路图族
		got := fam.Expand("仪表电路图")
		assert.Contains(t, got, "仪表图")
		assert.NotContains(t, got, "线路图")
	})
}

func TestFamiliesBroaderSibling(t *testing.T) {
	fam, err := NewFamilies("")
	require.NoError(t, err)

	t.Run("member with root", func(t *testing.T) {
		root, ok := fam.BroaderSibling("仪表电路图")
		require.True(t, ok)
		assert.Equal(t, "仪表", root)
	})

	t.Run("root itself has no broader sibling", func(t *testing.T) {
		_, ok := fam.BroaderSibling("电路图")
		assert.False(t, ok)
	})

	t.Run("unknown term", func(t *testing.T) {
		_, ok := fam.BroaderSibling("VGT")
		assert.False(t, ok)
	})
}

func TestFamiliesJSONOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.json")
	payload := `{"针脚图": ["针脚图", "引脚图", "PIN图"], "喷油器图": ["喷油器图", "喷油器电路图"]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	fam, err := NewFamilies(path)
	require.NoError(t, err)

	t.Run("existing family replaced", func(t *testing.T) {
		got := fam.Expand("针脚图")
		assert.Contains(t, got, "PIN图")
		assert.NotContains(t, got, "端子图")
	})

	t.Run("new family appended", func(t *testing.T) {
		got := fam.Expand("喷油器图")
		assert.Contains(t, got, "喷油器电路图")
	})

	t.Run("builtin families survive", func(t *testing.T) {
		got := fam.Expand("整车图")
		assert.Contains(t, got, "整车电路图")
	})
}

func TestFamiliesGroup(t *testing.T) {
	fam, err := NewFamilies("")
	require.NoError(t, err)

	groups := fam.Group([]string{"东风", "仪表图"})
	require.Len(t, groups, 2)
	assert.Equal(t, "东风", groups[0].Term)
	assert.Equal(t, []string{"东风"}, groups[0].Variants)
	assert.Equal(t, "仪表图", groups[1].Term)
	assert.Contains(t, groups[1].Variants, "仪表电路图")
}
