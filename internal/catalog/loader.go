// Package catalog 负责电路图目录数据的加载与只读访问。
// 目录在进程启动时一次性加载，之后只读，不需要加锁。
package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/pkg/log"
)

// 必要的 CSV 列。
const (
	colID       = "ID"
	colPath     = "层级路径"
	colFileName = "关联文件名称"
)

// Catalog 内存目录，持有全部文档与 id 索引。
type Catalog struct {
	docs []*model.Document
	byID map[int]*model.Document

	// EncodingUsed 实际命中的编码名（utf-8 / gbk / gb18030）。
	EncodingUsed string
}

// Load 从 CSV 文件加载目录。
// 编码回退链：utf-8（含 BOM）优先，然后 gbk、gb18030。
func Load(csvPath string) (*Catalog, error) {
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败 %s: %w", csvPath, err)
	}

	text, encName, err := decodeWithFallback(raw)
	if err != nil {
		return nil, fmt.Errorf("无法解码CSV文件 %s: %w", csvPath, err)
	}
	if encName != "utf-8" {
		log.Warnf("[Catalog] 读取CSV使用编码 %s，建议统一为UTF-8", encName)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析CSV失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV文件为空: %s", csvPath)
	}

	idx, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		byID:         make(map[int]*model.Document, len(records)-1),
		EncodingUsed: encName,
	}
	for line, row := range records[1:] {
		if len(row) <= idx[colFileName] || len(row) <= idx[colPath] || len(row) <= idx[colID] {
			log.Warnf("[Catalog] 第 %d 行列数不足，跳过", line+2)
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idx[colID]]))
		if err != nil {
			log.Warnf("[Catalog] 第 %d 行 ID 非法: %q", line+2, row[idx[colID]])
			continue
		}
		doc := model.NewDocument(id, splitHierarchy(row[idx[colPath]]), strings.TrimSpace(row[idx[colFileName]]))
		c.docs = append(c.docs, doc)
		c.byID[id] = doc
	}

	log.Infof("[Catalog] 成功加载 %d 条电路图数据", len(c.docs))
	return c, nil
}

// NewFromDocuments 直接从文档列表构造目录（测试用）。
func NewFromDocuments(docs []*model.Document) *Catalog {
	c := &Catalog{byID: make(map[int]*model.Document, len(docs)), EncodingUsed: "utf-8"}
	for _, d := range docs {
		c.docs = append(c.docs, d)
		c.byID[d.ID] = d
	}
	return c
}

// All 返回全部文档（目录顺序，调用方不得修改）。
func (c *Catalog) All() []*model.Document {
	return c.docs
}

// Get 按 ID 查找文档。
func (c *Catalog) Get(id int) (*model.Document, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Size 文档总数。
func (c *Catalog) Size() int {
	return len(c.docs)
}

// Stats 目录统计信息。
type Stats struct {
	TotalCount        int
	DiagramTypes      map[string]int
	VehicleCategories map[string]int
	Brands            map[string]int
	Models            map[string]int
}

// Stats 计算各解析维度的计数（启动时记录日志用）。
func (c *Catalog) Stats() *Stats {
	s := &Stats{
		TotalCount:        len(c.docs),
		DiagramTypes:      make(map[string]int),
		VehicleCategories: make(map[string]int),
		Brands:            make(map[string]int),
		Models:            make(map[string]int),
	}
	for _, d := range c.docs {
		if d.DiagramType != "" {
			s.DiagramTypes[d.DiagramType]++
		}
		if d.VehicleCategory != "" {
			s.VehicleCategories[d.VehicleCategory]++
		}
		if d.Brand != "" {
			s.Brands[d.Brand]++
		}
		if d.Model != "" {
			s.Models[d.Model]++
		}
	}
	return s
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	var missing []string
	for _, col := range []string{colID, colPath, colFileName} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV文件缺少必要的列: %v", missing)
	}
	return idx, nil
}

func splitHierarchy(s string) []string {
	parts := strings.Split(s, "->")
	levels := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			levels = append(levels, t)
		}
	}
	return levels
}

// decodeWithFallback 按 utf-8 / gbk / gb18030 的顺序尝试解码。
func decodeWithFallback(raw []byte) (string, string, error) {
	body := bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(body) {
		return string(body), "utf-8", nil
	}
	candidates := []struct {
		name string
		dec  *encoding.Decoder
	}{
		{"gbk", simplifiedchinese.GBK.NewDecoder()},
		{"gb18030", simplifiedchinese.GB18030.NewDecoder()},
	}
	var lastErr error
	for _, cand := range candidates {
		out, err := cand.dec.Bytes(body)
		if err == nil {
			return string(out), cand.name, nil
		}
		lastErr = err
	}
	return "", "", fmt.Errorf("尝试了 utf-8/gbk/gb18030: %w", lastErr)
}
