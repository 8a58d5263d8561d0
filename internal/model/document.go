// Package model 定义了应用的核心数据模型。
package model

import "strings"

// CompoundBrands 复合品牌列表（需要优先匹配）。
var CompoundBrands = []string{
	"东风天龙",
	"东风乘龙",
	"一汽解放",
	"中国重汽",
	"上汽大通",
	"福田欧曼",
	"红岩杰狮",
	"重汽豪瀚",
	"重汽豪汉",
}

// CommonBrands 常见品牌列表（用于层级解析与意图验证）。
var CommonBrands = []string{
	"三一", "徐工", "斗山", "杰西博", "久保田", "卡特彼勒", "凯斯",
	"龙工", "柳工", "雷沃", "日立", "山东临工", "山重建机", "山河智能",
	"神钢", "沃尔沃", "小松", "东风", "解放", "重汽", "福田", "乘龙",
	"红岩", "豪瀚", "豪沃", "欧曼", "上汽大通", "江淮", "玉柴", "康明斯", "五十铃",
}

// CommonDiagramTypes 常见电路图类型列表（用于意图验证/解析）。
var CommonDiagramTypes = []string{
	"仪表电路图",
	"ECU电路图",
	"整车电路图",
	"电路图",
	"仪表图",
	"ECU图",
	"整车图",
	"线路图",
	"接线图",
	"针脚图",
	"仪表模块",
}

// CommonVehicleCategories 常见车辆类别（用于意图验证/解析）。
var CommonVehicleCategories = []string{
	"工程机械",
	"商用车",
	"乘用车",
}

// Document 电路图资料数据模型。
// ID 与原始字段在加载后不可变；解析字段为尽力而为的派生属性，可能为空，
// 匹配时始终以文件名/层级路径原文为补充匹配面。
type Document struct {
	ID            int      `json:"id"`
	HierarchyPath []string `json:"hierarchy_path"`
	FileName      string   `json:"file_name"`

	// 解析后的字段（可选）
	DiagramType     string `json:"diagram_type,omitempty"`
	VehicleCategory string `json:"vehicle_category,omitempty"`
	Brand           string `json:"brand,omitempty"`
	Model           string `json:"model,omitempty"`
}

// NewDocument 创建 Document 并解析层级路径派生字段。
func NewDocument(id int, hierarchyPath []string, fileName string) *Document {
	d := &Document{
		ID:            id,
		HierarchyPath: hierarchyPath,
		FileName:      fileName,
	}
	d.parseHierarchy()
	return d
}

// parseHierarchy 解析层级路径，提取类型/类别/品牌/型号。
// 常见格式：电路图 -> 类型 -> 类别 -> 品牌 -> 型号。
func (d *Document) parseHierarchy() {
	if len(d.HierarchyPath) == 0 {
		return
	}

	if len(d.HierarchyPath) > 1 {
		d.DiagramType = d.HierarchyPath[1]
	}
	if len(d.HierarchyPath) > 2 {
		d.VehicleCategory = d.HierarchyPath[2]
	}

	// 品牌按已知品牌列表定位，型号取品牌的下一层
	for i, level := range d.HierarchyPath {
		if isKnownBrand(level) {
			d.Brand = level
			if i+1 < len(d.HierarchyPath) {
				d.Model = d.HierarchyPath[i+1]
			}
			break
		}
	}

	// 未命中品牌列表时回退到位置启发式
	if d.Brand == "" && len(d.HierarchyPath) > 3 {
		d.Brand = d.HierarchyPath[3]
		if len(d.HierarchyPath) > 4 {
			d.Model = d.HierarchyPath[4]
		}
	}
}

func isKnownBrand(level string) bool {
	for _, b := range CommonBrands {
		if level == b {
			return true
		}
	}
	for _, cb := range CompoundBrands {
		if level == cb {
			return true
		}
	}
	return false
}

// JoinedPath 返回以 " -> " 连接的层级路径展示文本。
func (d *Document) JoinedPath() string {
	return strings.Join(d.HierarchyPath, " -> ")
}

// TextFields 返回用于包含匹配的全部文本字段（文件名、各层级、解析字段）。
func (d *Document) TextFields() []string {
	fields := make([]string, 0, len(d.HierarchyPath)+5)
	fields = append(fields, d.FileName)
	fields = append(fields, d.HierarchyPath...)
	if d.Brand != "" {
		fields = append(fields, d.Brand)
	}
	if d.Model != "" {
		fields = append(fields, d.Model)
	}
	if d.DiagramType != "" {
		fields = append(fields, d.DiagramType)
	}
	if d.VehicleCategory != "" {
		fields = append(fields, d.VehicleCategory)
	}
	return fields
}

// ScoredResult 带评分的搜索结果，按评分降序排列，同分保持目录顺序。
type ScoredResult struct {
	Document *Document
	Score    float64
}
