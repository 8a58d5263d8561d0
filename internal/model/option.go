package model

// Dimension 选择题选项的分桶维度。
type Dimension string

const (
	DimensionBrand            Dimension = "brand"
	DimensionModel            Dimension = "model"
	DimensionType             Dimension = "type"
	DimensionCategory         Dimension = "category"
	DimensionBrandModel       Dimension = "brand_model"
	DimensionVariant          Dimension = "variant"
	DimensionConfig           Dimension = "config"
	DimensionDocumentCategory Dimension = "document_category"
	DimensionFilenamePrefix   Dimension = "filename_prefix"
	DimensionResult           Dimension = "result"
	DimensionGroup            Dimension = "group"
)

// NameDerived 维度名是否由文件名派生（决定是否允许相似度合并）。
func (d Dimension) NameDerived() bool {
	return d == DimensionDocumentCategory || d == DimensionFilenamePrefix
}

// Option 一个选择题选项：候选集的一个精确 id 子集。
// IDs 为必填项；同一轮返回的所有选项（含兜底“其他”桶）的 IDs 必须恰好
// 构成输入候选集的一个不相交划分。
type Option struct {
	Label string    `json:"label"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
	Type  Dimension `json:"type"`
	IDs   []int     `json:"ids"`
}

// Question 一轮选择题：问题文本、选项与分桶维度。
type Question struct {
	Question string
	Options  []*Option
	Type     Dimension
}

// AskedDimension 已经向用户问过并得到回答的维度。
type AskedDimension struct {
	Type  Dimension
	Value string
}
