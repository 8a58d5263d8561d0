package model

// ChatRequest 聊天接口请求体。
type ChatRequest struct {
	Message    string `json:"message" binding:"required"`
	SessionID  string `json:"session_id"`
	Logic      string `json:"logic"`       // and / or，默认 and
	MaxResults int    `json:"max_results"` // 直接返回结果的数量上限，默认取配置
}

// ResultItem 返回给前端的单条检索结果。
type ResultItem struct {
	ID            int     `json:"id"`
	FileName      string  `json:"file_name"`
	HierarchyPath string  `json:"hierarchy_path"`
	Score         float64 `json:"score"`
	Brand         string  `json:"brand,omitempty"`
	Model         string  `json:"model,omitempty"`
	DiagramType   string  `json:"diagram_type,omitempty"`
}

// ChatResponse 聊天接口响应体。
type ChatResponse struct {
	Message     string        `json:"message"`
	Results     []*ResultItem `json:"results,omitempty"`
	Options     []*Option     `json:"options,omitempty"`
	NeedsChoice bool          `json:"needs_choice"`
	SessionID   string        `json:"session_id"`
}

// NewResultItem 把内部评分结果转换为响应条目。
func NewResultItem(r *ScoredResult) *ResultItem {
	return &ResultItem{
		ID:            r.Document.ID,
		FileName:      r.Document.FileName,
		HierarchyPath: r.Document.JoinedPath(),
		Score:         r.Score,
		Brand:         r.Document.Brand,
		Model:         r.Document.Model,
		DiagramType:   r.Document.DiagramType,
	}
}

// NewResultItems 批量转换。
func NewResultItems(rs []*ScoredResult) []*ResultItem {
	items := make([]*ResultItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, NewResultItem(r))
	}
	return items
}
