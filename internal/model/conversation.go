package model

import "time"

// StateEnum 对话状态枚举。
type StateEnum string

const (
	StateInitial      StateEnum = "initial"       // 初始状态
	StateSearching    StateEnum = "searching"     // 搜索中
	StateNeedsChoice  StateEnum = "needs_choice"  // 等待用户选择
	StateNeedsConfirm StateEnum = "needs_confirm" // 等待用户确认放宽结果
	StateCompleted    StateEnum = "completed"     // 已完成
)

// ChatMessage 聊天消息。
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RelaxMeta 关键词放宽搜索的元信息（用于确认消息与调试）。
type RelaxMeta struct {
	UsedTerms     []string          `json:"used_terms"`
	RemovedTerms  []string          `json:"removed_terms"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
}

// maxSnapshots 撤销快照栈的最大深度。
const maxSnapshots = 10

// ConversationState 单个会话的对话状态。
// 同一会话内的修改被视为串行（一个会话对应一个客户端）；
// 跨会话并发由上层会话存储的锁保护。
type ConversationState struct {
	State          StateEnum
	CurrentQuery   string
	SearchResults  []*ScoredResult
	CurrentOptions []*Option
	OptionType     Dimension
	AskedDims      []AskedDimension
	MessageHistory []ChatMessage
	Intent         *IntentResult
	RelaxMeta      *RelaxMeta
	PendingResults []*ScoredResult // NEEDS_CONFIRM 暂存的放宽候选集

	snapshots []*stateSnapshot
}

// stateSnapshot 状态快照。切片全部按值复制，避免活跃状态与快照共享底层数组。
type stateSnapshot struct {
	state          StateEnum
	currentQuery   string
	searchResults  []*ScoredResult
	currentOptions []*Option
	optionType     Dimension
	askedDims      []AskedDimension
	messageHistory []ChatMessage
	intent         *IntentResult
	relaxMeta      *RelaxMeta
	pendingResults []*ScoredResult
	takenAt        time.Time
}

// NewConversationState 创建初始会话状态。
func NewConversationState() *ConversationState {
	return &ConversationState{State: StateInitial}
}

// AddMessage 追加一条消息到历史记录。
func (s *ConversationState) AddMessage(role, content string) {
	s.MessageHistory = append(s.MessageHistory, ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// Clear 清空对话状态，回到初始态。
func (s *ConversationState) Clear() {
	*s = ConversationState{State: StateInitial}
}

// SaveSnapshot 保存当前状态快照（用于“返回上一步”）。
// 只在有意义的中间状态保存；栈深超过上限时丢弃最旧的一份。
func (s *ConversationState) SaveSnapshot() {
	if s.State == StateInitial || s.State == StateCompleted {
		return
	}
	snap := &stateSnapshot{
		state:          s.State,
		currentQuery:   s.CurrentQuery,
		searchResults:  copyResults(s.SearchResults),
		currentOptions: copyOptions(s.CurrentOptions),
		optionType:     s.OptionType,
		askedDims:      append([]AskedDimension(nil), s.AskedDims...),
		messageHistory: append([]ChatMessage(nil), s.MessageHistory...),
		intent:         s.Intent,
		relaxMeta:      s.RelaxMeta,
		pendingResults: copyResults(s.PendingResults),
		takenAt:        time.Now(),
	}
	if len(s.snapshots) >= maxSnapshots {
		s.snapshots = s.snapshots[1:]
	}
	s.snapshots = append(s.snapshots, snap)
}

// CanUndo 是否可以返回上一步。
func (s *ConversationState) CanUndo() bool {
	return len(s.snapshots) > 0
}

// Undo 恢复最近一次快照。恢复动作本身不会进入消息历史。
func (s *ConversationState) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	snap := s.snapshots[len(s.snapshots)-1]
	s.snapshots = s.snapshots[:len(s.snapshots)-1]

	s.State = snap.state
	s.CurrentQuery = snap.currentQuery
	s.SearchResults = snap.searchResults
	s.CurrentOptions = snap.currentOptions
	s.OptionType = snap.optionType
	s.AskedDims = snap.askedDims
	s.MessageHistory = snap.messageHistory
	s.Intent = snap.intent
	s.RelaxMeta = snap.relaxMeta
	s.PendingResults = snap.pendingResults
	return true
}

// SnapshotDepth 当前快照栈深度（测试用）。
func (s *ConversationState) SnapshotDepth() int {
	return len(s.snapshots)
}

func copyResults(in []*ScoredResult) []*ScoredResult {
	if in == nil {
		return nil
	}
	return append([]*ScoredResult(nil), in...)
}

func copyOptions(in []*Option) []*Option {
	if in == nil {
		return nil
	}
	return append([]*Option(nil), in...)
}
