package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/internal/session"
	"circuit-nav-go/pkg/log"
)

// 对话控制短语。识别用精确匹配，避免把“我要重新找A选项”这类话误判。
var (
	undoPhrases    = []string{"上一步", "返回上一步", "回退", "撤销"}
	restartPhrases = []string{"重新搜索", "重新开始", "换一个", "重来"}

	affirmativeReplies = map[string]struct{}{
		"是": {}, "好": {}, "好的": {}, "可以": {}, "要": {}, "确认": {}, "查看": {},
		"yes": {}, "y": {}, "ok": {},
	}
	negativeReplies = map[string]struct{}{
		"否": {}, "不": {}, "不用": {}, "不要": {}, "不看": {}, "算了": {},
		"no": {}, "n": {},
	}
)

// ConversationService 多轮对话编排：搜索、放宽确认、选择题与撤销。
type ConversationService struct {
	search   *SearchService
	question *QuestionService
	intent   *IntentService
	sessions *session.Store

	defaultMaxResults int
	minOptions        int
	maxOptions        int
}

// NewConversationService 创建对话服务。
func NewConversationService(
	search *SearchService,
	question *QuestionService,
	intent *IntentService,
	sessions *session.Store,
	defaultMaxResults, minOptions, maxOptions int,
) *ConversationService {
	if defaultMaxResults <= 0 {
		defaultMaxResults = 5
	}
	if minOptions <= 0 {
		minOptions = 2
	}
	if maxOptions <= 0 {
		maxOptions = 5
	}
	return &ConversationService{
		search:            search,
		question:          question,
		intent:            intent,
		sessions:          sessions,
		defaultMaxResults: defaultMaxResults,
		minOptions:        minOptions,
		maxOptions:        maxOptions,
	}
}

// HandleTurn 处理一轮对话，返回给用户的响应。
// 普通的“无结果”也走正常响应，绝不对用户抛 5xx。
func (c *ConversationService) HandleTurn(ctx context.Context, req *model.ChatRequest) *model.ChatResponse {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return &model.ChatResponse{
			Message:   "请输入您要查找的资料关键词，例如：东风天龙 仪表电路图。",
			SessionID: sessionID,
		}
	}

	state := c.sessions.GetOrCreate(sessionID)
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = c.defaultMaxResults
	}

	var resp *model.ChatResponse
	switch {
	case isPhrase(message, undoPhrases):
		resp = c.handleUndo(state, sessionID)
	case isPhrase(message, restartPhrases):
		state.Clear()
		resp = &model.ChatResponse{
			Message:   "好的，已经重置会话。请输入新的查询。",
			SessionID: sessionID,
		}
	case state.State == model.StateNeedsChoice:
		resp = c.handleChoice(ctx, state, sessionID, message, maxResults)
	case state.State == model.StateNeedsConfirm:
		resp = c.handleConfirm(ctx, state, sessionID, message, req.Logic, maxResults)
	default:
		resp = c.handleNewQuery(ctx, state, sessionID, message, req.Logic, maxResults)
	}

	c.sessions.Touch(sessionID, state)
	return resp
}

// handleUndo 返回上一步。恢复动作本身不进消息历史。
func (c *ConversationService) handleUndo(state *model.ConversationState, sessionID string) *model.ChatResponse {
	if !state.Undo() {
		return &model.ChatResponse{
			Message:   "当前没有可以返回的步骤。",
			SessionID: sessionID,
		}
	}
	log.Infof("[ConversationService] 会话 %s 返回上一步，状态 %s", sessionID, state.State)

	if state.State == model.StateNeedsChoice && len(state.CurrentOptions) > 0 {
		q := &model.Question{
			Question: fmt.Sprintf("已返回上一步。找到了 %d 个相关结果。请选择：", len(state.SearchResults)),
			Options:  state.CurrentOptions,
			Type:     state.OptionType,
		}
		return &model.ChatResponse{
			Message:     FormatQuestionMessage(q),
			Options:     state.CurrentOptions,
			NeedsChoice: true,
			SessionID:   sessionID,
		}
	}
	return &model.ChatResponse{
		Message:   "已返回上一步。请继续输入。",
		SessionID: sessionID,
	}
}

// handleNewQuery 新查询：AND 搜索，必要时 OR 兜底或进入放宽确认。
func (c *ConversationService) handleNewQuery(ctx context.Context, state *model.ConversationState, sessionID, message, logic string, maxResults int) *model.ChatResponse {
	state.Clear()
	state.State = model.StateSearching
	state.CurrentQuery = message
	state.AddMessage("user", message)

	intent := c.intent.ParseIntent(ctx, message)
	state.Intent = intent

	terms := c.search.Extractor().Extract(message)
	andResults := c.search.Deduplicate(c.search.Search(message, "AND", 0, intent))
	log.Infof("[ConversationService] 会话 %s 查询 %q，AND 命中 %d 条", sessionID, message, len(andResults))

	// 显式 OR 或单关键词查询的 OR 兜底
	if strings.EqualFold(logic, "OR") || (len(andResults) == 0 && len(terms) <= 1) {
		orResults := c.search.Deduplicate(c.search.Search(message, "OR", 0, intent))
		if len(orResults) > 0 {
			return c.finishWithCandidates(ctx, state, sessionID, orResults, maxResults)
		}
		return c.finishNoResults(state, sessionID)
	}

	gate := c.search.StrictFilenameStats(terms)
	if len(andResults) > 0 && gate.AndCount > 0 {
		return c.finishWithCandidates(ctx, state, sessionID, andResults, maxResults)
	}

	// 严格文件名门控失败：尝试放宽搜索，成功则请用户确认
	var forceRemove []string
	for _, t := range terms {
		if gate.TermCounts[t] == 0 {
			forceRemove = append(forceRemove, t)
		}
	}
	relaxed, meta := c.search.SearchAndRelax(message, 0, intent, forceRemove)

	if len(relaxed) == 0 {
		if len(andResults) > 0 {
			// 放宽也没有更好的结果，接受层级命中的 AND 结果
			return c.finishWithCandidates(ctx, state, sessionID, andResults, maxResults)
		}
		return c.finishNoResults(state, sessionID)
	}

	if len(meta.RemovedTerms) == 0 && len(meta.Substitutions) == 0 {
		// 没有丢词也没有替换，不需要确认
		candidates := relaxed
		if len(andResults) > 0 {
			candidates = andResults
		}
		return c.finishWithCandidates(ctx, state, sessionID, candidates, maxResults)
	}

	state.State = model.StateNeedsConfirm
	state.PendingResults = relaxed
	state.RelaxMeta = meta

	msg := c.relaxConfirmMessage(meta, len(relaxed))
	state.AddMessage("assistant", msg)
	return &model.ChatResponse{
		Message:   msg,
		SessionID: sessionID,
	}
}

// relaxConfirmMessage 放宽确认的提示文案。
func (c *ConversationService) relaxConfirmMessage(meta *model.RelaxMeta, count int) string {
	var parts []string
	if len(meta.RemovedTerms) > 0 {
		parts = append(parts, fmt.Sprintf("去掉了关键词「%s」", strings.Join(meta.RemovedTerms, "、")))
	}
	for from, to := range meta.Substitutions {
		parts = append(parts, fmt.Sprintf("把「%s」放宽为「%s」", from, to))
	}
	return fmt.Sprintf(
		"没有找到同时满足全部关键词的资料。%s后找到 %d 条相关资料，是否查看？（回复：是 / 否）",
		strings.Join(parts, "，"), count,
	)
}

// handleConfirm 放宽确认回复。肯定则原样采用暂存的放宽候选集，
// 绝不重新执行更宽的搜索；否定则结束；其它输入按新查询处理。
func (c *ConversationService) handleConfirm(ctx context.Context, state *model.ConversationState, sessionID, message, logic string, maxResults int) *model.ChatResponse {
	reply := strings.ToLower(strings.TrimRight(strings.TrimSpace(message), "。.!！"))

	if _, ok := affirmativeReplies[reply]; ok {
		state.SaveSnapshot()
		state.AddMessage("user", message)
		pending := state.PendingResults
		state.PendingResults = nil
		return c.finishWithCandidates(ctx, state, sessionID, pending, maxResults)
	}
	if _, ok := negativeReplies[reply]; ok {
		state.AddMessage("user", message)
		state.State = model.StateCompleted
		state.PendingResults = nil
		msg := "好的。您可以换一些关键词再试，比如减少限定词或使用更通用的说法。"
		state.AddMessage("assistant", msg)
		return &model.ChatResponse{Message: msg, SessionID: sessionID}
	}

	// 答非所问按新查询处理
	return c.handleNewQuery(ctx, state, sessionID, message, logic, maxResults)
}

// handleChoice 选择题回复。命中选项时按选项存的精确 id 集过滤，
// 绝不按自由文本重新搜索；识别不了则停在原地重新展示选项。
func (c *ConversationService) handleChoice(ctx context.Context, state *model.ConversationState, sessionID, message string, maxResults int) *model.ChatResponse {
	opt := ParseUserChoice(message, state.CurrentOptions)
	if opt == nil {
		q := &model.Question{
			Question: "未能识别您的选择，请重新选择：",
			Options:  state.CurrentOptions,
			Type:     state.OptionType,
		}
		return &model.ChatResponse{
			Message:     FormatQuestionMessage(q),
			Options:     state.CurrentOptions,
			NeedsChoice: true,
			SessionID:   sessionID,
		}
	}

	state.SaveSnapshot()
	state.AddMessage("user", message)

	prevCount := len(state.SearchResults)
	filtered := c.applySelection(state, opt)

	// 选择后的候选数绝不允许变多
	if len(filtered) > prevCount {
		log.Errorf("[ConversationService] 会话 %s 选择 %q 后候选从 %d 增至 %d，回退为较宽集合", sessionID, opt.Name, prevCount, len(filtered))
		filtered = state.SearchResults
	}

	state.AskedDims = append(state.AskedDims, model.AskedDimension{Type: opt.Type, Value: opt.Name})
	log.Infof("[ConversationService] 会话 %s 选择 %s(%s)，候选 %d -> %d", sessionID, opt.Label, opt.Name, prevCount, len(filtered))

	return c.finishWithCandidates(ctx, state, sessionID, filtered, maxResults)
}

// applySelection 应用一次选择：优先用选项的精确 id 集合过滤。
// 选项缺 ids 属于内部缺陷，记错误日志后走层级筛选兜底，
// 兜底也筛不出来时保留较宽集合而不是清空状态。
func (c *ConversationService) applySelection(state *model.ConversationState, opt *model.Option) []*model.ScoredResult {
	if len(opt.IDs) > 0 {
		wanted := make(map[int]struct{}, len(opt.IDs))
		for _, id := range opt.IDs {
			wanted[id] = struct{}{}
		}
		var filtered []*model.ScoredResult
		for _, r := range state.SearchResults {
			if _, ok := wanted[r.Document.ID]; ok {
				filtered = append(filtered, r)
			}
		}
		return filtered
	}

	log.Errorf("[ConversationService] 选项 %q(%s) 缺少 id 集合，走层级筛选兜底", opt.Name, opt.Type)
	f := HierarchyFilter{}
	switch opt.Type {
	case model.DimensionBrand:
		f.Brand = opt.Name
	case model.DimensionModel, model.DimensionVariant:
		f.Model = opt.Name
	case model.DimensionType:
		f.DiagramType = opt.Name
	case model.DimensionCategory:
		f.VehicleCategory = opt.Name
	default:
		f.Model = opt.Name
	}
	filtered := FilterByHierarchy(state.SearchResults, f)
	if len(filtered) == 0 {
		return state.SearchResults
	}
	return filtered
}

// finishWithCandidates 搜索/选择/确认之后的统一收尾：
// 候选不超过阈值直接返回结果，否则出下一道选择题。
func (c *ConversationService) finishWithCandidates(ctx context.Context, state *model.ConversationState, sessionID string, candidates []*model.ScoredResult, maxResults int) *model.ChatResponse {
	candidates = c.search.Deduplicate(candidates)
	state.SearchResults = candidates

	if len(candidates) == 0 {
		return c.finishNoResults(state, sessionID)
	}

	if len(candidates) <= maxResults {
		state.State = model.StateCompleted
		state.CurrentOptions = nil
		msg := fmt.Sprintf("为您找到 %d 条相关资料：", len(candidates))
		state.AddMessage("assistant", msg)
		return &model.ChatResponse{
			Message:   msg,
			Results:   model.NewResultItems(candidates),
			SessionID: sessionID,
		}
	}

	q := c.question.GenerateQuestion(ctx, candidates, state.CurrentQuery, c.minOptions, c.maxOptions, state.AskedDims)
	if q == nil {
		// 出不了区分度更高的问题，返回评分靠前的结果
		state.State = model.StateCompleted
		state.CurrentOptions = nil
		top := candidates
		if len(top) > maxResults {
			top = top[:maxResults]
		}
		msg := fmt.Sprintf("共找到 %d 条相关资料，为您展示评分最高的 %d 条：", len(candidates), len(top))
		state.AddMessage("assistant", msg)
		return &model.ChatResponse{
			Message:   msg,
			Results:   model.NewResultItems(top),
			SessionID: sessionID,
		}
	}

	state.State = model.StateNeedsChoice
	state.CurrentOptions = q.Options
	state.OptionType = q.Type

	msg := FormatQuestionMessage(q)
	state.AddMessage("assistant", msg)
	return &model.ChatResponse{
		Message:     msg,
		Options:     q.Options,
		NeedsChoice: true,
		SessionID:   sessionID,
	}
}

// finishNoResults 无结果收尾。
func (c *ConversationService) finishNoResults(state *model.ConversationState, sessionID string) *model.ChatResponse {
	state.State = model.StateCompleted
	state.CurrentOptions = nil
	msg := "没有找到相关资料。建议减少关键词数量，或换用更通用的说法再试一次。"
	state.AddMessage("assistant", msg)
	return &model.ChatResponse{Message: msg, SessionID: sessionID}
}

func isPhrase(message string, phrases []string) bool {
	m := strings.TrimRight(strings.TrimSpace(message), "。.!！")
	for _, p := range phrases {
		if m == p {
			return true
		}
	}
	return false
}
