package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/internal/session"
)

func newTestConversationService(t *testing.T, docs []*model.Document) *ConversationService {
	t.Helper()
	search := newTestSearchService(t, docs)
	question := NewQuestionService(nil, DefaultCategoryPatterns())
	intent := NewIntentService(nil, search.Extractor())
	store := session.New(time.Duration(0))
	return NewConversationService(search, question, intent, store, 5, 2, 5)
}

func chat(t *testing.T, c *ConversationService, sessionID, message string) *model.ChatResponse {
	t.Helper()
	resp := c.HandleTurn(context.Background(), &model.ChatRequest{
		Message:   message,
		SessionID: sessionID,
	})
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func TestHandleTurnMintsSessionID(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := c.HandleTurn(context.Background(), &model.ChatRequest{Message: "东风天龙 仪表图"})
	assert.NotEmpty(t, resp.SessionID)

	// 空消息也要带回会话 id，方便客户端续聊
	resp = c.HandleTurn(context.Background(), &model.ChatRequest{Message: "   "})
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Message, "请输入")
}

func TestHandleTurnDirectResult(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s1", "东风天龙 仪表图")
	assert.False(t, resp.NeedsChoice)
	require.NotEmpty(t, resp.Results)
	assert.LessOrEqual(t, len(resp.Results), 5)

	for _, item := range resp.Results {
		assert.NotEqual(t, 2, item.ID) // 天锦不满足 AND
	}
}

func TestHandleTurnChoiceFlow(t *testing.T) {
	c := newTestConversationService(t, nil)

	// 7 条命中超过阈值，进入选择题（型号维度，4 个型号 + 其他）
	resp := chat(t, c, "s2", "东风 仪表图")
	require.True(t, resp.NeedsChoice)
	require.Len(t, resp.Options, 5)
	assert.Equal(t, otherBucketName, resp.Options[4].Name)

	// 选择精确按选项存的 id 集过滤，绝不重新搜索
	resp = chat(t, c, "s2", "A")
	assert.False(t, resp.NeedsChoice)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "东风_天龙_仪表电路图.docx", resp.Results[0].FileName)
}

func TestHandleTurnChoiceByOtherBucket(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s3", "东风 仪表图")
	require.True(t, resp.NeedsChoice)

	resp = chat(t, c, "s3", "其他")
	assert.False(t, resp.NeedsChoice)
	assert.Len(t, resp.Results, 3)
}

func TestHandleTurnUnrecognizedChoiceStays(t *testing.T) {
	c := newTestConversationService(t, nil)

	first := chat(t, c, "s4", "东风 仪表图")
	require.True(t, first.NeedsChoice)

	resp := chat(t, c, "s4", "随便看看吧")
	assert.True(t, resp.NeedsChoice)
	assert.Contains(t, resp.Message, "未能识别")
	assert.Equal(t, len(first.Options), len(resp.Options))

	// 状态没有被破坏，仍可正常选择
	resp = chat(t, c, "s4", "A")
	assert.False(t, resp.NeedsChoice)
	assert.NotEmpty(t, resp.Results)
}

func TestHandleTurnUndo(t *testing.T) {
	c := newTestConversationService(t, nil)

	first := chat(t, c, "s5", "东风 仪表图")
	require.True(t, first.NeedsChoice)

	resp := chat(t, c, "s5", "A")
	require.NotEmpty(t, resp.Results)

	// 返回上一步后重新展示同一批选项
	resp = chat(t, c, "s5", "上一步")
	assert.True(t, resp.NeedsChoice)
	assert.Len(t, resp.Options, len(first.Options))
	assert.Contains(t, resp.Message, "已返回上一步")

	// 可以改选其它选项
	resp = chat(t, c, "s5", "B")
	assert.False(t, resp.NeedsChoice)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.Results[0].ID)
}

func TestHandleTurnUndoWithoutHistory(t *testing.T) {
	c := newTestConversationService(t, nil)
	resp := chat(t, c, "s6", "上一步")
	assert.Contains(t, resp.Message, "没有可以返回的步骤")
}

func TestHandleTurnRestart(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s7", "东风 仪表图")
	require.True(t, resp.NeedsChoice)

	resp = chat(t, c, "s7", "重新搜索")
	assert.Contains(t, resp.Message, "重置会话")
	assert.False(t, resp.NeedsChoice)

	// 重置后的输入按新查询处理
	resp = chat(t, c, "s7", "东风天龙 仪表图")
	assert.NotEmpty(t, resp.Results)
}

func TestHandleTurnRelaxConfirmFlow(t *testing.T) {
	c := newTestConversationService(t, nil)

	// VGT 零命中触发放宽确认
	resp := chat(t, c, "s8", "VGT 仪表图")
	assert.False(t, resp.NeedsChoice)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Message, "VGT")
	assert.Contains(t, resp.Message, "是否查看")

	// 肯定回复原样采用暂存的放宽候选集
	resp = chat(t, c, "s8", "是")
	assert.True(t, resp.NeedsChoice)
	require.NotEmpty(t, resp.Options)
}

func TestHandleTurnRelaxConfirmDecline(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s9", "VGT 仪表图")
	require.Contains(t, resp.Message, "是否查看")

	resp = chat(t, c, "s9", "不用。")
	assert.False(t, resp.NeedsChoice)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Message, "换一些关键词")
}

func TestHandleTurnConfirmWithNewQuery(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s10", "VGT 仪表图")
	require.Contains(t, resp.Message, "是否查看")

	// 答非所问按新查询处理
	resp = chat(t, c, "s10", "东风天龙 仪表图")
	assert.NotEmpty(t, resp.Results)
}

func TestHandleTurnNoResults(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s11", "不存在的品牌XYZWQ")
	assert.Empty(t, resp.Results)
	assert.False(t, resp.NeedsChoice)
	assert.Contains(t, resp.Message, "没有找到")
}

func TestHandleTurnExplicitOrLogic(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := c.HandleTurn(context.Background(), &model.ChatRequest{
		Message:   "仪表图 SY60",
		SessionID: "s12",
		Logic:     "OR",
	})
	require.NotNil(t, resp)

	// OR 模式下两个词各自的命中都进入候选，候选多时转为选择题
	require.True(t, resp.NeedsChoice)
	union := optionIDUnion(resp.Options)
	assert.Contains(t, union, 2) // 仪表图 命中
	assert.Contains(t, union, 8) // SY60 命中
}

func TestHandleTurnSelectionNeverGrows(t *testing.T) {
	c := newTestConversationService(t, nil)

	resp := chat(t, c, "s13", "东风 仪表图")
	require.True(t, resp.NeedsChoice)
	before := 7

	for _, opt := range resp.Options {
		assert.LessOrEqual(t, opt.Count, before)
		assert.LessOrEqual(t, len(opt.IDs), before)
	}

	resp = chat(t, c, "s13", resp.Options[0].Label)
	assert.LessOrEqual(t, len(resp.Results), before)
}
