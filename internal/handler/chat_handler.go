// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"circuit-nav-go/internal/model"
	"circuit-nav-go/internal/service"
	"circuit-nav-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理聊天请求（HTTP 与 WebSocket 两种入口）。
type ChatHandler struct {
	conversation *service.ConversationService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(conversation *service.ConversationService) *ChatHandler {
	return &ChatHandler{conversation: conversation}
}

// Chat 处理一轮 HTTP 聊天请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数: " + err.Error()})
		return
	}

	resp := h.conversation.HandleTurn(c.Request.Context(), &req)
	c.JSON(http.StatusOK, resp)
}

// HandleWS 处理 WebSocket 聊天连接：每个文本帧是一个聊天请求 JSON
// （或一条裸消息文本），每条回复帧是对应的响应 JSON。
func (h *ChatHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立: %s", c.ClientIP())

	// 同一连接内的各轮共享会话 id
	sessionID := ""
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("WebSocket 读取失败: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req model.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Message) == "" {
			// 兼容直接发送纯文本消息
			req = model.ChatRequest{Message: string(data)}
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		resp := h.conversation.HandleTurn(c.Request.Context(), &req)
		sessionID = resp.SessionID

		if err := conn.WriteJSON(resp); err != nil {
			log.Warnf("WebSocket 写入失败: %v", err)
			return
		}
	}
}
