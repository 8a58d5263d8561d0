package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"circuit-nav-go/internal/catalog"
)

// HealthHandler 健康检查。
type HealthHandler struct {
	catalog *catalog.Catalog
}

// NewHealthHandler 创建健康检查处理器。
func NewHealthHandler(cat *catalog.Catalog) *HealthHandler {
	return &HealthHandler{catalog: cat}
}

// Health 返回服务状态与目录规模。
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("服务运行正常，已加载 %d 条电路图数据", h.catalog.Size()),
	})
}
