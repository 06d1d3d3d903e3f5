package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zcradar/zcradar/internal/infrastructure/llm"
)

// ProviderLister 查询已注册 LLM Provider 的运行状态
type ProviderLister interface {
	ListProviders(ctx context.Context) []llm.ProviderStatus
}

// ProviderHandler LLM Provider 状态查询接口
type ProviderHandler struct {
	providers ProviderLister
}

func NewProviderHandler(providers ProviderLister) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// List 返回全部 Provider 的可用性、熔断状态与调用统计
func (h *ProviderHandler) List(c *gin.Context) {
	status := h.providers.ListProviders(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"providers": status,
		"total":     len(status),
	})
}
