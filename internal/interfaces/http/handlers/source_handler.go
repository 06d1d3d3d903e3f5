package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/internal/domain/service"
	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

// SourceHandler 监控源管理接口
type SourceHandler struct {
	sources repository.SourceRepository
	runner  *service.BatchRunner
	logger  *zap.Logger
}

func NewSourceHandler(sources repository.SourceRepository, runner *service.BatchRunner, logger *zap.Logger) *SourceHandler {
	return &SourceHandler{
		sources: sources,
		runner:  runner,
		logger:  logger,
	}
}

type SourceRequest struct {
	Name             string `json:"name" binding:"required"`
	URL              string `json:"url" binding:"required"`
	Enabled          *bool  `json:"enabled"`
	MaxItems         int    `json:"max_items"`
	WindowDays       int    `json:"window_days"`
	AllowCrossDomain bool   `json:"allow_cross_domain"`
	Remark           string `json:"remark"`
}

// List 列出全部监控源
func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

// Get 查询单个监控源
func (h *SourceHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	source, err := h.sources.FindByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// Create 创建监控源
func (h *SourceHandler) Create(c *gin.Context) {
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	source := &entity.MonitorSource{
		Name:             req.Name,
		URL:              req.URL,
		Enabled:          enabled,
		MaxItems:         req.MaxItems,
		WindowDays:       req.WindowDays,
		AllowCrossDomain: req.AllowCrossDomain,
		Remark:           req.Remark,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := h.sources.Save(c.Request.Context(), source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Source created", zap.Uint("id", source.ID), zap.String("name", source.Name))
	c.JSON(http.StatusCreated, source)
}

// Update 更新监控源
func (h *SourceHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source, err := h.sources.FindByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	source.Name = req.Name
	source.URL = req.URL
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
	source.MaxItems = req.MaxItems
	source.WindowDays = req.WindowDays
	source.AllowCrossDomain = req.AllowCrossDomain
	source.Remark = req.Remark
	source.UpdatedAt = time.Now()

	if err := h.sources.Save(c.Request.Context(), source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, source)
}

// Delete 删除监控源，采集中的源不可删除
func (h *SourceHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if h.runner != nil && h.runner.IsSourceRunning(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "source is being crawled, cancel the task first"})
		return
	}
	if err := h.sources.Delete(c.Request.Context(), id); err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// parseUintParam 解析路径中的数字ID，失败时直接写 400 响应
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// respondRepoError 仓储错误映射为 HTTP 状态码
func respondRepoError(c *gin.Context, err error) {
	if apperrors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
