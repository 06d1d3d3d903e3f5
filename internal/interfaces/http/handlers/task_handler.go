package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/internal/domain/service"
	"github.com/zcradar/zcradar/pkg/safego"
)

// TaskHandler 采集任务接口：触发、查询、取消
type TaskHandler struct {
	tasks  repository.TaskRepository
	runner *service.BatchRunner
	logger *zap.Logger
}

func NewTaskHandler(tasks repository.TaskRepository, runner *service.BatchRunner, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		runner: runner,
		logger: logger,
	}
}

type TriggerRequest struct {
	SourceIDs   []uint `json:"source_ids"`   // 空=全部启用的源
	TriggerKind string `json:"trigger_kind"` // manual | scheduled，空=manual
}

// Trigger 触发一个采集批次。批次在后台执行，接口立即返回
func (h *TaskHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trigger, ok := entity.ParseTriggerKind(req.TriggerKind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trigger_kind 只能是 manual 或 scheduled"})
		return
	}

	batchID := service.NewBatchID()
	safego.Go(h.logger, "api-batch", func() {
		// 批次生命周期长于 HTTP 请求，用独立上下文
		if _, err := h.runner.RunBatchAs(context.Background(), batchID, req.SourceIDs, trigger); err != nil {
			h.logger.Error("Triggered batch failed", zap.String("batch_id", batchID), zap.Error(err))
		}
	})

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "started",
		"batch_id": batchID,
		"message":  "采集任务已启动",
	})
}

// List 按创建时间倒序列出最近的任务
func (h *TaskHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	tasks, err := h.tasks.FindRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// Batch 查询批次内的全部任务
func (h *TaskHandler) Batch(c *gin.Context) {
	batchID := c.Param("batch_id")
	tasks, err := h.tasks.FindByBatch(c.Request.Context(), batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": batchID, "tasks": tasks})
}

// Running 返回正在采集中的源ID
func (h *TaskHandler) Running(c *gin.Context) {
	ids := h.runner.RunningSources()
	c.JSON(http.StatusOK, gin.H{
		"running":    len(ids) > 0,
		"source_ids": ids,
	})
}

// Progress 查询单个任务的执行进度
func (h *TaskHandler) Progress(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.FindByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":      task.ID,
		"status":       task.Status,
		"source_name":  task.SourceName,
		"item_count":   task.ItemCount,
		"error":        task.ErrorMsg,
		"progress_log": task.ProgressLog,
	})
}

// Cancel 取消单个执行中的任务
func (h *TaskHandler) Cancel(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if !h.runner.RequestCancel(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "task is not running"})
		return
	}
	h.logger.Info("Task cancel requested", zap.Uint("task_id", id))
	c.JSON(http.StatusOK, gin.H{"cancelled": id})
}

// CancelBatch 取消批次内所有执行中的任务
func (h *TaskHandler) CancelBatch(c *gin.Context) {
	batchID := c.Param("batch_id")
	n, err := h.runner.CancelBatch(c.Request.Context(), batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": batchID, "cancelled": n})
}
