package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/repository"
)

// ReportHandler 汇总报告查询接口
type ReportHandler struct {
	reports repository.ReportRepository
	results repository.ResultRepository
	logger  *zap.Logger
}

func NewReportHandler(reports repository.ReportRepository, results repository.ResultRepository, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		results: results,
		logger:  logger,
	}
}

// Latest 最新一份报告
func (h *ReportHandler) Latest(c *gin.Context) {
	report, err := h.reports.FindLatest(c.Request.Context())
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Get 按ID查询报告
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.FindByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Results 报告对应批次的全部采集条目
func (h *ReportHandler) Results(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.FindByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	items, err := h.results.FindByBatch(c.Request.Context(), report.BatchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report_id": report.ID,
		"batch_id":  report.BatchID,
		"results":   items,
		"total":     len(items),
	})
}
