package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/service"
	"github.com/zcradar/zcradar/internal/infrastructure/config"
)

// Engine 按配置的推送渠道分发批次报告
type Engine struct {
	email    *EmailSender
	telegram *TelegramSender
	cfg      config.NotifyConfig
	logger   *zap.Logger
}

var _ service.Notifier = (*Engine)(nil)

// NewEngine 创建通知引擎
func NewEngine(cfg config.NotifyConfig, logger *zap.Logger) *Engine {
	return &Engine{
		email:    NewEmailSender(cfg.Email, logger),
		telegram: NewTelegramSender(cfg.Telegram, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// DispatchReport 推送报告到所有启用且配置齐全的渠道。
// 推送失败只记日志，不影响批次结果落库。
func (e *Engine) DispatchReport(ctx context.Context, report *entity.Report, items []*entity.ArticleItem) {
	if report == nil {
		return
	}
	if ctx.Err() != nil {
		e.logger.Warn("Dispatch skipped, context done", zap.String("batch_id", report.BatchID))
		return
	}

	dispatched := 0

	if e.cfg.Email.Enabled {
		if !e.email.Configured() {
			e.logger.Warn("Email channel enabled but not configured, skipping")
		} else if err := e.email.Send(report.Title, report.HTML, report.Text); err != nil {
			e.logger.Error("Email dispatch failed",
				zap.String("batch_id", report.BatchID),
				zap.Error(err),
			)
		} else {
			e.logger.Info("Report emailed",
				zap.String("batch_id", report.BatchID),
				zap.Int("recipients", len(e.cfg.Email.Recipients)),
				zap.Int("items", len(items)),
			)
			dispatched++
		}
	}

	if e.cfg.Telegram.Enabled {
		if !e.telegram.Configured() {
			e.logger.Warn("Telegram channel enabled but not configured, skipping")
		} else if err := e.telegram.Send(report.Title + "\n\n" + report.Text); err != nil {
			e.logger.Error("Telegram dispatch failed",
				zap.String("batch_id", report.BatchID),
				zap.Error(err),
			)
		} else {
			e.logger.Info("Report pushed to telegram",
				zap.String("batch_id", report.BatchID),
				zap.Int("chats", len(e.cfg.Telegram.ChatIDs)),
			)
			dispatched++
		}
	}

	if dispatched == 0 {
		e.logger.Info("No notify channel delivered the report", zap.String("batch_id", report.BatchID))
	}
}
