package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/service"
)

// Scheduler 按固定间隔触发全量采集批次
type Scheduler struct {
	runner   *service.BatchRunner
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler 创建定时调度器，interval 不足 1 分钟时按 1 分钟处理
func NewScheduler(runner *service.BatchRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run 阻塞运行调度循环直到 ctx 取消。
// 批次串行执行，上一批没跑完不会叠加触发（正在执行的源会被批次自身跳过）。
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.logger.Info("Scheduled crawl triggered")
			batchID, err := s.runner.RunBatch(ctx, nil, entity.TriggerScheduled)
			if err != nil {
				s.logger.Error("Scheduled batch failed",
					zap.String("batch_id", batchID),
					zap.Error(err),
				)
			}
		}
	}
}
