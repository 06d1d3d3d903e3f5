package repository

import (
	"context"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// TaskRepository 采集任务仓储接口
type TaskRepository interface {
	// FindByID 根据ID查找任务
	FindByID(ctx context.Context, id uint) (*entity.CrawlTask, error)

	// FindByBatch 查找批次内的全部任务
	FindByBatch(ctx context.Context, batchID string) ([]*entity.CrawlTask, error)

	// FindRecent 按创建时间倒序查找最近的任务
	FindRecent(ctx context.Context, limit int) ([]*entity.CrawlTask, error)

	// Save 保存任务（创建或更新）
	Save(ctx context.Context, task *entity.CrawlTask) error
}

// ResultRepository 采集结果仓储接口
type ResultRepository interface {
	// SaveBatch 批量写入一个任务的全部结果（任务结束时一次性落库）
	SaveBatch(ctx context.Context, items []*entity.ArticleItem) error

	// FindByTask 查找任务的全部结果（按 rank 升序）
	FindByTask(ctx context.Context, taskID uint) ([]*entity.ArticleItem, error)

	// FindByBatch 查找批次的全部结果（按源分组、rank 升序）
	FindByBatch(ctx context.Context, batchID string) ([]*entity.ArticleItem, error)

	// ExistingURLs 返回指定源近期已采集过的 URL 集合，用于跨任务去重
	ExistingURLs(ctx context.Context, sourceID uint, days int) (map[string]bool, error)
}

// ReportRepository 报告仓储接口
type ReportRepository interface {
	// Save 保存报告
	Save(ctx context.Context, report *entity.Report) error

	// FindByID 根据ID查找报告
	FindByID(ctx context.Context, id uint) (*entity.Report, error)

	// FindLatest 查找最新报告
	FindLatest(ctx context.Context) (*entity.Report, error)
}
