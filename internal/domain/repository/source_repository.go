package repository

import (
	"context"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// SourceRepository 监控源仓储接口（遵循依赖倒置原则）
// 定义在领域层，实现在基础设施层
type SourceRepository interface {
	// FindByID 根据ID查找监控源
	FindByID(ctx context.Context, id uint) (*entity.MonitorSource, error)

	// FindByIDs 批量查找监控源
	FindByIDs(ctx context.Context, ids []uint) ([]*entity.MonitorSource, error)

	// FindEnabled 查找所有启用的监控源
	FindEnabled(ctx context.Context) ([]*entity.MonitorSource, error)

	// FindAll 查找所有监控源
	FindAll(ctx context.Context) ([]*entity.MonitorSource, error)

	// Save 保存监控源（创建或更新）
	Save(ctx context.Context, source *entity.MonitorSource) error

	// Delete 删除监控源
	Delete(ctx context.Context, id uint) error
}
