package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/internal/infrastructure/persistence/models"
	domainErrors "github.com/zcradar/zcradar/pkg/errors"
)

// GormTaskRepository GORM 实现的任务仓储
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository 创建 GORM 任务仓储
func NewGormTaskRepository(db *gorm.DB) repository.TaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByID 根据ID查找任务
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint) (*entity.CrawlTask, error) {
	var model models.TaskModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("task not found")
		}
		return nil, domainErrors.NewInternalError("failed to find task: " + err.Error())
	}
	return taskToEntity(&model), nil
}

// FindByBatch 查找批次内的全部任务
func (r *GormTaskRepository) FindByBatch(ctx context.Context, batchID string) ([]*entity.CrawlTask, error) {
	var modelList []models.TaskModel
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("id").Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find batch tasks: " + err.Error())
	}
	return tasksToEntities(modelList), nil
}

// FindRecent 按创建时间倒序查找最近的任务
func (r *GormTaskRepository) FindRecent(ctx context.Context, limit int) ([]*entity.CrawlTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var modelList []models.TaskModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find recent tasks: " + err.Error())
	}
	return tasksToEntities(modelList), nil
}

// Save 保存任务（创建或更新）
func (r *GormTaskRepository) Save(ctx context.Context, task *entity.CrawlTask) error {
	model := taskToModel(task)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save task: " + err.Error())
	}
	task.ID = model.ID
	return nil
}

// 转换方法

func taskToModel(task *entity.CrawlTask) *models.TaskModel {
	return &models.TaskModel{
		ID:          task.ID,
		BatchID:     task.BatchID,
		SourceID:    task.SourceID,
		SourceName:  task.SourceName,
		Trigger:     string(task.Trigger),
		Status:      string(task.Status),
		ItemCount:   task.ItemCount,
		ErrorMsg:    task.ErrorMsg,
		ProgressLog: task.ProgressLog,
		StartedAt:   task.StartedAt,
		FinishedAt:  task.FinishedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func taskToEntity(model *models.TaskModel) *entity.CrawlTask {
	return &entity.CrawlTask{
		ID:          model.ID,
		BatchID:     model.BatchID,
		SourceID:    model.SourceID,
		SourceName:  model.SourceName,
		Trigger:     entity.TriggerKind(model.Trigger),
		Status:      entity.TaskStatus(model.Status),
		ItemCount:   model.ItemCount,
		ErrorMsg:    model.ErrorMsg,
		ProgressLog: model.ProgressLog,
		StartedAt:   model.StartedAt,
		FinishedAt:  model.FinishedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func tasksToEntities(modelList []models.TaskModel) []*entity.CrawlTask {
	tasks := make([]*entity.CrawlTask, 0, len(modelList))
	for i := range modelList {
		tasks = append(tasks, taskToEntity(&modelList[i]))
	}
	return tasks
}
