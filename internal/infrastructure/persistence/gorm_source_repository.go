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

// GormSourceRepository GORM 实现的监控源仓储
type GormSourceRepository struct {
	db *gorm.DB
}

// NewGormSourceRepository 创建 GORM 监控源仓储
func NewGormSourceRepository(db *gorm.DB) repository.SourceRepository {
	return &GormSourceRepository{db: db}
}

// FindByID 根据ID查找监控源
func (r *GormSourceRepository) FindByID(ctx context.Context, id uint) (*entity.MonitorSource, error) {
	var model models.SourceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("source not found")
		}
		return nil, domainErrors.NewInternalError("failed to find source: " + err.Error())
	}
	return sourceToEntity(&model), nil
}

// FindByIDs 批量查找监控源
func (r *GormSourceRepository) FindByIDs(ctx context.Context, ids []uint) ([]*entity.MonitorSource, error) {
	var modelList []models.SourceModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find sources: " + err.Error())
	}
	return sourcesToEntities(modelList), nil
}

// FindEnabled 查找所有启用的监控源
func (r *GormSourceRepository) FindEnabled(ctx context.Context) ([]*entity.MonitorSource, error) {
	var modelList []models.SourceModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find enabled sources: " + err.Error())
	}
	return sourcesToEntities(modelList), nil
}

// FindAll 查找所有监控源
func (r *GormSourceRepository) FindAll(ctx context.Context) ([]*entity.MonitorSource, error) {
	var modelList []models.SourceModel
	if err := r.db.WithContext(ctx).Order("id").Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find sources: " + err.Error())
	}
	return sourcesToEntities(modelList), nil
}

// Save 保存监控源（创建或更新）
func (r *GormSourceRepository) Save(ctx context.Context, source *entity.MonitorSource) error {
	model := sourceToModel(source)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save source: " + err.Error())
	}
	source.ID = model.ID
	return nil
}

// Delete 删除监控源
func (r *GormSourceRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SourceModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete source: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("source not found")
	}
	return nil
}

// 转换方法

func sourceToModel(source *entity.MonitorSource) *models.SourceModel {
	return &models.SourceModel{
		ID:               source.ID,
		Name:             source.Name,
		URL:              source.URL,
		Enabled:          source.Enabled,
		MaxItems:         source.MaxItems,
		WindowDays:       source.WindowDays,
		AllowCrossDomain: source.AllowCrossDomain,
		Remark:           source.Remark,
		CreatedAt:        source.CreatedAt,
		UpdatedAt:        source.UpdatedAt,
	}
}

func sourceToEntity(model *models.SourceModel) *entity.MonitorSource {
	return &entity.MonitorSource{
		ID:               model.ID,
		Name:             model.Name,
		URL:              model.URL,
		Enabled:          model.Enabled,
		MaxItems:         model.MaxItems,
		WindowDays:       model.WindowDays,
		AllowCrossDomain: model.AllowCrossDomain,
		Remark:           model.Remark,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func sourcesToEntities(modelList []models.SourceModel) []*entity.MonitorSource {
	sources := make([]*entity.MonitorSource, 0, len(modelList))
	for i := range modelList {
		sources = append(sources, sourceToEntity(&modelList[i]))
	}
	return sources
}
