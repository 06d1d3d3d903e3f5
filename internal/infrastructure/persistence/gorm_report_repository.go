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

// GormReportRepository GORM 实现的报告仓储
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository 创建 GORM 报告仓储
func NewGormReportRepository(db *gorm.DB) repository.ReportRepository {
	return &GormReportRepository{db: db}
}

// Save 保存报告
func (r *GormReportRepository) Save(ctx context.Context, report *entity.Report) error {
	model := reportToModel(report)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save report: " + err.Error())
	}
	report.ID = model.ID
	return nil
}

// FindByID 根据ID查找报告
func (r *GormReportRepository) FindByID(ctx context.Context, id uint) (*entity.Report, error) {
	var model models.ReportModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("report not found")
		}
		return nil, domainErrors.NewInternalError("failed to find report: " + err.Error())
	}
	return reportToEntity(&model), nil
}

// FindLatest 查找最新报告
func (r *GormReportRepository) FindLatest(ctx context.Context) (*entity.Report, error) {
	var model models.ReportModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("no report yet")
		}
		return nil, domainErrors.NewInternalError("failed to find latest report: " + err.Error())
	}
	return reportToEntity(&model), nil
}

// 转换方法

func reportToModel(report *entity.Report) *models.ReportModel {
	return &models.ReportModel{
		ID:          report.ID,
		BatchID:     report.BatchID,
		Title:       report.Title,
		Overview:    report.Overview,
		ContentHTML: report.HTML,
		ContentText: report.Text,
		ItemCount:   report.ItemCount,
		CreatedAt:   report.CreatedAt,
	}
}

func reportToEntity(model *models.ReportModel) *entity.Report {
	return &entity.Report{
		ID:        model.ID,
		BatchID:   model.BatchID,
		Title:     model.Title,
		Overview:  model.Overview,
		HTML:      model.ContentHTML,
		Text:      model.ContentText,
		ItemCount: model.ItemCount,
		CreatedAt: model.CreatedAt,
	}
}
