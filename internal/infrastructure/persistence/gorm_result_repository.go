package persistence

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/internal/infrastructure/persistence/models"
	domainErrors "github.com/zcradar/zcradar/pkg/errors"
)

// GormResultRepository GORM 实现的采集结果仓储
type GormResultRepository struct {
	db *gorm.DB
}

// NewGormResultRepository 创建 GORM 采集结果仓储
func NewGormResultRepository(db *gorm.DB) repository.ResultRepository {
	return &GormResultRepository{db: db}
}

// SaveBatch 批量写入一个任务的全部结果
func (r *GormResultRepository) SaveBatch(ctx context.Context, items []*entity.ArticleItem) error {
	if len(items) == 0 {
		return nil
	}

	modelList := make([]models.ResultModel, 0, len(items))
	for _, item := range items {
		modelList = append(modelList, *resultToModel(item))
	}

	if err := r.db.WithContext(ctx).Create(&modelList).Error; err != nil {
		return domainErrors.NewInternalError("failed to save results: " + err.Error())
	}
	for i, item := range items {
		item.ID = modelList[i].ID
	}
	return nil
}

// FindByTask 查找任务的全部结果（按 rank 升序）
func (r *GormResultRepository) FindByTask(ctx context.Context, taskID uint) ([]*entity.ArticleItem, error) {
	var modelList []models.ResultModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("item_rank").Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find task results: " + err.Error())
	}
	return resultsToEntities(modelList), nil
}

// FindByBatch 查找批次的全部结果（按源分组、rank 升序）
func (r *GormResultRepository) FindByBatch(ctx context.Context, batchID string) ([]*entity.ArticleItem, error) {
	var modelList []models.ResultModel
	err := r.db.WithContext(ctx).
		Joins("JOIN crawl_tasks ON crawl_tasks.id = crawl_results.task_id").
		Where("crawl_tasks.batch_id = ?", batchID).
		Order("crawl_results.source_id, crawl_results.item_rank").
		Find(&modelList).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find batch results: " + err.Error())
	}
	return resultsToEntities(modelList), nil
}

// ExistingURLs 返回指定源近期已采集过的 URL 集合。days <= 0 表示不限时间。
func (r *GormResultRepository) ExistingURLs(ctx context.Context, sourceID uint, days int) (map[string]bool, error) {
	query := r.db.WithContext(ctx).Model(&models.ResultModel{}).Where("source_id = ?", sourceID)
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		query = query.Where("created_at > ?", cutoff)
	}

	var urls []string
	if err := query.Pluck("url", &urls).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to load existing urls: " + err.Error())
	}

	existing := make(map[string]bool, len(urls))
	for _, u := range urls {
		existing[u] = true
	}
	return existing, nil
}

// 转换方法

func resultToModel(item *entity.ArticleItem) *models.ResultModel {
	var tags string
	if len(item.Tags) > 0 {
		if data, err := json.Marshal(item.Tags); err == nil {
			tags = string(data)
		}
	}

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &models.ResultModel{
		ID:                item.ID,
		TaskID:            item.TaskID,
		SourceID:          item.SourceID,
		SourceName:        item.SourceName,
		Title:             item.Title,
		URL:               item.URL,
		ContentType:       string(item.Kind),
		PublishedDate:     item.Date,
		Summary:           item.Summary,
		Tags:              tags,
		AttachmentName:    item.Attachment,
		AttachmentSummary: item.AttachmentSummary,
		Rank:              item.Rank,
		CreatedAt:         createdAt,
	}
}

func resultToEntity(model *models.ResultModel) *entity.ArticleItem {
	var tags []string
	if model.Tags != "" {
		_ = json.Unmarshal([]byte(model.Tags), &tags)
	}

	return &entity.ArticleItem{
		ID:                model.ID,
		TaskID:            model.TaskID,
		SourceID:          model.SourceID,
		SourceName:        model.SourceName,
		Title:             model.Title,
		URL:               model.URL,
		Kind:              entity.ContentKind(model.ContentType),
		Date:              model.PublishedDate,
		Summary:           model.Summary,
		Tags:              tags,
		Attachment:        model.AttachmentName,
		AttachmentSummary: model.AttachmentSummary,
		Rank:              model.Rank,
		CreatedAt:         model.CreatedAt,
	}
}

func resultsToEntities(modelList []models.ResultModel) []*entity.ArticleItem {
	items := make([]*entity.ArticleItem, 0, len(modelList))
	for i := range modelList {
		items = append(items, resultToEntity(&modelList[i]))
	}
	return items
}
