package models

import (
	"time"
)

// ResultModel 数据库采集结果模型
type ResultModel struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	TaskID            uint   `gorm:"index"`
	SourceID          uint   `gorm:"index"`
	SourceName        string `gorm:"size:128"`
	Title             string `gorm:"size:500;not null"`
	URL               string `gorm:"size:1000;index:idx_results_url,length:255"`
	ContentType       string `gorm:"size:32"`
	PublishedDate     string `gorm:"size:10"` // YYYY-MM-DD
	Summary           string `gorm:"type:text"`
	Tags              string `gorm:"type:text"` // JSON encoded string list
	AttachmentName    string `gorm:"size:255"`
	AttachmentSummary string `gorm:"type:text"`
	Rank              int    `gorm:"column:item_rank"`
	CreatedAt         time.Time
}

// TableName 指定表名
func (ResultModel) TableName() string {
	return "crawl_results"
}
