package models

import (
	"time"
)

// TaskModel 数据库采集任务模型
type TaskModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	BatchID     string `gorm:"index;size:50;not null"`
	SourceID    uint   `gorm:"index"`
	SourceName  string `gorm:"size:128"`
	Trigger     string `gorm:"size:16"`
	Status      string `gorm:"index;size:16;not null"`
	ItemCount   int
	ErrorMsg    string `gorm:"type:text"`
	ProgressLog string `gorm:"type:text"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "crawl_tasks"
}
