package models

import (
	"time"
)

// ReportModel 数据库报告模型
type ReportModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	BatchID     string `gorm:"index;size:50;not null"`
	Title       string `gorm:"size:200;not null"`
	Overview    string `gorm:"type:text"`
	ContentHTML string `gorm:"type:text"`
	ContentText string `gorm:"type:text"`
	ItemCount   int
	CreatedAt   time.Time
}

// TableName 指定表名
func (ReportModel) TableName() string {
	return "reports"
}
