package models

import (
	"time"
)

// SourceModel 数据库监控源模型
type SourceModel struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	Name             string `gorm:"uniqueIndex;size:128;not null"`
	URL              string `gorm:"size:512;not null"`
	Enabled          bool   `gorm:"index;default:true"`
	MaxItems         int
	WindowDays       int
	AllowCrossDomain bool
	Remark           string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 指定表名
func (SourceModel) TableName() string {
	return "monitor_sources"
}
