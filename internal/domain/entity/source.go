package entity

import "time"

// 采集源默认参数
const (
	DefaultMaxItems   = 30
	DefaultWindowDays = 7
)

// MonitorSource 监控源 — 一个被定期巡查的政府/新闻站点
type MonitorSource struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	Enabled          bool      `json:"enabled"`
	MaxItems         int       `json:"max_items"`         // 单次任务采集上限
	WindowDays       int       `json:"window_days"`       // 时间窗口（天）
	AllowCrossDomain bool      `json:"allow_cross_domain"` // 是否允许跨根域名链接
	Remark           string    `json:"remark,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EffectiveMaxItems 返回生效的采集上限
func (s *MonitorSource) EffectiveMaxItems() int {
	if s.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return s.MaxItems
}

// EffectiveWindowDays 返回生效的时间窗口
func (s *MonitorSource) EffectiveWindowDays() int {
	if s.WindowDays <= 0 {
		return DefaultWindowDays
	}
	return s.WindowDays
}

// WindowStart 计算窗口起始日期（含当天）
func (s *MonitorSource) WindowStart(now time.Time) time.Time {
	start := now.AddDate(0, 0, -(s.EffectiveWindowDays() - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
}
