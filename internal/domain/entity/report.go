package entity

import "time"

// Report 一个批次汇总出的情报报告
type Report struct {
	ID        uint      `json:"id"`
	BatchID   string    `json:"batch_id"`
	Title     string    `json:"title"`
	Overview  string    `json:"overview"` // LLM 生成的总体综述（markdown）
	HTML      string    `json:"html"`
	Text      string    `json:"text"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}
