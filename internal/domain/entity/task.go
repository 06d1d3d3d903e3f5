package entity

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal 终态判断 — 终态之间不再迁移
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// TriggerKind 触发方式
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
)

// ParseTriggerKind 校验触发方式字符串，空值回落为手动触发
func ParseTriggerKind(raw string) (TriggerKind, bool) {
	switch TriggerKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TriggerManual:
		return TriggerManual, true
	case TriggerScheduled:
		return TriggerScheduled, true
	}
	return "", false
}

// CrawlTask 单个监控源的一次采集任务
type CrawlTask struct {
	ID          uint        `json:"id"`
	BatchID     string      `json:"batch_id"`
	SourceID    uint        `json:"source_id"`
	SourceName  string      `json:"source_name"`
	Trigger     TriggerKind `json:"trigger"`
	Status      TaskStatus  `json:"status"`
	ItemCount   int         `json:"item_count"`
	ErrorMsg    string      `json:"error_msg,omitempty"`
	ProgressLog string      `json:"progress_log,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewCrawlTask 创建待执行任务
func NewCrawlTask(batchID string, source *MonitorSource, trigger TriggerKind) *CrawlTask {
	now := time.Now()
	return &CrawlTask{
		BatchID:    batchID,
		SourceID:   source.ID,
		SourceName: source.Name,
		Trigger:    trigger,
		Status:     TaskPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanTransitionTo 状态迁移合法性：pending→running→{completed,failed,cancelled}，
// pending→cancelled 允许（批次取消时尚未开跑的任务）
func (t *CrawlTask) CanTransitionTo(next TaskStatus) bool {
	if t.Status.IsTerminal() {
		return false
	}
	switch t.Status {
	case TaskPending:
		return next == TaskRunning || next == TaskCancelled
	case TaskRunning:
		return next == TaskCompleted || next == TaskFailed || next == TaskCancelled
	}
	return false
}

// Transition 执行状态迁移，非法迁移返回错误
func (t *CrawlTask) Transition(next TaskStatus) error {
	if !t.CanTransitionTo(next) {
		return fmt.Errorf("invalid task transition: %s -> %s", t.Status, next)
	}
	now := time.Now()
	t.Status = next
	t.UpdatedAt = now
	switch next {
	case TaskRunning:
		t.StartedAt = &now
	case TaskCompleted, TaskFailed, TaskCancelled:
		t.FinishedAt = &now
	}
	return nil
}

// AppendProgress 追加一行进度日志（带时间戳）
func (t *CrawlTask) AppendProgress(line string) {
	stamp := time.Now().Format("15:04:05")
	entry := fmt.Sprintf("[%s] %s", stamp, line)
	if t.ProgressLog == "" {
		t.ProgressLog = entry
	} else {
		t.ProgressLog += "\n" + entry
	}
	t.UpdatedAt = time.Now()
}

// ProgressLines 返回进度日志的行切片
func (t *CrawlTask) ProgressLines() []string {
	if t.ProgressLog == "" {
		return nil
	}
	return strings.Split(t.ProgressLog, "\n")
}

// BatchStatus 批次状态
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
)

// CrawlBatch 一次触发产生的任务批次
type CrawlBatch struct {
	ID         string      `json:"id"`
	Trigger    TriggerKind `json:"trigger"`
	Status     BatchStatus `json:"status"`
	TaskCount  int         `json:"task_count"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
