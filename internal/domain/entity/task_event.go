package entity

import "time"

// TaskEventType defines the type of event emitted while a crawl task runs
type TaskEventType string

const (
	EventBatchStarted   TaskEventType = "batch_started"
	EventBatchCompleted TaskEventType = "batch_completed"
	EventTaskStarted    TaskEventType = "task_started"
	EventTaskProgress   TaskEventType = "task_progress"
	EventTaskCompleted  TaskEventType = "task_completed"
	EventTaskFailed     TaskEventType = "task_failed"
	EventTaskCancelled  TaskEventType = "task_cancelled"
	EventReportReady    TaskEventType = "report_ready"
)

// TaskEvent represents a single progress event in a crawl batch.
// Consumers (WebSocket stream, progress log) subscribe to a channel of these.
type TaskEvent struct {
	Type       TaskEventType `json:"type"`
	BatchID    string        `json:"batch_id,omitempty"`
	TaskID     uint          `json:"task_id,omitempty"`
	SourceName string        `json:"source_name,omitempty"`
	Phase      string        `json:"phase,omitempty"` // navigate / crawl / summarize / rank
	Message    string        `json:"message,omitempty"`
	ItemCount  int           `json:"item_count,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
