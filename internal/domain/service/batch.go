package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	"github.com/zcradar/zcradar/pkg/safego"
)

// Notifier 报告推送接口，通知引擎在基础设施层实现
type Notifier interface {
	DispatchReport(ctx context.Context, report *entity.Report, items []*entity.ArticleItem)
}

// BrowserLifecycle 批次结束后回收浏览器资源
type BrowserLifecycle interface {
	Close() error
}

// BatchRunnerConfig 批次执行配置
type BatchRunnerConfig struct {
	MaxConcurrency int64 // 同时采集的源数上限，默认 5
}

func (c BatchRunnerConfig) withDefaults() BatchRunnerConfig {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	return c
}

// BatchRunner 批次执行器：对一批监控源并发跑采集流水线，
// 全部任务结束后生成汇总报告并推送。
// 同一个源不允许并发执行，重复触发时该源被跳过。
type BatchRunner struct {
	sources  repository.SourceRepository
	tasks    repository.TaskRepository
	results  repository.ResultRepository
	reports  repository.ReportRepository
	orch     *Orchestrator
	reporter *ReportBuilder
	notifier Notifier
	browser  BrowserLifecycle
	events   ProgressFunc
	cfg      BatchRunnerConfig
	logger   *zap.Logger

	mu      sync.Mutex
	running map[uint]bool               // source_id -> 执行中
	cancels map[uint]context.CancelFunc // task_id -> 取消函数
}

func NewBatchRunner(
	sources repository.SourceRepository,
	tasks repository.TaskRepository,
	results repository.ResultRepository,
	reports repository.ReportRepository,
	orch *Orchestrator,
	reporter *ReportBuilder,
	notifier Notifier,
	browser BrowserLifecycle,
	events ProgressFunc,
	cfg BatchRunnerConfig,
	logger *zap.Logger,
) *BatchRunner {
	return &BatchRunner{
		sources:  sources,
		tasks:    tasks,
		results:  results,
		reports:  reports,
		orch:     orch,
		reporter: reporter,
		notifier: notifier,
		browser:  browser,
		events:   events,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		running:  make(map[uint]bool),
		cancels:  make(map[uint]context.CancelFunc),
	}
}

// NewBatchID 生成批次标识
func NewBatchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// RunBatch 执行一个批次并阻塞到全部任务结束（含报告生成）。
// sourceIDs 为空表示全部启用的源。返回批次ID。
func (b *BatchRunner) RunBatch(ctx context.Context, sourceIDs []uint, trigger entity.TriggerKind) (string, error) {
	return b.RunBatchAs(ctx, NewBatchID(), sourceIDs, trigger)
}

// RunBatchAs 以调用方给定的批次ID执行。触发接口先生成ID再后台开跑，
// 响应里就能带上批次ID
func (b *BatchRunner) RunBatchAs(ctx context.Context, batchID string, sourceIDs []uint, trigger entity.TriggerKind) (string, error) {
	logger := b.logger.With(zap.String("batch_id", batchID))
	logger.Info("Starting batch", zap.String("trigger", string(trigger)))

	runnable, err := b.claimSources(ctx, sourceIDs, logger)
	if err != nil {
		return batchID, err
	}
	if len(runnable) == 0 {
		logger.Warn("No runnable sources for batch")
		return batchID, nil
	}
	defer b.releaseSources(runnable)

	tasks := make([]*entity.CrawlTask, 0, len(runnable))
	for _, src := range runnable {
		task := entity.NewCrawlTask(batchID, src, trigger)
		if err := b.tasks.Save(ctx, task); err != nil {
			logger.Error("Task create failed", zap.String("source", src.Name), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	b.emit(entity.TaskEvent{
		Type:      entity.EventBatchStarted,
		BatchID:   batchID,
		Message:   strings.Join(sourceNames(runnable), "、"),
		Timestamp: time.Now(),
	})

	sem := semaphore.NewWeighted(b.cfg.MaxConcurrency)
	dones := make([]<-chan struct{}, 0, len(tasks))
	for i, task := range tasks {
		src := runnable[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			b.markCancelled(task)
			continue
		}
		task, src := task, src
		done := safego.GoWait(logger, "crawl-"+src.Name, func() {
			defer sem.Release(1)
			b.runOne(ctx, task, src, logger)
		})
		dones = append(dones, done)
	}
	for _, done := range dones {
		<-done
	}

	b.finishBatch(ctx, batchID, logger)

	// 浏览器只在没有其他批次还在用时关闭
	if b.browser != nil && !b.anyRunning() {
		if err := b.browser.Close(); err != nil {
			logger.Warn("Browser close failed", zap.Error(err))
		}
	}

	return batchID, nil
}

// claimSources 取出可执行的源并加锁，正在执行的源被跳过
func (b *BatchRunner) claimSources(ctx context.Context, sourceIDs []uint, logger *zap.Logger) ([]*entity.MonitorSource, error) {
	var (
		sources []*entity.MonitorSource
		err     error
	)
	if len(sourceIDs) > 0 {
		sources, err = b.sources.FindByIDs(ctx, sourceIDs)
	} else {
		sources, err = b.sources.FindEnabled(ctx)
	}
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var runnable []*entity.MonitorSource
	var skipped []string
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		if b.running[src.ID] {
			skipped = append(skipped, src.Name)
			continue
		}
		b.running[src.ID] = true
		runnable = append(runnable, src)
	}
	if len(skipped) > 0 {
		logger.Info("Skipping already-running sources", zap.Strings("sources", skipped))
	}
	return runnable, nil
}

func (b *BatchRunner) releaseSources(sources []*entity.MonitorSource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, src := range sources {
		delete(b.running, src.ID)
	}
}

// runOne 执行单个源的任务，任务可被单独取消
func (b *BatchRunner) runOne(ctx context.Context, task *entity.CrawlTask, src *entity.MonitorSource, logger *zap.Logger) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	b.cancels[task.ID] = cancel
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.cancels, task.ID)
		delete(b.running, src.ID)
		b.mu.Unlock()
	}()

	b.emit(entity.TaskEvent{
		Type:       entity.EventTaskStarted,
		BatchID:    task.BatchID,
		TaskID:     task.ID,
		SourceName: src.Name,
		Timestamp:  time.Now(),
	})

	if err := b.orch.RunSource(taskCtx, task, src, b.events); err != nil {
		logger.Error("Source run failed", zap.String("source", src.Name), zap.Error(err))
	}
}

// finishBatch 生成并保存汇总报告，然后推送
func (b *BatchRunner) finishBatch(ctx context.Context, batchID string, logger *zap.Logger) {
	// 报告与推送在批次收尾阶段执行，不再受取消影响
	ctx = context.WithoutCancel(ctx)

	items, err := b.results.FindByBatch(ctx, batchID)
	if err != nil {
		logger.Error("Batch result lookup failed", zap.Error(err))
		items = nil
	}

	if len(items) == 0 {
		logger.Info("No results to report")
		b.emit(entity.TaskEvent{
			Type:      entity.EventBatchCompleted,
			BatchID:   batchID,
			Timestamp: time.Now(),
		})
		return
	}

	report := b.reporter.Build(ctx, batchID, items, time.Now())
	if report != nil {
		if err := b.reports.Save(ctx, report); err != nil {
			logger.Error("Report persist failed", zap.Error(err))
		} else {
			logger.Info("Report generated", zap.String("title", report.Title), zap.Uint("report_id", report.ID))
			b.emit(entity.TaskEvent{
				Type:      entity.EventReportReady,
				BatchID:   batchID,
				Message:   report.Title,
				ItemCount: report.ItemCount,
				Timestamp: time.Now(),
			})
		}
		if b.notifier != nil {
			b.notifier.DispatchReport(ctx, report, items)
		}
	}

	b.emit(entity.TaskEvent{
		Type:      entity.EventBatchCompleted,
		BatchID:   batchID,
		ItemCount: len(items),
		Timestamp: time.Now(),
	})
}

func (b *BatchRunner) markCancelled(task *entity.CrawlTask) {
	if err := task.Transition(entity.TaskCancelled); err != nil {
		return
	}
	if err := b.tasks.Save(context.Background(), task); err != nil {
		b.logger.Warn("Cancelled task persist failed", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}

// RequestCancel 请求取消一个任务，任务不在执行中返回 false
func (b *BatchRunner) RequestCancel(taskID uint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cancel, ok := b.cancels[taskID]
	if ok {
		cancel()
	}
	return ok
}

// CancelBatch 取消批次内所有执行中的任务，返回实际触发取消的任务数
func (b *BatchRunner) CancelBatch(ctx context.Context, batchID string) (int, error) {
	tasks, err := b.tasks.FindByBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, t := range tasks {
		if b.RequestCancel(t.ID) {
			cancelled++
		}
	}
	return cancelled, nil
}

// RunningSources 返回正在采集中的源ID
func (b *BatchRunner) RunningSources() []uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint, 0, len(b.running))
	for id := range b.running {
		out = append(out, id)
	}
	return out
}

// IsSourceRunning 判断某个源是否在采集中
func (b *BatchRunner) IsSourceRunning(sourceID uint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running[sourceID]
}

func (b *BatchRunner) anyRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.running) > 0
}

func (b *BatchRunner) emit(ev entity.TaskEvent) {
	if b.events != nil {
		b.events(ev)
	}
}

func sourceNames(sources []*entity.MonitorSource) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Name)
	}
	return out
}
