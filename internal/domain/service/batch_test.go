package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

type memSourceRepo struct {
	sources []*entity.MonitorSource
}

func (r *memSourceRepo) FindByID(_ context.Context, id uint) (*entity.MonitorSource, error) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.NewNotFoundError("source not found")
}

func (r *memSourceRepo) FindByIDs(_ context.Context, ids []uint) ([]*entity.MonitorSource, error) {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*entity.MonitorSource
	for _, s := range r.sources {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSourceRepo) FindEnabled(context.Context) ([]*entity.MonitorSource, error) {
	var out []*entity.MonitorSource
	for _, s := range r.sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSourceRepo) FindAll(context.Context) ([]*entity.MonitorSource, error) {
	return r.sources, nil
}

func (r *memSourceRepo) Save(context.Context, *entity.MonitorSource) error { return nil }
func (r *memSourceRepo) Delete(context.Context, uint) error                { return nil }

type memReportRepo struct {
	mu    sync.Mutex
	saved []*entity.Report
}

func (r *memReportRepo) Save(_ context.Context, report *entity.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report.ID = uint(len(r.saved) + 1)
	r.saved = append(r.saved, report)
	return nil
}

func (r *memReportRepo) FindByID(_ context.Context, id uint) (*entity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.saved {
		if rep.ID == id {
			return rep, nil
		}
	}
	return nil, apperrors.NewNotFoundError("report not found")
}

func (r *memReportRepo) FindLatest(context.Context) (*entity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil, apperrors.NewNotFoundError("no report")
	}
	return r.saved[len(r.saved)-1], nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	reports []*entity.Report
}

func (f *fakeNotifier) DispatchReport(_ context.Context, report *entity.Report, _ []*entity.ArticleItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
}

type fakeLifecycle struct {
	mu     sync.Mutex
	closed int
}

func (f *fakeLifecycle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// eventRecorder 并发安全的事件收集器
type eventRecorder struct {
	mu     sync.Mutex
	events []entity.TaskEvent
}

func (r *eventRecorder) record(ev entity.TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []entity.TaskEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.TaskEvent(nil), r.events...)
}

func (r *eventRecorder) countOf(t entity.TaskEventType) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// blockingBrowser 一直阻塞到上下文取消，用于测试任务取消
type blockingBrowser struct{}

func (blockingBrowser) Browse(ctx context.Context, _ string, _ bool) (*PageView, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type batchFixture struct {
	runner   *BatchRunner
	tasks    *memTaskRepo
	results  *memResultRepo
	reports  *memReportRepo
	notifier *fakeNotifier
	browser  *fakeLifecycle
	events   *eventRecorder
}

func newBatchFixture(sources []*entity.MonitorSource, llm LLMClient, pages PageBrowser) *batchFixture {
	f := &batchFixture{
		tasks:    &memTaskRepo{},
		results:  &memResultRepo{},
		reports:  &memReportRepo{},
		notifier: &fakeNotifier{},
		browser:  &fakeLifecycle{},
		events:   &eventRecorder{},
	}
	cfg := OrchestratorConfig{Model: "test/model", Retry: fastRetry()}
	orch := NewOrchestrator(llm, pages, &stubToolsets{}, staticRules("只采集政策类内容"), f.tasks, f.results, cfg, zap.NewNop())
	reporter := NewReportBuilder(llm, "test/model", fastRetry(), zap.NewNop())

	f.runner = NewBatchRunner(
		&memSourceRepo{sources: sources},
		f.tasks, f.results, f.reports,
		orch, reporter, f.notifier, f.browser,
		f.events.record,
		BatchRunnerConfig{MaxConcurrency: 1}, // 串行执行，保证 LLM 脚本顺序确定
		zap.NewNop(),
	)
	return f
}

func TestBatchRunnerEndToEnd(t *testing.T) {
	today := time.Now().Format(entity.DateLayout)
	sources := []*entity.MonitorSource{
		{ID: 1, Name: "工信部", URL: "https://a.gov.cn", Enabled: true, MaxItems: 1, WindowDays: 7},
		{ID: 2, Name: "发改委", URL: "https://b.gov.cn", Enabled: true, MaxItems: 1, WindowDays: 7},
	}
	pages := &fakeBrowser{views: map[string]*PageView{
		"https://a.gov.cn": {OK: true, LinkList: "- 首页", Candidates: []PageCandidate{
			{Title: "工信部新政", URL: "https://a.gov.cn/1.html", Date: today},
		}},
		"https://b.gov.cn": {OK: true, LinkList: "- 首页", Candidates: []PageCandidate{
			{Title: "发改委新政", URL: "https://b.gov.cn/1.html", Date: today},
		}},
	}}
	// 每个源一次栏目识别（单条目不排序），收尾一次整体概述
	llm := &scriptedLLM{responses: []*LLMResponse{
		{Content: "没有栏目"},
		{Content: "没有栏目"},
		{Content: "本批次共两条政策更新。"},
	}}
	f := newBatchFixture(sources, llm, pages)

	batchID, err := f.runner.RunBatch(context.Background(), nil, entity.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if batchID == "" {
		t.Fatal("empty batch id")
	}

	for _, task := range f.tasks.all() {
		if task.Status != entity.TaskCompleted {
			t.Errorf("task %d status = %s, want completed (%s)", task.ID, task.Status, task.ErrorMsg)
		}
	}
	if len(f.results.saved) != 2 {
		t.Errorf("saved %d items, want 2", len(f.results.saved))
	}

	if len(f.reports.saved) != 1 {
		t.Fatalf("reports saved = %d, want 1", len(f.reports.saved))
	}
	if f.reports.saved[0].ItemCount != 2 {
		t.Errorf("report item count = %d, want 2", f.reports.saved[0].ItemCount)
	}
	if len(f.notifier.reports) != 1 {
		t.Errorf("notifier dispatched %d reports, want 1", len(f.notifier.reports))
	}
	if f.browser.closed != 1 {
		t.Errorf("browser closed %d times, want 1", f.browser.closed)
	}

	events := f.events.all()
	if events[0].Type != entity.EventBatchStarted {
		t.Errorf("first event = %s, want batch_started", events[0].Type)
	}
	if events[len(events)-1].Type != entity.EventBatchCompleted {
		t.Errorf("last event = %s, want batch_completed", events[len(events)-1].Type)
	}
	if f.events.countOf(entity.EventTaskStarted) != 2 || f.events.countOf(entity.EventTaskCompleted) != 2 {
		t.Errorf("task lifecycle events missing: %+v", events)
	}
	if f.events.countOf(entity.EventReportReady) != 1 {
		t.Error("report_ready event missing")
	}
	// 批次结束后源锁应已释放
	if ids := f.runner.RunningSources(); len(ids) != 0 {
		t.Errorf("sources still marked running: %v", ids)
	}
}

func TestBatchRunnerSkipsRunningSource(t *testing.T) {
	sources := []*entity.MonitorSource{
		{ID: 1, Name: "占用中", URL: "https://a.gov.cn", Enabled: true},
		{ID: 2, Name: "空闲", URL: "https://b.gov.cn", Enabled: true},
	}
	llm := &scriptedLLM{}
	f := newBatchFixture(sources, llm, &fakeBrowser{})

	f.runner.mu.Lock()
	f.runner.running[1] = true
	f.runner.mu.Unlock()

	if _, err := f.runner.RunBatch(context.Background(), nil, entity.TriggerManual); err != nil {
		t.Fatal(err)
	}

	tasks := f.tasks.all()
	if len(tasks) != 1 || tasks[0].SourceID != 2 {
		t.Errorf("expected a task only for the idle source, got %+v", tasks)
	}
	// 未被本批次认领的源锁不受影响
	if !f.runner.IsSourceRunning(1) {
		t.Error("foreign source lock must survive the batch")
	}
}

func TestBatchRunnerSkipsDisabledSources(t *testing.T) {
	sources := []*entity.MonitorSource{
		{ID: 1, Name: "停用源", URL: "https://a.gov.cn", Enabled: false},
	}
	f := newBatchFixture(sources, &scriptedLLM{}, &fakeBrowser{})

	if _, err := f.runner.RunBatch(context.Background(), []uint{1}, entity.TriggerManual); err != nil {
		t.Fatal(err)
	}
	if len(f.tasks.all()) != 0 {
		t.Error("disabled source must not produce a task")
	}
	if len(f.events.all()) != 0 {
		t.Errorf("no events expected for an empty batch, got %+v", f.events.all())
	}
}

func TestBatchRunnerRequestCancelUnknownTask(t *testing.T) {
	f := newBatchFixture(nil, &scriptedLLM{}, &fakeBrowser{})
	if f.runner.RequestCancel(999) {
		t.Error("cancelling an unknown task should return false")
	}
}

func TestBatchRunnerCancelRunningTask(t *testing.T) {
	sources := []*entity.MonitorSource{
		{ID: 1, Name: "慢源", URL: "https://slow.gov.cn", Enabled: true},
	}
	f := newBatchFixture(sources, &scriptedLLM{}, blockingBrowser{})

	done := make(chan string, 1)
	go func() {
		batchID, _ := f.runner.RunBatch(context.Background(), nil, entity.TriggerManual)
		done <- batchID
	}()

	// 等任务进入执行中，再发起取消
	var taskID uint
	deadline := time.After(2 * time.Second)
	for taskID == 0 {
		select {
		case <-deadline:
			t.Fatal("task never started")
		case <-time.After(5 * time.Millisecond):
		}
		for _, task := range f.tasks.all() {
			if task.Status == entity.TaskRunning {
				taskID = task.ID
			}
		}
	}
	if !f.runner.RequestCancel(taskID) {
		t.Fatal("cancel request rejected for a running task")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not finish after cancellation")
	}

	task, err := f.tasks.FindByID(context.Background(), taskID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != entity.TaskCancelled {
		t.Errorf("task status = %s, want cancelled", task.Status)
	}
	if len(f.results.saved) != 0 {
		t.Error("cancelled task must not persist items")
	}
	if f.events.countOf(entity.EventBatchCompleted) != 1 {
		t.Error("batch_completed event missing after cancellation")
	}
}

func TestNewBatchID(t *testing.T) {
	a, b := NewBatchID(), NewBatchID()
	if len(a) != 12 || len(b) != 12 {
		t.Errorf("batch id length: %q, %q", a, b)
	}
	if a == b {
		t.Error("batch ids should be unique")
	}
}
