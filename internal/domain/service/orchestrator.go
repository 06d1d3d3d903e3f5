package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/repository"
	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

// PageBrowser 领域层对浏览器的依赖接口，基础设施层提供实现
type PageBrowser interface {
	// Browse 访问页面。加载失败体现在 PageView.OK=false，error 只在取消时出现
	Browse(ctx context.Context, url string, allowCrossDomain bool) (*PageView, error)
}

// PageView 编排器视角的页面观测
type PageView struct {
	OK         bool
	Reason     string
	Text       string
	Candidates []PageCandidate
	LinkList   string // 渲染好的链接列表文本，供栏目识别提示词使用
}

// PageCandidate 页面上可直接采集的条目
type PageCandidate struct {
	Title string
	URL   string
	Date  string
}

// ToolsetFactory 为每个任务构造一套绑定收集器的工具执行器
type ToolsetFactory interface {
	ForTask(source *entity.MonitorSource, collector *ItemCollector) ToolExecutor
}

// RulesProvider 提供栏目筛选规则文本（支持热更新）
type RulesProvider interface {
	Rules() string
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	Model             string
	SectionMaxTurns   int   // 栏目子代理最大轮次，默认 15
	MaxSupplementary  int   // 首页已有条目时最多补充采集的栏目数，默认 3
	LLMMaxConcurrency int64 // 摘要阶段全局 LLM 并发上限，默认 3
	Retry             RetryConfig
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.SectionMaxTurns <= 0 {
		c.SectionMaxTurns = 15
	}
	if c.MaxSupplementary <= 0 {
		c.MaxSupplementary = 3
	}
	if c.LLMMaxConcurrency <= 0 {
		c.LLMMaxConcurrency = 3
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

// Orchestrator 单个监控源的四阶段采集流水线：
// 1a 首页导航，1b 栏目采集，2 摘要生成，3 战略排序。
// 结果只在任务结束时一次性落库；各阶段之间观察取消信号。
type Orchestrator struct {
	llm      LLMClient
	browser  PageBrowser
	toolsets ToolsetFactory
	rules    RulesProvider
	tasks    repository.TaskRepository
	results  repository.ResultRepository
	llmSem   *semaphore.Weighted
	cfg      OrchestratorConfig
	logger   *zap.Logger
}

// NewOrchestrator 创建编排器。llmSem 为进程级共享的摘要并发闸
func NewOrchestrator(
	llm LLMClient,
	browser PageBrowser,
	toolsets ToolsetFactory,
	rules RulesProvider,
	tasks repository.TaskRepository,
	results repository.ResultRepository,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		llm:      llm,
		browser:  browser,
		toolsets: toolsets,
		rules:    rules,
		tasks:    tasks,
		results:  results,
		llmSem:   semaphore.NewWeighted(cfg.LLMMaxConcurrency),
		cfg:      cfg,
		logger:   logger,
	}
}

// RunSource 执行一个监控源的完整流水线并落库。
// 返回 nil 表示任务进入 completed；失败与取消在内部完成状态迁移。
func (o *Orchestrator) RunSource(ctx context.Context, task *entity.CrawlTask, source *entity.MonitorSource, progress ProgressFunc) error {
	logger := o.logger.With(zap.String("source", source.Name), zap.Uint("task_id", task.ID))

	report := func(msg string) {
		task.AppendProgress(msg)
		if err := o.tasks.Save(context.WithoutCancel(ctx), task); err != nil {
			logger.Warn("Progress persist failed", zap.Error(err))
		}
		if progress != nil {
			progress(entity.TaskEvent{
				Type:       entity.EventTaskProgress,
				BatchID:    task.BatchID,
				TaskID:     task.ID,
				SourceName: source.Name,
				Message:    msg,
				Timestamp:  time.Now(),
			})
		}
	}

	if err := task.Transition(entity.TaskRunning); err != nil {
		return err
	}
	if err := o.tasks.Save(ctx, task); err != nil {
		return err
	}

	items, runErr := o.runPipeline(ctx, task, source, report, logger)

	switch {
	case runErr == nil:
		// 任务成功：批量落库后标记完成
		for rank, it := range items {
			it.TaskID = task.ID
			it.SourceID = source.ID
			it.SourceName = source.Name
			it.Rank = rank + 1
		}
		if err := o.results.SaveBatch(ctx, items); err != nil {
			logger.Error("Result persist failed", zap.Error(err))
			return o.finish(ctx, task, entity.TaskFailed, err.Error(), progress)
		}
		task.ItemCount = len(items)
		logger.Info("Pipeline done", zap.Int("items", len(items)))
		return o.finish(ctx, task, entity.TaskCompleted, "", progress)

	case ctx.Err() != nil:
		// 取消：不落库任何条目
		logger.Info("Task cancelled")
		return o.finish(context.WithoutCancel(ctx), task, entity.TaskCancelled, "", progress)

	default:
		logger.Error("Pipeline failed", zap.Error(runErr))
		return o.finish(ctx, task, entity.TaskFailed, runErr.Error(), progress)
	}
}

func (o *Orchestrator) finish(ctx context.Context, task *entity.CrawlTask, status entity.TaskStatus, errMsg string, progress ProgressFunc) error {
	task.ErrorMsg = errMsg
	if err := task.Transition(status); err != nil {
		return err
	}
	if err := o.tasks.Save(ctx, task); err != nil {
		return err
	}
	if progress != nil {
		eventType := entity.EventTaskCompleted
		switch status {
		case entity.TaskFailed:
			eventType = entity.EventTaskFailed
		case entity.TaskCancelled:
			eventType = entity.EventTaskCancelled
		}
		progress(entity.TaskEvent{
			Type:       eventType,
			BatchID:    task.BatchID,
			TaskID:     task.ID,
			SourceName: task.SourceName,
			Message:    errMsg,
			ItemCount:  task.ItemCount,
			Timestamp:  time.Now(),
		})
	}
	return nil
}

// runPipeline 跑完四个阶段，返回待落库的条目
func (o *Orchestrator) runPipeline(ctx context.Context, task *entity.CrawlTask, source *entity.MonitorSource, report func(string), logger *zap.Logger) ([]*entity.ArticleItem, error) {
	now := time.Now()
	windowStart := source.WindowStart(now)
	dateRange := FormatDateRange(windowStart, now)
	maxItems := source.EffectiveMaxItems()
	crawlRules := o.crawlRules()

	existing, err := o.results.ExistingURLs(ctx, source.ID, 0)
	if err != nil {
		logger.Warn("Existing URL lookup failed", zap.Error(err))
		existing = map[string]bool{}
	}

	// ── Phase 1a: 首页导航 ──
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report("Phase 1a: 浏览首页，提取条目和栏目链接")

	home, err := o.browser.Browse(ctx, source.URL, source.AllowCrossDomain)
	if err != nil {
		return nil, err
	}
	if !home.OK {
		// 首页打不开，任务直接失败
		return nil, apperrors.Newf(apperrors.CodePageLoad, "首页加载失败: %s", home.Reason)
	}

	homepageItems := o.extractHomepageItems(home, source, windowStart, now, existing)
	sections := o.identifySections(ctx, home, source, crawlRules, logger)
	report(fmt.Sprintf("Phase 1a: 首页发现 %d 条条目，%d 个栏目", len(homepageItems), len(sections)))

	if len(homepageItems) > 0 {
		homepageItems = o.filterHomepageItems(ctx, homepageItems, crawlRules, logger)
		report(fmt.Sprintf("Phase 1a: 筛选后保留 %d 条首页条目", len(homepageItems)))
	}

	// ── Phase 1b: 栏目采集 ──
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	remaining := maxItems - len(homepageItems)
	var sectionsToCrawl []Section
	if remaining <= 0 {
		report("Phase 1b: 首页条目已足够，跳过栏目补充采集")
	} else {
		limit := len(sections)
		if len(homepageItems) > 0 && limit > o.cfg.MaxSupplementary {
			limit = o.cfg.MaxSupplementary
		}
		if limit > MaxSections {
			limit = MaxSections
		}
		sectionsToCrawl = sections[:limit]
		report(fmt.Sprintf("Phase 1b: 补充采集 %d 个栏目", len(sectionsToCrawl)))
	}

	collector := NewItemCollector(existing, remaining)
	collector.MarkSeen(urlsOf(homepageItems))

	executor := o.toolsets.ForTask(source, collector)
	loopCfg := CrawlLoopConfig{
		Model:         o.cfg.Model,
		MaxTurns:      o.cfg.SectionMaxTurns,
		EnablePruning: true,
		Retry:         o.cfg.Retry,
	}
	sectionTools := []string{ToolBrowsePage, ToolSaveResultsBatch, ToolSaveResult, ToolDownloadFile, ToolReadDocument, ToolFinish}

	loop := NewCrawlLoop(o.llm, executor, logger)
	for idx, section := range sectionsToCrawl {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if collector.Remaining() == 0 {
			break
		}

		report(fmt.Sprintf("Phase 1b: 采集栏目 (%d/%d): %s", idx+1, len(sectionsToCrawl), section.Name))

		prompt := BuildSectionPrompt(
			section.Name, section.URL, dateRange,
			remainingQuota(collector, maxItems),
			keys(collectorSeen(collector, existing, homepageItems)),
			crawlRules,
		)

		result, err := loop.Run(ctx, loopCfg, prompt, SectionUserMessage(section.Name, section.URL), sectionTools, o.progressRelay(task, source))
		if err != nil {
			return nil, err
		}
		logger.Info("Section crawled",
			zap.String("section", section.Name),
			zap.String("reason", string(result.Reason)),
			zap.Int("turns", result.Turns),
			zap.Int("saved", result.SavedCount),
		)
	}

	// 合并首页条目与栏目条目；无日期或窗口外的条目进不了摘要与报告
	merged := append(append([]*entity.ArticleItem{}, homepageItems...), collector.Items()...)
	merged = keepInWindow(merged, windowStart, now)

	if len(merged) > maxItems {
		SortItemsByDateDesc(merged)
		merged = merged[:maxItems]
	}

	// ── Phase 2: 摘要生成 ──
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.summarizeItems(ctx, merged, source, report, logger)

	// ── Phase 3: 战略排序 ──
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report("Phase 3: 按战略重要性排序")
	merged = RankItems(ctx, o.llm, o.cfg.Model, merged, o.cfg.Retry, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report("Phase 3: 排序完成")

	return merged, nil
}

func (o *Orchestrator) crawlRules() string {
	if o.rules != nil {
		if r := strings.TrimSpace(o.rules.Rules()); r != "" {
			return r
		}
	}
	return DefaultCrawlRules
}

// extractHomepageItems 纯代码从首页观测中提取窗口内的可采集条目
func (o *Orchestrator) extractHomepageItems(home *PageView, source *entity.MonitorSource, windowStart, now time.Time, existing map[string]bool) []*entity.ArticleItem {
	seen := make(map[string]bool, len(existing))
	for u := range existing {
		seen[NormalizeDedupURL(u)] = true
	}

	var items []*entity.ArticleItem
	for _, c := range home.Candidates {
		key := NormalizeDedupURL(c.URL)
		if key == "" || seen[key] {
			continue
		}
		item := &entity.ArticleItem{
			Title: entity.CleanTitle(c.Title),
			URL:   c.URL,
			Kind:  entity.KindNews,
			Date:  c.Date,
		}
		if item.Title == "" || !item.InWindow(windowStart, now) {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	return items
}

// identifySections 用 LLM 从首页链接列表识别栏目，失败时降级为源 URL 本身
func (o *Orchestrator) identifySections(ctx context.Context, home *PageView, source *entity.MonitorSource, crawlRules string, logger *zap.Logger) []Section {
	fallback := []Section{{Name: source.Name, URL: source.URL}}

	linkList := home.LinkList
	if linkList == "" {
		runes := []rune(home.Text)
		if len(runes) > 8000 {
			runes = runes[:8000]
		}
		linkList = string(runes)
	}

	req := TextRequest(o.cfg.Model, identifySectionsSystem,
		BuildIdentifySectionsPrompt(source.Name, source.URL, crawlRules, linkList), 0.1)
	req.MaxTokens = 2048

	resp, err := callLLMWithRetry(ctx, o.llm, req, o.cfg.Retry, logger)
	if err != nil {
		logger.Warn("Section identification failed, falling back to source url", zap.Error(err))
		return fallback
	}

	sections, ok := ParseSections(resp.Content)
	if !ok {
		logger.Warn("Section identification output unparsable, falling back to source url")
		return fallback
	}
	if len(sections) > MaxSections {
		sections = sections[:MaxSections]
	}
	logger.Info("Sections identified", zap.Int("count", len(sections)))
	return sections
}

// filterHomepageItems 用 LLM 按采集规则过滤首页条目，3 条以内或失败时全量保留
func (o *Orchestrator) filterHomepageItems(ctx context.Context, items []*entity.ArticleItem, crawlRules string, logger *zap.Logger) []*entity.ArticleItem {
	if len(items) <= 3 {
		return items
	}

	req := TextRequest(o.cfg.Model, filterItemsSystem, BuildFilterItemsPrompt(crawlRules, items), 0.1)
	req.MaxTokens = 512

	resp, err := callLLMWithRetry(ctx, o.llm, req, o.cfg.Retry, logger)
	if err != nil {
		logger.Warn("Homepage item filtering failed, keeping all", zap.Error(err))
		return items
	}

	indices, ok := ParseIndexSubset(resp.Content, len(items))
	if !ok {
		logger.Warn("Homepage filter output unparsable, keeping all")
		return items
	}
	kept := make([]*entity.ArticleItem, 0, len(indices))
	for _, i := range indices {
		kept = append(kept, items[i])
	}
	logger.Info("Homepage filter applied", zap.Int("before", len(items)), zap.Int("after", len(kept)))
	return kept
}

// summarizeItems 为缺摘要的条目并发生成摘要，受进程级 LLM 并发闸约束
func (o *Orchestrator) summarizeItems(ctx context.Context, items []*entity.ArticleItem, source *entity.MonitorSource, report func(string), logger *zap.Logger) {
	var pending []*entity.ArticleItem
	for _, it := range items {
		if strings.TrimSpace(it.Summary) == "" {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		return
	}

	report(fmt.Sprintf("Phase 2: 为 %d 条内容生成摘要", len(pending)))

	var wg sync.WaitGroup
	for idx, item := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := o.llmSem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(item *entity.ArticleItem, idx int) {
			defer wg.Done()
			defer o.llmSem.Release(1)
			o.summarizeOne(ctx, item, source, logger)
		}(item, idx)
	}
	wg.Wait()

	generated := 0
	for _, it := range pending {
		if it.Summary != "" {
			generated++
		}
	}
	report(fmt.Sprintf("Phase 2: 完成，%d/%d 条摘要生成成功", generated, len(pending)))
}

// summarizeOne 访问详情页并生成单条摘要与标签；校验不通过重试一次，仍失败则留空
func (o *Orchestrator) summarizeOne(ctx context.Context, item *entity.ArticleItem, source *entity.MonitorSource, logger *zap.Logger) {
	view, err := o.browser.Browse(ctx, item.URL, source.AllowCrossDomain)
	if err != nil || !view.OK || strings.TrimSpace(view.Text) == "" {
		return
	}

	prompt := BuildSummarizePrompt(item.Title, view.Text)

	for attempt, temp := range []float64{0.2, 0.3} {
		req := TextRequest(o.cfg.Model, summarizeSystem, prompt, temp)
		req.MaxTokens = 512

		resp, err := callLLMWithRetry(ctx, o.llm, req, o.cfg.Retry, logger)
		if err != nil {
			logger.Warn("Summary LLM failed", zap.String("url", item.URL), zap.Error(err))
			return
		}

		payload := ParseSummaryPayload(resp.Content)
		if item.ValidSummary(payload.Summary) {
			item.Summary = payload.Summary
			if len(payload.Tags) > 0 {
				item.Tags = payload.Tags
			}
			return
		}
		logger.Debug("Summary validation failed", zap.String("url", item.URL), zap.Int("attempt", attempt+1))
	}
}

func (o *Orchestrator) progressRelay(task *entity.CrawlTask, source *entity.MonitorSource) ProgressFunc {
	return func(ev entity.TaskEvent) {
		// 工具级进度只进日志，不刷任务进度行
		o.logger.Debug("Tool progress",
			zap.Uint("task_id", task.ID),
			zap.String("source", source.Name),
			zap.String("message", ev.Message),
		)
	}
}

func urlsOf(items []*entity.ArticleItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

// keepInWindow 过滤出日期落在采集窗口内的条目。
// 栏目子代理保存的条目只在这里做窗口校验，无日期的一并丢弃。
func keepInWindow(items []*entity.ArticleItem, start, now time.Time) []*entity.ArticleItem {
	kept := items[:0]
	for _, it := range items {
		if it.InWindow(start, now) {
			kept = append(kept, it)
		}
	}
	return kept
}

func remainingQuota(c *ItemCollector, maxItems int) int {
	if left := c.Remaining(); left >= 0 {
		return left
	}
	return maxItems
}

func collectorSeen(c *ItemCollector, existing map[string]bool, homepage []*entity.ArticleItem) map[string]bool {
	merged := make(map[string]bool, len(existing)+len(homepage)+c.Count())
	for u := range existing {
		merged[u] = true
	}
	for _, it := range homepage {
		merged[it.URL] = true
	}
	for _, it := range c.Items() {
		merged[it.URL] = true
	}
	return merged
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
