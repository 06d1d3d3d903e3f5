package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

func reportItems() []*entity.ArticleItem {
	return []*entity.ArticleItem{
		{SourceName: "工信部", Title: "政策一", URL: "https://a.gov.cn/1.html", Kind: entity.KindPolicy, Date: "2024-03-05", Summary: "这是一段足够长的政策摘要内容，描述了政策要点。", Rank: 1},
		{SourceName: "工信部", Title: "通知二", URL: "https://a.gov.cn/2.html", Kind: entity.KindNotice, Date: "2024-03-04", Rank: 2},
		{SourceName: "发改委", Title: "动态三", URL: "https://b.gov.cn/1.html", Kind: entity.KindNews, Date: "2024-03-03", Rank: 1},
	}
}

func TestReportBuilderEmptyItems(t *testing.T) {
	b := NewReportBuilder(&scriptedLLM{}, "test/model", fastRetry(), zap.NewNop())
	if r := b.Build(context.Background(), "batch-1", nil, time.Now()); r != nil {
		t.Errorf("empty batch should yield nil report, got %+v", r)
	}
}

func TestReportBuilderBuild(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{Content: "本周**工信部**发布多项政策。"},
	}}
	b := NewReportBuilder(llm, "test/model", fastRetry(), zap.NewNop())

	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.Local)
	report := b.Build(context.Background(), "batch-1", reportItems(), now)
	if report == nil {
		t.Fatal("report is nil")
	}

	if report.BatchID != "batch-1" || report.ItemCount != 3 {
		t.Errorf("report meta: %+v", report)
	}
	if report.Title != "工信部、发改委更新汇总报告2024-03-06" {
		t.Errorf("title = %q", report.Title)
	}

	// 概述的 markdown 被渲染成 HTML
	if !strings.Contains(report.HTML, "<strong>工信部</strong>") {
		t.Error("overview markdown should be rendered to HTML")
	}
	// 源分节按条目首次出现顺序排列
	first := strings.Index(report.HTML, "工信部 · 2 条更新")
	second := strings.Index(report.HTML, "发改委 · 1 条更新")
	if first < 0 || second < 0 || first > second {
		t.Errorf("source sections out of order: %d, %d", first, second)
	}

	if !strings.Contains(report.Text, "== 工信部 (2条更新) ==") {
		t.Errorf("text body missing source section:\n%s", report.Text)
	}
	if !strings.Contains(report.Text, "1. [政策] 政策一") {
		t.Errorf("text body missing ranked item:\n%s", report.Text)
	}
}

func TestReportBuilderOverviewFailureTolerated(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("bad request: invalid api key")}}
	b := NewReportBuilder(llm, "test/model", fastRetry(), zap.NewNop())

	report := b.Build(context.Background(), "batch-1", reportItems(), time.Now())
	if report == nil {
		t.Fatal("overview failure must not block the report")
	}
	if report.Overview != "" {
		t.Errorf("overview = %q, want empty", report.Overview)
	}
	if strings.Contains(report.HTML, "整体概述") || strings.Contains(report.Text, "【整体概述】") {
		t.Error("overview section should be omitted when generation failed")
	}
}

func TestReportTextSkipsTitleEchoSummary(t *testing.T) {
	items := []*entity.ArticleItem{
		{SourceName: "工信部", Title: "某通知", URL: "https://a.gov.cn/1.html", Kind: entity.KindNotice, Date: "2024-03-05", Summary: "某通知"},
	}
	llm := &scriptedLLM{responses: []*LLMResponse{{Content: "概述"}}}
	b := NewReportBuilder(llm, "test/model", fastRetry(), zap.NewNop())

	report := b.Build(context.Background(), "batch-1", items, time.Now())
	if report == nil {
		t.Fatal("report is nil")
	}
	if strings.Contains(report.Text, "> 某通知") {
		t.Error("summary echoing title should not appear in text body")
	}
}

func TestGroupBySourceFallbackName(t *testing.T) {
	items := []*entity.ArticleItem{{SourceID: 7, Title: "无名源条目", URL: "https://x.cn/1.html"}}
	bySource, order := groupBySource(items)
	if len(order) != 1 || order[0] != "源7" {
		t.Errorf("order = %v, want [源7]", order)
	}
	if len(bySource["源7"]) != 1 {
		t.Errorf("grouping lost the item: %v", bySource)
	}
}
