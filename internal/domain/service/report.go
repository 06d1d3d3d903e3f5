package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// ReportBuilder 把一个批次的采集结果汇总成报告：
// LLM 生成整体概述（markdown），goldmark 渲染成 HTML，再拼各源条目分节。
type ReportBuilder struct {
	llm    LLMClient
	md     goldmark.Markdown
	model  string
	retry  RetryConfig
	logger *zap.Logger
}

func NewReportBuilder(llm LLMClient, model string, retry RetryConfig, logger *zap.Logger) *ReportBuilder {
	return &ReportBuilder{
		llm:    llm,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		model:  model,
		retry:  retry.withDefaults(),
		logger: logger,
	}
}

// Build 生成批次报告。items 为空时返回 nil 表示无可报告内容。
// 概述生成失败不阻断报告，只是缺少概述部分。
func (b *ReportBuilder) Build(ctx context.Context, batchID string, items []*entity.ArticleItem, now time.Time) *entity.Report {
	if len(items) == 0 {
		return nil
	}

	bySource, order := groupBySource(items)
	overview := b.generateOverview(ctx, bySource, order)

	title := fmt.Sprintf("%s更新汇总报告%s", strings.Join(order, "、"), now.Format("2006-01-02"))

	return &entity.Report{
		BatchID:   batchID,
		Title:     title,
		Overview:  overview,
		HTML:      b.renderHTML(title, overview, bySource, order),
		Text:      renderText(title, overview, bySource, order),
		ItemCount: len(items),
		CreatedAt: now,
	}
}

// groupBySource 按源名称分组，order 保持条目首次出现的源顺序
func groupBySource(items []*entity.ArticleItem) (map[string][]*entity.ArticleItem, []string) {
	bySource := make(map[string][]*entity.ArticleItem)
	var order []string
	for _, it := range items {
		name := it.SourceName
		if name == "" {
			name = fmt.Sprintf("源%d", it.SourceID)
		}
		if _, ok := bySource[name]; !ok {
			order = append(order, name)
		}
		bySource[name] = append(bySource[name], it)
	}
	return bySource, order
}

func (b *ReportBuilder) generateOverview(ctx context.Context, bySource map[string][]*entity.ArticleItem, order []string) string {
	req := TextRequest(b.model, overviewSystem, BuildOverviewPrompt(bySource, order), 0.3)
	req.MaxTokens = 1500

	resp, err := callLLMWithRetry(ctx, b.llm, req, b.retry, b.logger)
	if err != nil {
		b.logger.Warn("Overview generation failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// overviewToHTML 用 goldmark 把概述 markdown 渲染为 HTML
func (b *ReportBuilder) overviewToHTML(overview string) string {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(overview), &buf); err != nil {
		b.logger.Warn("Overview markdown render failed", zap.Error(err))
		return fmt.Sprintf("<p>%s</p>", overview)
	}
	return buf.String()
}

func (b *ReportBuilder) renderHTML(title, overview string, bySource map[string][]*entity.ArticleItem, order []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", title))

	if overview != "" {
		sb.WriteString(`<div style="margin:20px 0;padding:20px;background:#f0f7ff;border-radius:8px;border-left:4px solid #1a56db;">` + "\n")
		sb.WriteString(`<h2 style="margin:0 0 12px 0;color:#1a56db;font-size:18px;">整体概述</h2>` + "\n")
		sb.WriteString(b.overviewToHTML(overview))
		sb.WriteString("</div>\n")
		sb.WriteString(`<hr style="margin:24px 0;border-color:#e5e7eb;">` + "\n")
	}

	for _, src := range order {
		items := bySource[src]
		sb.WriteString(fmt.Sprintf(`<h2 style="border-left:4px solid #1a56db;padding-left:12px;">%s · %d 条更新</h2>`+"\n", src, len(items)))

		for _, it := range items {
			sb.WriteString(`<div style="margin:16px 0;padding:12px;border:1px solid #e5e7eb;border-radius:8px;">` + "\n")
			sb.WriteString(fmt.Sprintf(`<p style="margin:0;"><strong>[%s] %s</strong></p>`+"\n", KindLabel(it.Kind), it.Title))
			if it.Date != "" {
				sb.WriteString(fmt.Sprintf(`<p style="color:#6b7280;font-size:14px;">发布日期：%s</p>`+"\n", it.Date))
			}
			if hasRealSummary(it) {
				sb.WriteString(fmt.Sprintf(`<p style="margin:8px 0;">%s</p>`+"\n", it.Summary))
			}
			if it.Attachment != "" {
				sb.WriteString(fmt.Sprintf("<p>📎 附件: %s</p>\n", it.Attachment))
				if it.AttachmentSummary != "" {
					sb.WriteString(fmt.Sprintf(`<p style="color:#4b5563;font-size:14px;">附件摘要: %s</p>`+"\n", it.AttachmentSummary))
				}
			}
			sb.WriteString(fmt.Sprintf(`<p><a href="%s" style="color:#1a56db;">🔗 查看原文</a></p>`+"\n", it.URL))
			sb.WriteString("</div>\n")
		}
	}

	sb.WriteString(`<hr style="margin:24px 0;">` + "\n")
	sb.WriteString(`<p style="color:#9ca3af;font-size:12px;">此邮件由政策情报助手自动生成（AI摘要仅供参考）</p>`)
	return sb.String()
}

func renderText(title, overview string, bySource map[string][]*entity.ArticleItem, order []string) string {
	var lines []string
	lines = append(lines, title, strings.Repeat("=", 40))

	if overview != "" {
		lines = append(lines, "\n【整体概述】", overview, "\n"+strings.Repeat("-", 40))
	}

	for _, src := range order {
		items := bySource[src]
		lines = append(lines, fmt.Sprintf("\n== %s (%d条更新) ==\n", src, len(items)))
		for i, it := range items {
			lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, KindLabel(it.Kind), it.Title))
			if it.Date != "" {
				lines = append(lines, fmt.Sprintf("   日期: %s", it.Date))
			}
			if hasRealSummary(it) {
				summary := []rune(it.Summary)
				if len(summary) > 200 {
					summary = summary[:200]
				}
				lines = append(lines, fmt.Sprintf("   > %s", string(summary)))
			}
			if it.Attachment != "" {
				lines = append(lines, fmt.Sprintf("   📎 附件: %s", it.Attachment))
			}
			lines = append(lines, fmt.Sprintf("   链接: %s", it.URL), "")
		}
	}
	return strings.Join(lines, "\n")
}

// hasRealSummary 摘要存在且不是标题的照抄才值得展示
func hasRealSummary(it *entity.ArticleItem) bool {
	s := strings.TrimSpace(it.Summary)
	return s != "" && s != strings.TrimSpace(it.Title)
}
