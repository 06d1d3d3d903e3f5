package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/service"
	domaintool "github.com/zcradar/zcradar/internal/domain/tool"
	"github.com/zcradar/zcradar/internal/infrastructure/browser"
)

// 已达配额时交还给模型的提示
const quotaReachedMsg = "条目数量已达上限，请调用 finish 结束本栏目。"

// SaveResultTool 保存单个条目到任务收集器
type SaveResultTool struct {
	source    *entity.MonitorSource
	collector *service.ItemCollector
}

func NewSaveResultTool(source *entity.MonitorSource, collector *service.ItemCollector) *SaveResultTool {
	return &SaveResultTool{source: source, collector: collector}
}

func (t *SaveResultTool) Name() string { return "save_result" }

func (t *SaveResultTool) Description() string {
	return "保存一条采集到的内容。标题、链接、类型、摘要为必填，发布日期格式 YYYY-MM-DD。"
}

func (t *SaveResultTool) Kind() domaintool.Kind { return domaintool.KindSave }

func (t *SaveResultTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "内容标题",
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "内容页面 URL",
			},
			"content_type": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"news", "policy", "notice", "interpretation"},
				"description": "内容类型：news(新闻) policy(政策文件) notice(通知公告) interpretation(政策解读)",
			},
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "内容摘要，100-200字",
			},
			"published_date": map[string]interface{}{
				"type":        "string",
				"description": "发布日期，格式 YYYY-MM-DD",
			},
			"attachment_name": map[string]interface{}{
				"type":        "string",
				"description": "附件文件名（如有）",
			},
			"attachment_summary": map[string]interface{}{
				"type":        "string",
				"description": "附件内容摘要（如有）",
			},
		},
		"required": []string{"title", "url", "content_type", "summary"},
	}
}

func (t *SaveResultTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	item := &entity.ArticleItem{
		Title:             domaintool.StringArg(args, "title"),
		URL:               domaintool.StringArg(args, "url"),
		Kind:              entity.NormalizeContentKind(domaintool.StringArg(args, "content_type")),
		Summary:           domaintool.StringArg(args, "summary"),
		Date:              domaintool.StringArg(args, "published_date"),
		Attachment:        domaintool.StringArg(args, "attachment_name"),
		AttachmentSummary: domaintool.StringArg(args, "attachment_summary"),
	}

	outcome := acceptItem(t.source, t.collector, item)
	return outcome.result(), nil
}

// SaveBatchTool 批量保存条目，接受 items 数组或 items_json 字符串两种传参
type SaveBatchTool struct {
	source    *entity.MonitorSource
	collector *service.ItemCollector
}

func NewSaveBatchTool(source *entity.MonitorSource, collector *service.ItemCollector) *SaveBatchTool {
	return &SaveBatchTool{source: source, collector: collector}
}

func (t *SaveBatchTool) Name() string { return "save_results_batch" }

func (t *SaveBatchTool) Description() string {
	return "批量保存多条采集到的内容。items_json 为 JSON 数组字符串，每项含 title, url, published_date, content_type, summary。"
}

func (t *SaveBatchTool) Kind() domaintool.Kind { return domaintool.KindSave }

func (t *SaveBatchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items_json": map[string]interface{}{
				"type": "string",
				"description": `JSON 数组字符串，每项字段 title, url, published_date, content_type(news/policy/notice/interpretation), summary。` +
					`示例: [{"title":"标题1","url":"http://...","published_date":"2026-01-30","content_type":"news","summary":""}]`,
			},
		},
		"required": []string{"items_json"},
	}
}

type batchItem struct {
	Title             string `json:"title"`
	URL               string `json:"url"`
	ContentType       string `json:"content_type"`
	Summary           string `json:"summary"`
	PublishedDate     string `json:"published_date"`
	AttachmentName    string `json:"attachment_name"`
	AttachmentSummary string `json:"attachment_summary"`
}

func (t *SaveBatchTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	items, err := parseBatchItems(args)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}
	if len(items) == 0 {
		return &domaintool.Result{Success: false, Error: "没有可保存的条目"}, nil
	}

	var total saveOutcome
	for _, bi := range items {
		item := &entity.ArticleItem{
			Title:             bi.Title,
			URL:               bi.URL,
			Kind:              entity.NormalizeContentKind(bi.ContentType),
			Summary:           bi.Summary,
			Date:              bi.PublishedDate,
			Attachment:        bi.AttachmentName,
			AttachmentSummary: bi.AttachmentSummary,
		}
		outcome := acceptItem(t.source, t.collector, item)
		total.merge(outcome)
		if outcome.quotaHit {
			break
		}
	}

	return total.batchResult(t.collector.Count()), nil
}

// parseBatchItems 同时兼容 items 数组与 items_json 字符串两种传参格式
func parseBatchItems(args map[string]interface{}) ([]batchItem, error) {
	if raw, ok := args["items"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("items 参数无法解析: %v", err)
		}
		var items []batchItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("items 参数格式错误: %v", err)
		}
		if len(items) > 0 {
			return items, nil
		}
	}

	rawJSON := domaintool.StringArg(args, "items_json")
	if rawJSON == "" {
		return nil, errors.New("缺少 items_json 参数")
	}
	var items []batchItem
	if err := json.Unmarshal([]byte(rawJSON), &items); err != nil {
		return nil, fmt.Errorf("items_json 不是合法的 JSON 数组: %v", err)
	}
	return items, nil
}

// saveOutcome 条目保存的归类统计
type saveOutcome struct {
	saved        int
	dupSkipped   int
	crossSkipped int
	rejected     int
	quotaHit     bool
	lastTitle    string
}

func (o *saveOutcome) merge(other saveOutcome) {
	o.saved += other.saved
	o.dupSkipped += other.dupSkipped
	o.crossSkipped += other.crossSkipped
	o.rejected += other.rejected
	o.quotaHit = o.quotaHit || other.quotaHit
	if other.lastTitle != "" {
		o.lastTitle = other.lastTitle
	}
}

// acceptItem 先归一化 URL 再做站外过滤，去重、空标题、配额由收集器裁决。
// 归一化后的 URL 就是落库形态，收集器的去重键因此对锚点与大小写不敏感。
func acceptItem(source *entity.MonitorSource, collector *service.ItemCollector, item *entity.ArticleItem) saveOutcome {
	if canon, err := browser.Canonicalize(item.URL); err == nil {
		item.URL = canon
	}
	if !source.AllowCrossDomain && item.URL != "" && !browser.SameRootDomain(source.URL, item.URL) {
		return saveOutcome{crossSkipped: 1, lastTitle: item.Title}
	}

	err := collector.Add(item)
	switch {
	case err == nil:
		return saveOutcome{saved: 1, lastTitle: item.Title}
	case errors.Is(err, entity.ErrDuplicateURL):
		return saveOutcome{dupSkipped: 1, lastTitle: item.Title}
	case errors.Is(err, entity.ErrQuotaReached):
		return saveOutcome{quotaHit: true, lastTitle: item.Title}
	default:
		return saveOutcome{rejected: 1, lastTitle: item.Title}
	}
}

func (o saveOutcome) result() *domaintool.Result {
	meta := map[string]interface{}{"accepted": o.saved}

	switch {
	case o.quotaHit:
		return &domaintool.Result{Output: quotaReachedMsg, Success: true, Metadata: meta}
	case o.crossSkipped > 0:
		return &domaintool.Result{
			Output:   fmt.Sprintf("已跳过站外条目: %s", o.lastTitle),
			Success:  true,
			Metadata: meta,
		}
	case o.dupSkipped > 0:
		return &domaintool.Result{
			Output:   fmt.Sprintf("已跳过重复条目: %s", o.lastTitle),
			Success:  true,
			Metadata: meta,
		}
	case o.rejected > 0:
		return &domaintool.Result{Success: false, Error: "条目缺少有效标题或链接"}
	default:
		return &domaintool.Result{
			Output:   fmt.Sprintf("已保存: %s", o.lastTitle),
			Display:  fmt.Sprintf("保存: %s", truncateForDisplay(o.lastTitle, 50)),
			Success:  true,
			Metadata: meta,
		}
	}
}

func (o saveOutcome) batchResult(totalCount int) *domaintool.Result {
	msg := fmt.Sprintf("批量保存成功: %d 条（当前共 %d 条）", o.saved, totalCount)
	if o.crossSkipped > 0 {
		msg += fmt.Sprintf("，跳过 %d 条站外内容", o.crossSkipped)
	}
	if o.dupSkipped > 0 {
		msg += fmt.Sprintf("，跳过 %d 条重复内容", o.dupSkipped)
	}
	if o.quotaHit {
		msg += "。" + quotaReachedMsg
	}

	return &domaintool.Result{
		Output:   msg,
		Display:  fmt.Sprintf("批量保存 %d 条", o.saved),
		Success:  true,
		Metadata: map[string]interface{}{"accepted": o.saved},
	}
}
