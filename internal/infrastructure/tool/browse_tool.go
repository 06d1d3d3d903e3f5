package tool

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domaintool "github.com/zcradar/zcradar/internal/domain/tool"
	"github.com/zcradar/zcradar/internal/infrastructure/browser"
)

// BrowseTool 访问一个页面并把正文、链接列表和可采集条目交还给模型
type BrowseTool struct {
	fetcher          *browser.Fetcher
	allowCrossDomain bool
	logger           *zap.Logger
}

func NewBrowseTool(fetcher *browser.Fetcher, allowCrossDomain bool, logger *zap.Logger) *BrowseTool {
	return &BrowseTool{
		fetcher:          fetcher,
		allowCrossDomain: allowCrossDomain,
		logger:           logger,
	}
}

func (t *BrowseTool) Name() string { return "browse_page" }

func (t *BrowseTool) Description() string {
	return "访问指定 URL，返回页面正文和带日期标注的链接列表。带日期的条目会以 JSON 形式列出，可直接用 save_results_batch 保存。"
}

func (t *BrowseTool) Kind() domaintool.Kind { return domaintool.KindFetch }

func (t *BrowseTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "要访问的页面 URL",
			},
		},
		"required": []string{"url"},
	}
}

func (t *BrowseTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	url := domaintool.StringArg(args, "url")
	if url == "" {
		return &domaintool.Result{Success: false, Error: "缺少 url 参数"}, nil
	}

	obs, err := t.fetcher.Browse(ctx, url, browser.BrowseOptions{AllowCrossDomain: t.allowCrossDomain})
	if err != nil {
		return nil, err
	}
	if obs.Status != browser.StatusOK {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("页面加载失败: %s", obs.Reason),
		}, nil
	}

	return &domaintool.Result{
		Output:  browser.RenderObservation(obs),
		Display: fmt.Sprintf("浏览: %s", truncateForDisplay(url, 80)),
		Success: true,
		Metadata: map[string]interface{}{
			"links":      len(obs.Links),
			"candidates": len(obs.Candidates),
		},
	}, nil
}

func truncateForDisplay(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
