package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 链接列表渲染上限，避免门户首页的海量链接撑爆上下文
const maxRenderedLinks = 200

// RenderLinkList 把链接渲染成给模型看的 markdown 列表，带日期标注
func RenderLinkList(links []Link) string {
	if len(links) == 0 {
		return ""
	}
	if len(links) > maxRenderedLinks {
		links = links[:maxRenderedLinks]
	}

	var sb strings.Builder
	sb.WriteString("--- 页面链接列表 ---\n")
	for _, l := range links {
		if l.Date != "" {
			fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", l.Text, l.URL, l.Date)
		} else {
			fmt.Fprintf(&sb, "- [%s](%s)\n", l.Text, l.URL)
		}
	}
	return sb.String()
}

// RenderObservation 把一次页面观测拼成交给模型的完整文本：
// 正文、链接列表、以及可直接批量保存的条目 JSON。
func RenderObservation(obs *PageObservation) string {
	var sb strings.Builder
	sb.WriteString(obs.Text)

	if linkList := RenderLinkList(obs.Links); linkList != "" {
		sb.WriteString("\n\n")
		sb.WriteString(linkList)
	}

	if len(obs.Candidates) > 0 {
		type saveItem struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			PublishedDate string `json:"published_date"`
		}
		items := make([]saveItem, 0, len(obs.Candidates))
		for _, c := range obs.Candidates {
			items = append(items, saveItem{Title: c.Title, URL: c.URL, PublishedDate: c.Date})
		}
		payload, err := json.Marshal(items)
		if err == nil {
			fmt.Fprintf(&sb, "\n\n--- 发现 %d 条可直接采集的条目（标题+日期+链接齐全）---\n", len(items))
			sb.WriteString("可直接调用 save_results_batch 保存：\n")
			sb.Write(payload)
			sb.WriteString("\n")
		}
	} else if len(obs.Links) > 3 {
		sb.WriteString("\n\n本页链接均未解析出发布日期。若没有更多有价值的页面，请调用 finish 结束。")
	}

	return sb.String()
}
