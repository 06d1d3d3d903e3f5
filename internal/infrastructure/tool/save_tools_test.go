package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/service"
)

func saveSource() *entity.MonitorSource {
	return &entity.MonitorSource{ID: 1, Name: "工信部", URL: "https://www.miit.gov.cn"}
}

func TestSaveResultTool(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	st := NewSaveResultTool(saveSource(), collector)

	res, err := st.Execute(context.Background(), map[string]interface{}{
		"title":          "关于某某的通知",
		"url":            "https://www.miit.gov.cn/art/1.html",
		"content_type":   "notice",
		"summary":        "这是一段足够长的摘要内容，描述通知的核心要点与适用范围。",
		"published_date": "2026-08-20",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("save failed: %s", res.Error)
	}
	if res.Metadata["accepted"] != 1 {
		t.Errorf("accepted = %v, want 1", res.Metadata["accepted"])
	}

	items := collector.Items()
	if len(items) != 1 {
		t.Fatalf("collector has %d items, want 1", len(items))
	}
	if items[0].Kind != entity.KindNotice || items[0].Date != "2026-08-20" {
		t.Errorf("item fields: %+v", items[0])
	}
}

func TestSaveResultToolCanonicalizesURL(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	st := NewSaveResultTool(saveSource(), collector)

	res, err := st.Execute(context.Background(), map[string]interface{}{
		"title":        "同一篇文章",
		"url":          "https://WWW.MIIT.gov.cn/art/1.html#section2",
		"content_type": "policy",
		"summary":      "主机大小写与锚点不同的地址应归一成同一条。",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("save failed: %s", res.Error)
	}

	items := collector.Items()
	if len(items) != 1 {
		t.Fatalf("collector has %d items, want 1", len(items))
	}
	// 落库的是归一化后的 URL
	if items[0].URL != "https://www.miit.gov.cn/art/1.html" {
		t.Errorf("stored url = %q, want canonical form", items[0].URL)
	}

	// 大小写与锚点变体视为重复
	res2, err := st.Execute(context.Background(), map[string]interface{}{
		"title":        "同一篇文章换个写法",
		"url":          "http://www.miit.gov.cn/art/1.html",
		"content_type": "policy",
		"summary":      "重复地址不应再次入库。",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res2.Output, "重复") || res2.Metadata["accepted"] != 0 {
		t.Errorf("duplicate not detected: output=%q accepted=%v", res2.Output, res2.Metadata["accepted"])
	}
	if collector.Count() != 1 {
		t.Errorf("collector count = %d, want 1", collector.Count())
	}
}

func TestSaveResultToolRejectsCrossDomain(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	st := NewSaveResultTool(saveSource(), collector)

	res, err := st.Execute(context.Background(), map[string]interface{}{
		"title":        "站外文章",
		"url":          "https://other-site.com/1.html",
		"content_type": "news",
		"summary":      "不属于本源根域名的内容",
	})
	if err != nil {
		t.Fatal(err)
	}
	// 站外条目被跳过但不报错，模型可以继续
	if !res.Success || !strings.Contains(res.Output, "站外") {
		t.Errorf("cross-domain skip: success=%v output=%q", res.Success, res.Output)
	}
	if res.Metadata["accepted"] != 0 {
		t.Errorf("accepted = %v, want 0", res.Metadata["accepted"])
	}
	if collector.Count() != 0 {
		t.Error("cross-domain item must not enter the collector")
	}
}

func TestSaveResultToolAllowsCrossDomainWhenEnabled(t *testing.T) {
	source := saveSource()
	source.AllowCrossDomain = true
	collector := service.NewItemCollector(nil, 10)
	st := NewSaveResultTool(source, collector)

	res, err := st.Execute(context.Background(), map[string]interface{}{
		"title":        "转载文章",
		"url":          "https://other-site.com/1.html",
		"content_type": "news",
		"summary":      "允许跨域时站外内容可以保存",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || collector.Count() != 1 {
		t.Errorf("cross-domain item should be saved: success=%v count=%d", res.Success, collector.Count())
	}
}

func TestSaveResultToolEmptyTitle(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	st := NewSaveResultTool(saveSource(), collector)

	res, err := st.Execute(context.Background(), map[string]interface{}{
		"title":        "  ",
		"url":          "https://www.miit.gov.cn/1.html",
		"content_type": "news",
		"summary":      "缺标题",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("empty title must fail")
	}
}

func TestSaveBatchToolItemsJSON(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	bt := NewSaveBatchTool(saveSource(), collector)

	itemsJSON := `[
		{"title":"政策一","url":"https://www.miit.gov.cn/1.html","published_date":"2026-08-20","content_type":"policy","summary":""},
		{"title":"政策二","url":"https://www.miit.gov.cn/2.html","published_date":"2026-08-19","content_type":"policy","summary":""},
		{"title":"政策一重复","url":"http://www.miit.gov.cn/1.html","published_date":"2026-08-20","content_type":"policy","summary":""}
	]`
	res, err := bt.Execute(context.Background(), map[string]interface{}{"items_json": itemsJSON})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("batch save failed: %s", res.Error)
	}
	if res.Metadata["accepted"] != 2 {
		t.Errorf("accepted = %v, want 2", res.Metadata["accepted"])
	}
	if !strings.Contains(res.Output, "跳过 1 条重复内容") {
		t.Errorf("output should mention the duplicate: %q", res.Output)
	}
	if collector.Count() != 2 {
		t.Errorf("collector count = %d, want 2", collector.Count())
	}
}

func TestSaveBatchToolItemsArray(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	bt := NewSaveBatchTool(saveSource(), collector)

	// 部分模型直接传结构化数组而不是 JSON 字符串
	res, err := bt.Execute(context.Background(), map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{
				"title":          "结构化条目",
				"url":            "https://www.miit.gov.cn/3.html",
				"published_date": "2026-08-18",
				"content_type":   "news",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Metadata["accepted"] != 1 {
		t.Errorf("structured items: success=%v accepted=%v", res.Success, res.Metadata["accepted"])
	}
}

func TestSaveBatchToolQuota(t *testing.T) {
	collector := service.NewItemCollector(nil, 1)
	bt := NewSaveBatchTool(saveSource(), collector)

	itemsJSON := `[
		{"title":"一","url":"https://www.miit.gov.cn/1.html","content_type":"news","summary":""},
		{"title":"二","url":"https://www.miit.gov.cn/2.html","content_type":"news","summary":""},
		{"title":"三","url":"https://www.miit.gov.cn/3.html","content_type":"news","summary":""}
	]`
	res, err := bt.Execute(context.Background(), map[string]interface{}{"items_json": itemsJSON})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metadata["accepted"] != 1 {
		t.Errorf("accepted = %v, want 1", res.Metadata["accepted"])
	}
	// 达到配额后提示模型收尾
	if !strings.Contains(res.Output, "finish") {
		t.Errorf("quota message should steer the model to finish: %q", res.Output)
	}
}

func TestSaveBatchToolBadArgs(t *testing.T) {
	collector := service.NewItemCollector(nil, 10)
	bt := NewSaveBatchTool(saveSource(), collector)

	cases := []map[string]interface{}{
		{},
		{"items_json": "not json"},
		{"items_json": "[]"},
	}
	for _, args := range cases {
		res, err := bt.Execute(context.Background(), args)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Errorf("args %v should fail", args)
		}
	}
}
