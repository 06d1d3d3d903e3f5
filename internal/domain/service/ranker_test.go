package service

import (
	"reflect"
	"testing"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n[0,1]\n```", "[0,1]"},
		{"```\n[0,1]\n```", "[0,1]"},
		{"[0,1]", "[0,1]"},
		{"  [0,1]  ", "[0,1]"},
	}
	for _, c := range cases {
		if got := StripCodeFence(c.in); got != c.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseIndexArray(t *testing.T) {
	// 合法排列
	got, ok := ParseIndexArray("[2,0,1]", 3)
	if !ok || !reflect.DeepEqual(got, []int{2, 0, 1}) {
		t.Errorf("got %v ok=%v", got, ok)
	}

	// 越界和重复被清掉，缺失的补到末尾
	got, ok = ParseIndexArray("[2, 2, 5, 0]", 3)
	if !ok || !reflect.DeepEqual(got, []int{2, 0, 1}) {
		t.Errorf("got %v ok=%v", got, ok)
	}

	// 围栏包裹与前后缀文字
	got, ok = ParseIndexArray("排序结果如下：\n```json\n[1,0]\n```", 2)
	if !ok || !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("got %v ok=%v", got, ok)
	}

	// 不可解析
	if _, ok := ParseIndexArray("抱歉，我无法排序", 3); ok {
		t.Error("prose should not parse")
	}
	if _, ok := ParseIndexArray("[]", 3); ok {
		t.Error("empty array should not parse")
	}
	if _, ok := ParseIndexArray(`["a","b"]`, 2); ok {
		t.Error("string array should not parse")
	}
}

func TestParseIndexSubsetDoesNotBackfill(t *testing.T) {
	got, ok := ParseIndexSubset("[2,0]", 4)
	if !ok || !reflect.DeepEqual(got, []int{2, 0}) {
		t.Errorf("got %v ok=%v", got, ok)
	}
	// 全部越界时视为失败
	if _, ok := ParseIndexSubset("[9,10]", 4); ok {
		t.Error("all out-of-range should fail")
	}
}

func TestParseSections(t *testing.T) {
	raw := "```json\n" + `[
		{"name": "政策法规", "url": "https://a.gov.cn/zcfg/"},
		{"name": "缺链接的栏目", "url": ""},
		{"name": "工作动态", "url": "https://a.gov.cn/gzdt/"}
	]` + "\n```"
	sections, ok := ParseSections(raw)
	if !ok {
		t.Fatal("parse failed")
	}
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Name != "政策法规" || sections[1].Name != "工作动态" {
		t.Errorf("unexpected sections: %+v", sections)
	}
}

func TestSortItemsByDateDesc(t *testing.T) {
	items := []*entity.ArticleItem{
		{Title: "无日期", Date: ""},
		{Title: "旧", Date: "2024-01-02"},
		{Title: "新", Date: "2024-03-05"},
		{Title: "同日一", Date: "2024-02-01"},
		{Title: "同日二", Date: "2024-02-01"},
	}
	SortItemsByDateDesc(items)

	wantOrder := []string{"新", "同日一", "同日二", "旧", "无日期"}
	for i, w := range wantOrder {
		if items[i].Title != w {
			t.Errorf("position %d = %q, want %q", i, items[i].Title, w)
		}
	}
}

func TestParseSummaryPayload(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantSum  string
		wantTags []string
	}{
		{
			"标准JSON",
			`{"summary": "财政部发布专项债新规。", "tags": ["专项债", "地方财政"]}`,
			"财政部发布专项债新规。",
			[]string{"专项债", "地方财政"},
		},
		{
			"代码围栏包裹",
			"```json\n{\"summary\": \"工信部公布名单。\", \"tags\": [\"制造业\"]}\n```",
			"工信部公布名单。",
			[]string{"制造业"},
		},
		{
			"纯文本回落",
			"  这篇文章介绍了新能源补贴政策的调整方向。  ",
			"这篇文章介绍了新能源补贴政策的调整方向。",
			nil,
		},
		{
			"空白标签被丢弃",
			`{"summary": "摘要", "tags": ["  ", "出口管制", ""]}`,
			"摘要",
			[]string{"出口管制"},
		},
		{
			"标签超限截断",
			`{"summary": "摘要", "tags": ["a", "b", "c", "d", "e", "f", "g"]}`,
			"摘要",
			[]string{"a", "b", "c", "d", "e"},
		},
		{
			"JSON空摘要不回落成原文",
			`{"summary": "", "tags": []}`,
			"",
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ParseSummaryPayload(tc.raw)
			if p.Summary != tc.wantSum {
				t.Errorf("summary = %q, want %q", p.Summary, tc.wantSum)
			}
			if len(p.Tags) != len(tc.wantTags) {
				t.Fatalf("tags = %v, want %v", p.Tags, tc.wantTags)
			}
			for i := range tc.wantTags {
				if p.Tags[i] != tc.wantTags[i] {
					t.Errorf("tag %d = %q, want %q", i, p.Tags[i], tc.wantTags[i])
				}
			}
		})
	}
}
