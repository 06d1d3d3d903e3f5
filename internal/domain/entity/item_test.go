package entity

import (
	"testing"
	"time"
)

func TestInWindow(t *testing.T) {
	now := time.Date(2026, 8, 24, 15, 0, 0, 0, time.Local)
	start := time.Date(2026, 8, 18, 0, 0, 0, 0, time.Local)

	cases := []struct {
		date string
		want bool
	}{
		{"2026-08-24", true}, // 当天算在窗口内
		{"2026-08-18", true}, // 窗口起始日
		{"2026-08-17", false},
		{"2026-08-25", false}, // 未来日期
		{"", false},
		{"不是日期", false},
	}
	for _, c := range cases {
		it := &ArticleItem{Date: c.date}
		if got := it.InWindow(start, now); got != c.want {
			t.Errorf("InWindow(%q) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-08-20 关于某某的通知", "关于某某的通知"},
		{"[2026-08-20] 关于某某的通知", "关于某某的通知"},
		{"2026年8月20日：政策发布", "政策发布"},
		{"标题　带　全角空格", "标题 带 全角空格"},
		{"  普通标题  ", "普通标题"},
	}
	for _, c := range cases {
		if got := CleanTitle(c.in); got != c.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidSummary(t *testing.T) {
	it := &ArticleItem{Title: "关于促进产业发展的通知"}

	if it.ValidSummary("") {
		t.Error("empty summary is invalid")
	}
	if it.ValidSummary("关于促进产业发展的通知") {
		t.Error("title echo is invalid")
	}
	if it.ValidSummary("太短") {
		t.Error("short summary is invalid")
	}
	if !it.ValidSummary("该通知提出了促进产业发展的十项措施，覆盖融资、用地与人才引进。") {
		t.Error("real summary should be valid")
	}
}

func TestNormalizeContentKind(t *testing.T) {
	cases := []struct {
		in   string
		want ContentKind
	}{
		{"policy", KindPolicy},
		{"政策文件", KindPolicy},
		{"News", KindNews},
		{"通知公告", KindNotice},
		{"解读", KindInterpretation},
		{"别的什么", KindOther},
		{"", KindOther},
	}
	for _, c := range cases {
		if got := NormalizeContentKind(c.in); got != c.want {
			t.Errorf("NormalizeContentKind(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestSourceDefaults(t *testing.T) {
	s := &MonitorSource{}
	if s.EffectiveMaxItems() != DefaultMaxItems {
		t.Errorf("max items = %d", s.EffectiveMaxItems())
	}
	if s.EffectiveWindowDays() != DefaultWindowDays {
		t.Errorf("window days = %d", s.EffectiveWindowDays())
	}

	s.MaxItems, s.WindowDays = 5, 3
	now := time.Date(2026, 8, 24, 15, 30, 0, 0, time.Local)
	start := s.WindowStart(now)
	want := time.Date(2026, 8, 22, 0, 0, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("window start = %v, want %v", start, want)
	}
}
