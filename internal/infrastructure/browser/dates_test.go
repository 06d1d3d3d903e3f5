package browser

import "testing"

func TestExtractDateFromText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"发布时间：2024-03-05", "2024-03-05"},
		{"2024/3/5 更新", "2024-03-05"},
		{"2024.03.05", "2024-03-05"},
		{"2024年3月5日 来源：办公厅", "2024-03-05"},
		{"电话 010-12345678", ""},
		{"1999-01-01 太早", ""},
		{"2024-13-05 非法月份", ""},
		{"没有日期", ""},
	}
	for _, c := range cases {
		if got := ExtractDateFromText(c.in); got != c.want {
			t.Errorf("ExtractDateFromText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractDateFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.miit.gov.cn/art/2024/3/5/art_112_123.html", "2024-03-05"},
		{"https://www.gov.cn/zhengce/t20240305_123456.html", "2024-03-05"},
		{"https://site.cn/2024-03/05/content_1.htm", "2024-03-05"},
		{"https://site.cn/news/20240305/index.html", "2024-03-05"},
		{"https://site.cn/article/987654.html", ""},
	}
	for _, c := range cases {
		if got := ExtractDateFromURL(c.in); got != c.want {
			t.Errorf("ExtractDateFromURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractDatePrefersText(t *testing.T) {
	got := ExtractDate("2024-06-01 发布", "https://site.cn/t20240305_1.html")
	if got != "2024-06-01" {
		t.Errorf("ExtractDate should prefer text date, got %q", got)
	}
	got = ExtractDate("无日期文本", "https://site.cn/t20240305_1.html")
	if got != "2024-03-05" {
		t.Errorf("ExtractDate should fall back to URL, got %q", got)
	}
}

func TestExtractDateRejectsInvalidCalendarDay(t *testing.T) {
	if got := ExtractDateFromText("2023-02-30 会议"); got != "" {
		t.Errorf("expected empty for impossible date, got %q", got)
	}
}
