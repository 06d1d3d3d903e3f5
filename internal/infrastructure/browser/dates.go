package browser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// 文本中的日期写法，按常见程度排列
var textDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
	regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`),
	regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`),
}

// URL 路径中的日期写法。政府站点常见：
// /t20240102_xxx.html、W020240102xxx.jpg、/art/2024/1/2/、/2024-01/02/
var urlDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})_`),
	regexp.MustCompile(`/W(\d{4})(\d{2})(\d{2})`),
	regexp.MustCompile(`/art/(\d{4})/(\d{1,2})/(\d{1,2})/`),
	regexp.MustCompile(`/(\d{4})-(\d{1,2})/(\d{1,2})/`),
	regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`),
	regexp.MustCompile(`[/_-](\d{4})(\d{2})(\d{2})(?:[/_.-]|$)`),
}

// ExtractDateFromText 从一段文本中提取第一个合法日期，返回 YYYY-MM-DD，找不到返回空串
func ExtractDateFromText(s string) string {
	for _, re := range textDatePatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if d := normalizeYMD(m[1], m[2], m[3]); d != "" {
				return d
			}
		}
	}
	return ""
}

// ExtractDateFromURL 从 URL 路径中提取日期，返回 YYYY-MM-DD，找不到返回空串
func ExtractDateFromURL(u string) string {
	for _, re := range urlDatePatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			if d := normalizeYMD(m[1], m[2], m[3]); d != "" {
				return d
			}
		}
	}
	return ""
}

// ExtractDate 先看 DOM 附近文本，再退回 URL 路径
func ExtractDate(context, url string) string {
	if d := ExtractDateFromText(context); d != "" {
		return d
	}
	return ExtractDateFromURL(url)
}

// normalizeYMD 校验并归一化年月日。年份限定在 2000 到明年之间，
// 过滤掉电话号码、文号等数字串的误匹配。
func normalizeYMD(ys, ms, ds string) string {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if y < 2000 || y > time.Now().Year()+1 {
		return ""
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return ""
	}
	candidate := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	if _, err := time.Parse("2006-01-02", candidate); err != nil {
		return ""
	}
	return candidate
}
