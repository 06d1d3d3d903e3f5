package browser

import (
	"net/url"
	"strings"
)

// 两级顶级域，根域名要多取一段。政府和新闻站点大量使用 .gov.cn / .com.cn
var twoLevelTLDs = map[string]bool{
	"gov.cn": true,
	"com.cn": true,
	"net.cn": true,
	"org.cn": true,
	"edu.cn": true,
	"ac.cn":  true,
	"co.uk":  true,
	"com.hk": true,
	"co.jp":  true,
}

// Canonicalize 把 URL 归一化为稳定形式：scheme/host 小写、去掉 fragment、
// 去掉默认端口。对已归一化的输入再跑一遍结果不变。
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	return u.String(), nil
}

// DedupKey 去重键：在归一化之上把 http 映射为 https。
// 同一篇文章的 http/https 两个地址只算一条。
func DedupKey(raw string) string {
	c, err := Canonicalize(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	if strings.HasPrefix(c, "http://") {
		c = "https://" + strings.TrimPrefix(c, "http://")
	}
	return c
}

// Host 提取小写主机名（不含端口），解析失败返回空串
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// RootDomain 提取根域名：www.miit.gov.cn → miit.gov.cn，news.cctv.com → cctv.com
func RootDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	lastTwo := strings.Join(parts[len(parts)-2:], ".")
	if twoLevelTLDs[lastTwo] && len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return lastTwo
}

// SameRootDomain 判断两个 URL 是否属于同一根域名
func SameRootDomain(a, b string) bool {
	ha, hb := Host(a), Host(b)
	if ha == "" || hb == "" {
		return false
	}
	return RootDomain(ha) == RootDomain(hb)
}
