package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// PageStatus 页面访问结果状态
type PageStatus string

const (
	StatusOK         PageStatus = "ok"
	StatusLoadFailed PageStatus = "load_failed"
)

// Link 页面上的一个链接
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Date string `json:"date,omitempty"` // YYYY-MM-DD，解析不出为空
}

// Candidate 可直接采集的条目：标题像文章、带可解析日期的链接
type Candidate struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// PageObservation 一次页面访问的完整观测
type PageObservation struct {
	URL        string      `json:"url"`
	FinalURL   string      `json:"final_url,omitempty"`
	Status     PageStatus  `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	Text       string      `json:"text,omitempty"`
	Truncated  bool        `json:"truncated,omitempty"`
	Links      []Link      `json:"links,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// BrowseOptions 单次访问选项
type BrowseOptions struct {
	AllowCrossDomain bool
}

// Config 浏览器配置
type Config struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration // 单页导航超时
	SettleDelay time.Duration // DOM 加载后的静置时间，等动态内容渲染
	HostDelay   time.Duration // 同一主机两次访问的最小间隔
	MaxTextLen  int           // 页面文本上限（字符）
}

// DefaultConfig 返回默认浏览器配置
func DefaultConfig() Config {
	return Config{
		Headless:    true,
		PageTimeout: 30 * time.Second,
		SettleDelay: 2 * time.Second,
		HostDelay:   2 * time.Second,
		MaxTextLen:  15000,
	}
}

// TruncationMarker 文本截断标记
const TruncationMarker = "...[内容截断]"

// 候选条目的标题最短长度（rune）
const minCandidateTitleRunes = 8

// Fetcher 基于无头浏览器的页面抓取器。
// 浏览器懒启动、进程内共享；页面上下文不跨 goroutine 复用。
type Fetcher struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher

	hostMu    sync.Mutex
	lastVisit map[string]time.Time
}

// NewFetcher 创建抓取器，浏览器在首次访问时启动
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = 15000
	}
	return &Fetcher{
		cfg:       cfg,
		logger:    logger,
		lastVisit: make(map[string]time.Time),
	}
}

func (f *Fetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Headless(f.cfg.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	f.launcher = l
	f.browser = b
	f.logger.Info("Headless browser started")
	return b, nil
}

// Close 关闭浏览器进程。之后再调 Browse 会重新启动。
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			f.logger.Warn("Browser close failed", zap.Error(err))
		}
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
		f.launcher = nil
	}
}

// pace 保证同一主机两次访问间隔不小于 HostDelay
func (f *Fetcher) pace(ctx context.Context, host string) error {
	if f.cfg.HostDelay <= 0 || host == "" {
		return nil
	}

	f.hostMu.Lock()
	last, seen := f.lastVisit[host]
	now := time.Now()
	var wait time.Duration
	if seen {
		if elapsed := now.Sub(last); elapsed < f.cfg.HostDelay {
			wait = f.cfg.HostDelay - elapsed
		}
	}
	// 先占位，并发访问同一主机时下一个调用者会在此基础上继续排队
	f.lastVisit[host] = now.Add(wait)
	f.hostMu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// 页面内容提取脚本：剔除 script/style 后取正文文本，收集所有链接及其
// 所在列表项/表格行的局部文本（用于就近找日期）
const extractScript = `() => {
	if (!document.body) {
		return { text: "", links: [] };
	}
	const clone = document.body.cloneNode(true);
	clone.querySelectorAll("script, style, noscript").forEach(n => n.remove());
	const text = clone.innerText || clone.textContent || "";

	const links = [];
	for (const a of document.querySelectorAll("a[href]")) {
		const href = a.href;
		if (!href) continue;
		const t = (a.innerText || a.textContent || "").trim();
		let ctx = "";
		const holder = a.closest("li, tr, dd, p");
		if (holder) {
			ctx = (holder.innerText || "").trim().slice(0, 160);
		}
		links.push({ text: t, href: href, ctx: ctx });
	}
	return { text: text, links: links };
}`

type extractPayload struct {
	Text  string `json:"text"`
	Links []struct {
		Text string `json:"text"`
		Href string `json:"href"`
		Ctx  string `json:"ctx"`
	} `json:"links"`
}

// Browse 访问一个页面并返回观测结果。
// 页面加载失败不作为 error 返回，而是 Status=load_failed 的观测，
// 让上层把失败原因交还给 LLM 决策；error 只在取消或浏览器不可用时出现。
func (f *Fetcher) Browse(ctx context.Context, rawURL string, opts BrowseOptions) (*PageObservation, error) {
	pageURL, err := Canonicalize(rawURL)
	if err != nil || !strings.HasPrefix(pageURL, "http") {
		return &PageObservation{
			URL:    rawURL,
			Status: StatusLoadFailed,
			Reason: "无效的 URL",
		}, nil
	}

	if err := f.pace(ctx, Host(pageURL)); err != nil {
		return nil, err
	}

	b, err := f.ensureBrowser()
	if err != nil {
		return nil, err
	}

	obs := &PageObservation{URL: pageURL}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			f.logger.Debug("Page close failed", zap.Error(cerr))
		}
	}()

	page = page.Context(ctx).Timeout(f.cfg.PageTimeout)

	if f.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.cfg.UserAgent}); err != nil {
			f.logger.Debug("Set user agent failed", zap.Error(err))
		}
	}

	if err := page.Navigate(pageURL); err != nil {
		return f.loadFailed(ctx, obs, "导航失败", err)
	}
	if err := page.WaitLoad(); err != nil {
		return f.loadFailed(ctx, obs, "页面加载超时", err)
	}

	if f.cfg.SettleDelay > 0 {
		timer := time.NewTimer(f.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if info, ierr := page.Info(); ierr == nil {
		obs.FinalURL = info.URL
	}

	res, err := page.Eval(extractScript)
	if err != nil {
		return f.loadFailed(ctx, obs, "内容提取失败", err)
	}

	var payload extractPayload
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), &payload); err != nil {
		return f.loadFailed(ctx, obs, "内容解析失败", err)
	}

	f.fillObservation(obs, &payload, opts)
	obs.Status = StatusOK
	f.logger.Debug("Page browsed",
		zap.String("url", pageURL),
		zap.Int("text_len", len(obs.Text)),
		zap.Int("links", len(obs.Links)),
		zap.Int("candidates", len(obs.Candidates)),
	)
	return obs, nil
}

// loadFailed 把页面错误折叠成 load_failed 观测；上下文取消仍然上抛
func (f *Fetcher) loadFailed(ctx context.Context, obs *PageObservation, reason string, err error) (*PageObservation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.logger.Warn("Page load failed", zap.String("url", obs.URL), zap.String("reason", reason), zap.Error(err))
	obs.Status = StatusLoadFailed
	obs.Reason = fmt.Sprintf("%s: %v", reason, err)
	return obs, nil
}

func (f *Fetcher) fillObservation(obs *PageObservation, payload *extractPayload, opts BrowseOptions) {
	text := strings.TrimSpace(payload.Text)
	if runes := []rune(text); len(runes) > f.cfg.MaxTextLen {
		text = string(runes[:f.cfg.MaxTextLen]) + TruncationMarker
		obs.Truncated = true
	}
	obs.Text = text

	base := obs.FinalURL
	if base == "" {
		base = obs.URL
	}

	seen := make(map[string]bool)
	for _, raw := range payload.Links {
		href, err := Canonicalize(raw.Href)
		if err != nil || !strings.HasPrefix(href, "http") {
			continue
		}
		key := DedupKey(href)
		if seen[key] {
			continue
		}
		if !opts.AllowCrossDomain && !SameRootDomain(base, href) {
			continue
		}
		seen[key] = true

		link := Link{
			Text: entity.CleanTitle(raw.Text),
			URL:  href,
			Date: ExtractDate(raw.Ctx, href),
		}
		obs.Links = append(obs.Links, link)

		if link.Date != "" && len([]rune(link.Text)) >= minCandidateTitleRunes {
			obs.Candidates = append(obs.Candidates, Candidate{
				Title: link.Text,
				URL:   link.URL,
				Date:  link.Date,
			})
		}
	}
}
