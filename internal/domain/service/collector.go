package service

import (
	"strings"
	"sync"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

// NormalizeDedupURL 去重键：http 与 https 指向的同一路径视为同一条目
func NormalizeDedupURL(raw string) string {
	u := strings.TrimSpace(raw)
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// ItemCollector 单个任务的条目收集器。
// 保存工具向它写入，编排器在任务结束时取走全部条目统一落库。
// 预置的已采集 URL 集合实现跨任务与跨栏目去重。
type ItemCollector struct {
	mu    sync.Mutex
	seen  map[string]bool
	items []*entity.ArticleItem
	quota int
}

// NewItemCollector 创建收集器，existing 为已采集 URL 集合，quota <= 0 表示不限量
func NewItemCollector(existing map[string]bool, quota int) *ItemCollector {
	seen := make(map[string]bool, len(existing))
	for u := range existing {
		seen[NormalizeDedupURL(u)] = true
	}
	return &ItemCollector{
		seen:  seen,
		quota: quota,
	}
}

// Add 尝试收录一个条目。重复 URL、空标题、摘要等于标题的条目被拒绝。
// 返回 nil 表示收录成功。
func (c *ItemCollector) Add(item *entity.ArticleItem) error {
	title := entity.CleanTitle(item.Title)
	if title == "" {
		return entity.ErrEmptyItemTitle
	}
	item.Title = title

	// 摘要照抄标题等于没有摘要
	if strings.TrimSpace(item.Summary) == title {
		item.Summary = ""
	}

	key := NormalizeDedupURL(item.URL)
	if key == "" {
		return entity.ErrInvalidSourceURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[key] {
		return entity.ErrDuplicateURL
	}
	if c.quota > 0 && len(c.items) >= c.quota {
		return entity.ErrQuotaReached
	}
	c.seen[key] = true
	c.items = append(c.items, item)
	return nil
}

// MarkSeen 把一批 URL 标记为已采集（用于首页条目并入后的跨栏目去重）
func (c *ItemCollector) MarkSeen(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		c.seen[NormalizeDedupURL(u)] = true
	}
}

// Items 返回已收录条目的切片副本
func (c *ItemCollector) Items() []*entity.ArticleItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entity.ArticleItem, len(c.items))
	copy(out, c.items)
	return out
}

// Count 返回已收录条目数
func (c *ItemCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Remaining 返回剩余配额，不限量时返回 -1
func (c *ItemCollector) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quota <= 0 {
		return -1
	}
	left := c.quota - len(c.items)
	if left < 0 {
		left = 0
	}
	return left
}
