package entity

import (
	"regexp"
	"strings"
	"time"
)

// ContentKind 条目内容类型
type ContentKind string

const (
	KindPolicy         ContentKind = "policy"         // 政策文件
	KindNews           ContentKind = "news"           // 新闻动态
	KindNotice         ContentKind = "notice"         // 通知公告
	KindInterpretation ContentKind = "interpretation" // 政策解读
	KindOther          ContentKind = "other"
)

// NormalizeContentKind 把 LLM 返回的类型字符串归一到已知枚举
func NormalizeContentKind(raw string) ContentKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "policy", "政策", "政策文件":
		return KindPolicy
	case "news", "新闻", "新闻动态":
		return KindNews
	case "notice", "通知", "公告", "通知公告":
		return KindNotice
	case "interpretation", "解读", "政策解读":
		return KindInterpretation
	default:
		return KindOther
	}
}

// DateLayout 条目日期的统一格式
const DateLayout = "2006-01-02"

// ArticleItem 采集到的单条文章
type ArticleItem struct {
	ID                uint        `json:"id,omitempty"`
	TaskID            uint        `json:"task_id,omitempty"`
	SourceID          uint        `json:"source_id"`
	SourceName        string      `json:"source_name"`
	Title             string      `json:"title"`
	URL               string      `json:"url"`
	Kind              ContentKind `json:"kind"`
	Date              string      `json:"date"` // YYYY-MM-DD，可为空表示未解析出日期
	Summary           string      `json:"summary,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
	Attachment        string      `json:"attachment,omitempty"` // 附件文件名，空表示无附件
	AttachmentSummary string      `json:"attachment_summary,omitempty"`
	Rank              int         `json:"rank"` // 报告中的排序位次，从 1 开始
	CreatedAt         time.Time   `json:"created_at,omitempty"`
}

// ParsedDate 解析日期字段，无法解析返回零值
func (it *ArticleItem) ParsedDate() time.Time {
	t, err := time.Parse(DateLayout, it.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InWindow 判断条目日期是否落在 [start, now] 窗口内
func (it *ArticleItem) InWindow(start, now time.Time) bool {
	d := it.ParsedDate()
	if d.IsZero() {
		return false
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	return !d.Before(start) && !d.After(end)
}

var (
	leadingDateRe = regexp.MustCompile(`^[\[（(]?\d{4}[-/.年]\d{1,2}[-/.月]\d{1,2}[日]?[\]）)]?[\s:：-]*`)
	spaceRunRe    = regexp.MustCompile(`[\s　]+`)
)

// CleanTitle 清洗标题：去掉前缀日期、折叠空白
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = leadingDateRe.ReplaceAllString(title, "")
	title = spaceRunRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// ValidSummary 摘要有效性：非空、不等于标题、不少于 20 字符
func (it *ArticleItem) ValidSummary(summary string) bool {
	s := strings.TrimSpace(summary)
	if s == "" {
		return false
	}
	if s == strings.TrimSpace(it.Title) {
		return false
	}
	return len([]rune(s)) >= 20
}
