package service

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

var (
	codeFenceOpenRe  = regexp.MustCompile("^```\\w*\n?")
	codeFenceCloseRe = regexp.MustCompile("\n?```$")
	jsonArrayRe      = regexp.MustCompile(`(?s)\[.*\]`)
	jsonObjectRe     = regexp.MustCompile(`(?s)\{.*\}`)
)

// StripCodeFence 去掉模型输出外层的 markdown 代码围栏
func StripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = codeFenceOpenRe.ReplaceAllString(raw, "")
		raw = codeFenceCloseRe.ReplaceAllString(raw, "")
		raw = strings.TrimSpace(raw)
	}
	return raw
}

// ExtractJSONArray 从模型输出中截取第一个 JSON 数组片段
func ExtractJSONArray(raw string) (string, bool) {
	raw = StripCodeFence(raw)
	m := jsonArrayRe.FindString(raw)
	if m == "" {
		return "", false
	}
	return m, true
}

// ParseIndexArray 解析编号数组并校验：去掉越界与重复编号，
// 缺失的编号按原始顺序补到末尾。解析失败返回 ok=false。
func ParseIndexArray(raw string, n int) ([]int, bool) {
	fragment, found := ExtractJSONArray(raw)
	if !found {
		return nil, false
	}

	var indices []int
	if err := json.Unmarshal([]byte(fragment), &indices); err != nil {
		return nil, false
	}

	seen := make(map[int]bool, n)
	valid := make([]int, 0, n)
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return nil, false
	}

	for i := 0; i < n; i++ {
		if !seen[i] {
			valid = append(valid, i)
		}
	}
	return valid, true
}

// ParseIndexSubset 与 ParseIndexArray 类似，但不补齐缺失编号，
// 用于"保留哪些条目"类的筛选输出。
func ParseIndexSubset(raw string, n int) ([]int, bool) {
	fragment, found := ExtractJSONArray(raw)
	if !found {
		return nil, false
	}

	var indices []int
	if err := json.Unmarshal([]byte(fragment), &indices); err != nil {
		return nil, false
	}

	seen := make(map[int]bool, n)
	valid := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// 单条内容最多保留的标签数
const MaxItemTags = 5

// SummaryPayload 摘要调用的结构化输出
type SummaryPayload struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// ParseSummaryPayload 解析摘要输出。找不到 JSON 对象或解析失败时，
// 整段输出按纯文本摘要处理；标签去空白后最多保留 MaxItemTags 个。
func ParseSummaryPayload(raw string) SummaryPayload {
	cleaned := StripCodeFence(raw)
	if m := jsonObjectRe.FindString(cleaned); m != "" {
		var p SummaryPayload
		if err := json.Unmarshal([]byte(m), &p); err == nil {
			p.Summary = strings.TrimSpace(p.Summary)
			tags := p.Tags[:0]
			for _, tag := range p.Tags {
				if t := strings.TrimSpace(tag); t != "" {
					tags = append(tags, t)
				}
			}
			if len(tags) > MaxItemTags {
				tags = tags[:MaxItemTags]
			}
			p.Tags = tags
			return p
		}
	}
	return SummaryPayload{Summary: strings.TrimSpace(cleaned)}
}

// Section 一个待采集的栏目
type Section struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ParseSections 解析栏目识别输出，过滤掉缺 URL 的项
func ParseSections(raw string) ([]Section, bool) {
	fragment, found := ExtractJSONArray(raw)
	if !found {
		return nil, false
	}

	var sections []Section
	if err := json.Unmarshal([]byte(fragment), &sections); err != nil {
		return nil, false
	}

	valid := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s.URL) != "" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}

// SortItemsByDateDesc 按日期倒序排序（无日期的排最后），排序是稳定的
func SortItemsByDateDesc(items []*entity.ArticleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Date, items[j].Date
		if di == "" {
			di = "0000-00-00"
		}
		if dj == "" {
			dj = "0000-00-00"
		}
		return di > dj
	})
}

// RankItems 用一次 LLM 调用按战略重要性排序条目。
// 排序失败（解析错误、调用失败）时降级为按日期倒序，绝不让任务失败。
func RankItems(ctx context.Context, llm LLMClient, model string, items []*entity.ArticleItem, retry RetryConfig, logger *zap.Logger) []*entity.ArticleItem {
	if len(items) <= 1 {
		return items
	}

	req := TextRequest(model, rankSystem, BuildRankPrompt(items), 0.1)
	req.MaxTokens = 1024

	resp, err := callLLMWithRetry(ctx, llm, req, retry, logger)
	if err == nil {
		if order, ok := ParseIndexArray(resp.Content, len(items)); ok {
			ranked := make([]*entity.ArticleItem, 0, len(items))
			for _, i := range order {
				ranked = append(ranked, items[i])
			}
			logger.Info("Strategic ranking succeeded", zap.Int("items", len(items)))
			return ranked
		}
		logger.Warn("Ranking output unparsable, falling back to date sort")
	} else {
		logger.Warn("Ranking LLM call failed, falling back to date sort", zap.Error(err))
	}

	SortItemsByDateDesc(items)
	return items
}
