package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/tool"
)

// 工具名约定，与基础设施层注册的工具保持一致
const (
	ToolBrowsePage       = "browse_page"
	ToolSaveResult       = "save_result"
	ToolSaveResultsBatch = "save_results_batch"
	ToolDownloadFile     = "download_file"
	ToolReadDocument     = "read_document"
	ToolFinish           = "finish"
)

// TerminationReason 采集循环结束原因
type TerminationReason string

const (
	ReasonFinished       TerminationReason = "finished"
	ReasonExhaustedTurns TerminationReason = "exhausted_turns"
	ReasonCancelled      TerminationReason = "cancelled"
	ReasonLLMFailed      TerminationReason = "llm_failed"
)

// ToolExecutor 领域层对工具执行的依赖接口
type ToolExecutor interface {
	// Execute 按名称执行工具
	Execute(ctx context.Context, name string, args map[string]interface{}) (*tool.Result, error)
	// Definitions 返回指定名称的工具定义，names 为空时返回全部
	Definitions(names []string) []tool.Definition
}

// CrawlLoopConfig 采集循环配置
type CrawlLoopConfig struct {
	Model          string
	MaxTurns       int     // 最大轮次，默认 15
	Temperature    float64 // 默认 0.2
	EnablePruning  bool    // 批量保存成功后裁剪历史页面文本
	PruneThreshold int     // 触发裁剪的工具结果长度（字符），默认 2000
	EmptyHintAfter int     // 连续多少轮浏览无新结果后注入收尾提示，默认 2
	Retry          RetryConfig
}

// DefaultCrawlLoopConfig 返回默认配置
func DefaultCrawlLoopConfig(model string) CrawlLoopConfig {
	return CrawlLoopConfig{
		Model:          model,
		MaxTurns:       15,
		Temperature:    0.2,
		EnablePruning:  true,
		PruneThreshold: 2000,
		EmptyHintAfter: 2,
		Retry:          DefaultRetryConfig(),
	}
}

func (c CrawlLoopConfig) withDefaults() CrawlLoopConfig {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 15
	}
	if c.PruneThreshold <= 0 {
		c.PruneThreshold = 2000
	}
	if c.EmptyHintAfter <= 0 {
		c.EmptyHintAfter = 2
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

// CrawlResult 采集循环结果
type CrawlResult struct {
	Reason     TerminationReason
	Turns      int
	FinalText  string // 模型的收尾说明
	SavedCount int    // 本次循环通过保存工具入账的条目数
	TokensUsed int
}

// ProgressFunc 进度回调，nil 表示不上报
type ProgressFunc func(event entity.TaskEvent)

// CrawlLoop 驱动 LLM 工具调用循环完成一个栏目的采集。
// 同一轮内的多个工具调用按返回顺序串行执行，tool 消息按同样顺序追加，
// 历史消息只有在裁剪时才会被改写，且只改写 Content。
type CrawlLoop struct {
	llm      LLMClient
	executor ToolExecutor
	logger   *zap.Logger
}

// NewCrawlLoop 创建采集循环
func NewCrawlLoop(llm LLMClient, executor ToolExecutor, logger *zap.Logger) *CrawlLoop {
	return &CrawlLoop{
		llm:      llm,
		executor: executor,
		logger:   logger,
	}
}

// 工具失败时交还给模型的提示格式
const toolFailureHint = "[TOOL_FAILED] %s\n[ERROR] %s\n[HINT] 工具执行出错，请调整参数后重试，或改用其他方式继续。"

// 页面文本裁剪后的占位内容
const prunedPlaceholder = "[已处理该页面，提取了%d条结果，原始内容已省略]"

// 连续空转后的收尾提示
const emptyBrowseHint = "[提示] 连续多次浏览未发现可采集的新条目。如果没有更多有价值的页面，请调用 finish 结束本栏目。"

// Run 执行采集循环直到模型收尾、轮次耗尽或被取消。
// 取消时返回 (result, ctx.Err())，其余情况 error 为 nil，结果里带结束原因。
func (l *CrawlLoop) Run(ctx context.Context, cfg CrawlLoopConfig, systemPrompt, userPrompt string, toolNames []string, progress ProgressFunc) (*CrawlResult, error) {
	cfg = cfg.withDefaults()
	defs := l.executor.Definitions(toolNames)

	messages := []LLMMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	result := &CrawlResult{Reason: ReasonExhaustedTurns}
	emptyBrowseStreak := 0
	hintInjected := false

	for turn := 1; turn <= cfg.MaxTurns; turn++ {
		select {
		case <-ctx.Done():
			result.Reason = ReasonCancelled
			return result, ctx.Err()
		default:
		}
		result.Turns = turn

		req := &LLMRequest{
			Model:       cfg.Model,
			Messages:    messages,
			Tools:       defs,
			Temperature: cfg.Temperature,
		}

		start := time.Now()
		resp, err := callLLMWithRetry(ctx, l.llm, req, cfg.Retry, l.logger)
		if err != nil {
			if ctx.Err() != nil {
				result.Reason = ReasonCancelled
				return result, ctx.Err()
			}
			l.logger.Error("Crawl loop LLM failed", zap.Int("turn", turn), zap.Error(err))
			result.Reason = ReasonLLMFailed
			result.FinalText = err.Error()
			return result, nil
		}
		result.TokensUsed += resp.TokensUsed
		l.logger.Debug("Crawl loop turn",
			zap.Int("turn", turn),
			zap.Int("tool_calls", len(resp.ToolCalls)),
			zap.Duration("llm_latency", time.Since(start)),
		)

		// 无工具调用：模型以自然语言收尾
		if len(resp.ToolCalls) == 0 {
			result.Reason = ReasonFinished
			result.FinalText = resp.Content
			return result, nil
		}

		messages = append(messages, LLMMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		turnSaved := 0
		batchSaved := false
		browsed := false
		finished := false

		for _, call := range resp.ToolCalls {
			select {
			case <-ctx.Done():
				result.Reason = ReasonCancelled
				return result, ctx.Err()
			default:
			}

			if call.Name == ToolFinish {
				finished = true
				if msg, ok := call.Arguments["summary"].(string); ok {
					result.FinalText = msg
				}
				messages = append(messages, LLMMessage{
					Role:       "tool",
					ToolCallID: call.ID,
					Name:       call.Name,
					Content:    "ok",
				})
				continue
			}

			content := l.executeOne(ctx, call, progress)
			messages = append(messages, LLMMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    content.text,
			})

			switch call.Name {
			case ToolBrowsePage:
				browsed = true
			case ToolSaveResult, ToolSaveResultsBatch:
				turnSaved += content.saved
				if call.Name == ToolSaveResultsBatch && content.success {
					batchSaved = true
				}
			}
		}

		result.SavedCount += turnSaved

		if finished {
			result.Reason = ReasonFinished
			return result, nil
		}

		// 批量保存成功后，把最近一条超长的浏览结果换成占位符，控制上下文规模
		if cfg.EnablePruning && batchSaved {
			l.pruneLastBrowse(messages, cfg.PruneThreshold, turnSaved)
		}

		if browsed && turnSaved == 0 {
			emptyBrowseStreak++
		} else if turnSaved > 0 {
			emptyBrowseStreak = 0
			hintInjected = false
		}
		if emptyBrowseStreak >= cfg.EmptyHintAfter && !hintInjected {
			messages = append(messages, LLMMessage{Role: "user", Content: emptyBrowseHint})
			hintInjected = true
		}
	}

	l.logger.Warn("Crawl loop exhausted turns", zap.Int("max_turns", cfg.MaxTurns))
	return result, nil
}

type toolOutcome struct {
	text    string
	success bool
	saved   int
}

// executeOne 执行单个工具调用，任何失败都折叠成提示文本交还模型
func (l *CrawlLoop) executeOne(ctx context.Context, call entity.ToolCallInfo, progress ProgressFunc) toolOutcome {
	start := time.Now()
	res, err := l.executor.Execute(ctx, call.Name, call.Arguments)

	if err != nil || res == nil || !res.Success {
		reason := "unknown error"
		if err != nil {
			reason = err.Error()
		} else if res != nil && res.Error != "" {
			reason = res.Error
		}
		l.logger.Warn("Tool execution failed",
			zap.String("tool", call.Name),
			zap.String("reason", reason),
		)
		return toolOutcome{text: fmt.Sprintf(toolFailureHint, call.Name, reason)}
	}

	if progress != nil {
		progress(entity.TaskEvent{
			Type:      entity.EventTaskProgress,
			Message:   fmt.Sprintf("%s: %s", call.Name, res.DisplayOrOutput()),
			Timestamp: time.Now(),
		})
	}

	saved := 0
	if res.Metadata != nil {
		if n, ok := res.Metadata["accepted"].(int); ok {
			saved = n
		}
	}
	l.logger.Debug("Tool executed",
		zap.String("tool", call.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Int("saved", saved),
	)
	return toolOutcome{text: res.Output, success: true, saved: saved}
}

// pruneLastBrowse 从后往前找最近一条超长的 browse_page 工具消息并替换其内容。
// 只改 Content，消息顺序与数量保持不变；已替换过的不重复处理。
func (l *CrawlLoop) pruneLastBrowse(messages []LLMMessage, threshold, savedCount int) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := &messages[i]
		if m.Role != "tool" || m.Name != ToolBrowsePage {
			continue
		}
		if len([]rune(m.Content)) <= threshold {
			continue
		}
		m.Content = fmt.Sprintf(prunedPlaceholder, savedCount)
		l.logger.Debug("Pruned browse result", zap.Int("message_index", i))
		return
	}
}
