package service

import (
	"context"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/tool"
)

// LLMMessage 对话消息，role ∈ system / user / assistant / tool
type LLMMessage struct {
	Role       string                `json:"role"`
	Content    string                `json:"content"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ToolCallID string                `json:"tool_call_id,omitempty"`
	Name       string                `json:"name,omitempty"`
}

// LLMRequest LLM 调用请求
type LLMRequest struct {
	Model       string            `json:"model"`
	Messages    []LLMMessage      `json:"messages"`
	Tools       []tool.Definition `json:"tools,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

// LLMResponse LLM 调用响应
type LLMResponse struct {
	Content    string                `json:"content"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ModelUsed  string                `json:"model_used"`
	TokensUsed int                   `json:"tokens_used"`
}

// LLMClient 领域层对 LLM 的依赖接口，基础设施层提供实现
type LLMClient interface {
	Generate(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// TextRequest 便捷构造：单轮 system + user 文本请求
func TextRequest(model, system, user string, temperature float64) *LLMRequest {
	msgs := make([]LLMMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, LLMMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, LLMMessage{Role: "user", Content: user})
	return &LLMRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
	}
}
