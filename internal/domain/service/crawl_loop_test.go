package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
	"github.com/zcradar/zcradar/internal/domain/tool"
)

// scriptedLLM 按脚本依次返回响应，并记录每次收到的请求
type scriptedLLM struct {
	responses []*LLMResponse
	errs      []error
	requests  []*LLMRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	// 请求里的消息切片后续会被追加，复制一份留证
	cp := *req
	cp.Messages = append([]LLMMessage(nil), req.Messages...)
	s.requests = append(s.requests, &cp)

	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return &LLMResponse{Content: "done"}, nil
	}
	return s.responses[i], nil
}

// fakeExecutor 按工具名分发到测试桩
type fakeExecutor struct {
	handlers map[string]func(args map[string]interface{}) *tool.Result
	calls    []string
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args map[string]interface{}) (*tool.Result, error) {
	f.calls = append(f.calls, name)
	if h, ok := f.handlers[name]; ok {
		return h(args), nil
	}
	return &tool.Result{Success: true, Output: "ok"}, nil
}

func (f *fakeExecutor) Definitions(names []string) []tool.Definition {
	defs := make([]tool.Definition, 0, len(names))
	for _, n := range names {
		defs = append(defs, tool.Definition{Name: n})
	}
	return defs
}

func toolCall(id, name string, args map[string]interface{}) entity.ToolCallInfo {
	if args == nil {
		args = map[string]interface{}{}
	}
	return entity.ToolCallInfo{ID: id, Name: name, Arguments: args}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 1, BaseWait: time.Millisecond, CallTimeout: time.Second}
}

func testLoopConfig() CrawlLoopConfig {
	cfg := DefaultCrawlLoopConfig("test/model")
	cfg.Retry = fastRetry()
	return cfg
}

func TestCrawlLoopFinishTool(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{ToolCalls: []entity.ToolCallInfo{
			toolCall("c1", ToolBrowsePage, map[string]interface{}{"url": "https://a.gov.cn"}),
			toolCall("c2", ToolSaveResultsBatch, nil),
		}, TokensUsed: 100},
		{ToolCalls: []entity.ToolCallInfo{
			toolCall("c3", ToolFinish, map[string]interface{}{"summary": "已采集2条"}),
		}, TokensUsed: 50},
	}}
	exec := &fakeExecutor{handlers: map[string]func(map[string]interface{}) *tool.Result{
		ToolSaveResultsBatch: func(map[string]interface{}) *tool.Result {
			return &tool.Result{Success: true, Output: "已保存 2 条", Metadata: map[string]interface{}{"accepted": 2}}
		},
	}}

	loop := NewCrawlLoop(llm, exec, zap.NewNop())
	result, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", []string{ToolBrowsePage, ToolSaveResultsBatch, ToolFinish}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonFinished {
		t.Errorf("reason = %s, want finished", result.Reason)
	}
	if result.SavedCount != 2 {
		t.Errorf("saved = %d, want 2", result.SavedCount)
	}
	if result.FinalText != "已采集2条" {
		t.Errorf("final text = %q", result.FinalText)
	}
	if result.TokensUsed != 150 {
		t.Errorf("tokens = %d, want 150", result.TokensUsed)
	}
	// finish 工具本身不应被执行器执行
	for _, name := range exec.calls {
		if name == ToolFinish {
			t.Error("finish must be intercepted by the loop, not executed")
		}
	}
}

func TestCrawlLoopNaturalLanguageFinish(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{Content: "没有发现新内容"},
	}}
	loop := NewCrawlLoop(llm, &fakeExecutor{}, zap.NewNop())

	result, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonFinished || result.FinalText != "没有发现新内容" {
		t.Errorf("got %+v", result)
	}
}

func TestCrawlLoopExhaustsTurns(t *testing.T) {
	browseResp := &LLMResponse{ToolCalls: []entity.ToolCallInfo{
		toolCall("c", ToolBrowsePage, map[string]interface{}{"url": "https://a.gov.cn"}),
	}}
	llm := &scriptedLLM{responses: []*LLMResponse{browseResp, browseResp, browseResp, browseResp}}

	cfg := testLoopConfig()
	cfg.MaxTurns = 3
	loop := NewCrawlLoop(llm, &fakeExecutor{}, zap.NewNop())

	result, err := loop.Run(context.Background(), cfg, "sys", "user", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonExhaustedTurns {
		t.Errorf("reason = %s, want exhausted_turns", result.Reason)
	}
	if result.Turns != 3 {
		t.Errorf("turns = %d, want 3", result.Turns)
	}
}

func TestCrawlLoopToolFailureFoldedIntoHint(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{ToolCalls: []entity.ToolCallInfo{
			toolCall("c1", ToolBrowsePage, map[string]interface{}{"url": "https://bad"}),
		}},
		{Content: "收尾"},
	}}
	exec := &fakeExecutor{handlers: map[string]func(map[string]interface{}) *tool.Result{
		ToolBrowsePage: func(map[string]interface{}) *tool.Result {
			return &tool.Result{Success: false, Error: "页面加载失败: 超时"}
		},
	}}
	loop := NewCrawlLoop(llm, exec, zap.NewNop())

	result, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonFinished {
		t.Fatalf("reason = %s", result.Reason)
	}

	// 第二次请求应包含失败提示的 tool 消息
	if len(llm.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(llm.requests))
	}
	second := llm.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != "tool" || !strings.Contains(last.Content, "[TOOL_FAILED]") {
		t.Errorf("expected folded failure hint, got role=%s content=%q", last.Role, last.Content)
	}
}

func TestCrawlLoopCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{}
	loop := NewCrawlLoop(llm, &fakeExecutor{}, zap.NewNop())

	result, err := loop.Run(ctx, testLoopConfig(), "sys", "user", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if result.Reason != ReasonCancelled {
		t.Errorf("reason = %s, want cancelled", result.Reason)
	}
}

func TestCrawlLoopLLMFailure(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("bad request: model not found")}}
	loop := NewCrawlLoop(llm, &fakeExecutor{}, zap.NewNop())

	result, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", nil, nil)
	if err != nil {
		t.Fatalf("LLM failure should not surface as error, got %v", err)
	}
	if result.Reason != ReasonLLMFailed {
		t.Errorf("reason = %s, want llm_failed", result.Reason)
	}
}

func TestCrawlLoopPrunesLongBrowseAfterBatchSave(t *testing.T) {
	longPage := strings.Repeat("政策内容", 1000) // 4000 字，超过默认阈值

	llm := &scriptedLLM{responses: []*LLMResponse{
		{ToolCalls: []entity.ToolCallInfo{
			toolCall("c1", ToolBrowsePage, map[string]interface{}{"url": "https://a.gov.cn"}),
			toolCall("c2", ToolSaveResultsBatch, nil),
		}},
		{Content: "done"},
	}}
	exec := &fakeExecutor{handlers: map[string]func(map[string]interface{}) *tool.Result{
		ToolBrowsePage: func(map[string]interface{}) *tool.Result {
			return &tool.Result{Success: true, Output: longPage}
		},
		ToolSaveResultsBatch: func(map[string]interface{}) *tool.Result {
			return &tool.Result{Success: true, Output: "已保存 3 条", Metadata: map[string]interface{}{"accepted": 3}}
		},
	}}
	loop := NewCrawlLoop(llm, exec, zap.NewNop())

	if _, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", nil, nil); err != nil {
		t.Fatal(err)
	}

	if len(llm.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(llm.requests))
	}
	first := llm.requests[0].Messages
	second := llm.requests[1].Messages

	// 裁剪只改一条历史 tool 消息的 Content：
	// 第二轮 = 第一轮 + assistant 工具调用消息 + 两条 tool 结果消息
	if len(second) != len(first)+3 {
		t.Fatalf("second request has %d messages, want %d", len(second), len(first)+3)
	}
	for i := range first {
		if second[i].Role != first[i].Role || second[i].Content != first[i].Content {
			t.Errorf("message %d changed: role=%s content=%q", i, second[i].Role, second[i].Content)
		}
	}

	assistant := second[len(first)]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 2 {
		t.Errorf("assistant message: role=%s tool_calls=%d", assistant.Role, len(assistant.ToolCalls))
	}

	browseMsg := second[len(first)+1]
	if browseMsg.Role != "tool" || browseMsg.Name != ToolBrowsePage {
		t.Fatalf("browse result out of order: role=%s name=%s", browseMsg.Role, browseMsg.Name)
	}
	if !strings.Contains(browseMsg.Content, "已省略") {
		t.Errorf("long browse output should be pruned, got %d chars", len([]rune(browseMsg.Content)))
	}
	if strings.Contains(browseMsg.Content, "政策内容") {
		t.Error("original page text should be gone after pruning")
	}

	saveMsg := second[len(first)+2]
	if saveMsg.Role != "tool" || saveMsg.Name != ToolSaveResultsBatch {
		t.Fatalf("save result out of order: role=%s name=%s", saveMsg.Role, saveMsg.Name)
	}
	if saveMsg.Content != "已保存 3 条" {
		t.Errorf("save result content must survive pruning, got %q", saveMsg.Content)
	}
}

func TestCrawlLoopEmptyBrowseHint(t *testing.T) {
	browseResp := &LLMResponse{ToolCalls: []entity.ToolCallInfo{
		toolCall("c", ToolBrowsePage, map[string]interface{}{"url": "https://a.gov.cn"}),
	}}
	llm := &scriptedLLM{responses: []*LLMResponse{
		browseResp, browseResp,
		{Content: "结束"},
	}}
	loop := NewCrawlLoop(llm, &fakeExecutor{}, zap.NewNop())

	if _, err := loop.Run(context.Background(), testLoopConfig(), "sys", "user", nil, nil); err != nil {
		t.Fatal(err)
	}

	// 连续两轮空转后，第三次请求末尾应是收尾提示
	if len(llm.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(llm.requests))
	}
	msgs := llm.requests[2].Messages
	last := msgs[len(msgs)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "finish") {
		t.Errorf("expected wrap-up hint, got role=%s content=%q", last.Role, last.Content)
	}
}
