package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

func TestRetryClassificationPrefersErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"限流可重试", apperrors.New(apperrors.CodeRateLimited, "rate limited"), true},
		{"网络抖动可重试", apperrors.New(apperrors.CodeTransientNetwork, "upstream server error"), true},
		{"输出违约可重试", apperrors.New(apperrors.CodeLLMContract, "empty response: no choices"), true},
		{"参数错误不重试", apperrors.New(apperrors.CodeInvalidInput, "bad request"), false},
		{"取消不重试", apperrors.Wrap(apperrors.CodeCancelled, "retry wait cancelled", context.Canceled), false},
		// 无编码错误回落到文本匹配
		{"超时文本可重试", errors.New("request timeout"), true},
		{"鉴权文本不重试", errors.New("401 unauthorized"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableError(tc.err); got != tc.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCallLLMWithRetryStopsOnNonRetryableCode(t *testing.T) {
	// 错误文本含 "timeout"，若按文本匹配会被误判为可重试；编码优先
	llm := &scriptedLLM{errs: []error{
		apperrors.New(apperrors.CodeInvalidInput, "call_timeout exceeds provider limit"),
	}}

	_, err := callLLMWithRetry(context.Background(), llm, &LLMRequest{}, fastRetry(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(llm.requests) != 1 {
		t.Errorf("requests = %d, want 1 (no retry)", len(llm.requests))
	}
}

func TestCallLLMWithRetryRecoversFromRateLimit(t *testing.T) {
	llm := &scriptedLLM{errs: []error{
		apperrors.Wrap(apperrors.CodeRateLimited, "rate limited", fmt.Errorf("status 429")),
	}}

	resp, err := callLLMWithRetry(context.Background(), llm, &LLMRequest{}, fastRetry(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "done" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(llm.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(llm.requests))
	}
}
