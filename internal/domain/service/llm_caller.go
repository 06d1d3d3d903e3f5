package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/zcradar/zcradar/pkg/errors"
)

// RetryConfig LLM 调用重试参数
type RetryConfig struct {
	MaxRetries  int           // 最大重试次数，默认 3
	BaseWait    time.Duration // 首次重试等待，默认 2s，之后指数退避
	CallTimeout time.Duration // 单次调用超时，默认 60s
}

// DefaultRetryConfig 返回默认重试参数
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseWait:    2 * time.Second,
		CallTimeout: 60 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseWait <= 0 {
		c.BaseWait = 2 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	return c
}

// callLLMWithRetry calls the LLM with automatic retry and exponential backoff.
// On transient errors (timeout, network, 5xx) retries up to MaxRetries times.
func callLLMWithRetry(ctx context.Context, llm LLMClient, req *LLMRequest, cfg RetryConfig, logger *zap.Logger) (*LLMResponse, error) {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, 8s...
			wait := cfg.BaseWait * (1 << (attempt - 1))

			logger.Info("Retrying LLM call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, apperrors.Wrap(apperrors.CodeCancelled, "retry wait cancelled", ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		resp, err := llm.Generate(callCtx, req)
		cancel()

		if err == nil {
			if attempt > 0 {
				logger.Info("LLM retry succeeded", zap.Int("attempt", attempt))
			}
			return resp, nil
		}

		lastErr = err
		logger.Warn("LLM call failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if !isRetryableError(err) {
			return nil, fmt.Errorf("non-retryable LLM error: %w", err)
		}
	}

	return nil, fmt.Errorf("LLM call failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// isRetryableError determines if an LLM error is worth retrying.
// Classified errors decide by code; anything else falls back to string
// matching on the error text (HTTP transport errors carry no code).
// Retryable: timeout, connection reset, 5xx server errors, rate limits,
// contract violations (a fresh sample may parse). Non-retryable: 401 auth,
// 400 bad request, context cancelled.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if apperrors.IsCancelled(err) {
		return false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.IsRetryable(err) || appErr.Code == apperrors.CodeLLMContract
	}

	errStr := strings.ToLower(err.Error())

	nonRetryable := []string{
		"context canceled",
		"unauthorized",
		"invalid api key",
		"bad request",
		"invalid argument",
		"model not found",
	}
	for _, pattern := range nonRetryable {
		if strings.Contains(errStr, pattern) {
			return false
		}
	}

	retryable := []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"eof",
		"server error",
		"502", "503", "504", "529",
		"rate limit",
		"too many requests",
		"overloaded",
		"temporarily unavailable",
	}
	for _, pattern := range retryable {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	// Default: retry on unknown errors (conservative, but prevents single-point failures)
	return true
}
