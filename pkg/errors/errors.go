package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeTransientNetwork ErrorCode = "TRANSIENT_NETWORK"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeLLMContract      ErrorCode = "LLM_CONTRACT"
	CodePageLoad         ErrorCode = "PAGE_LOAD"
	CodeToolUsage        ErrorCode = "TOOL_USAGE"
	CodeLimitExhausted   ErrorCode = "LIMIT_EXHAUSTED"
	CodeCancelled        ErrorCode = "CANCELLED"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建指定错误码的错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf 创建格式化消息的错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// NewInvalidInputError 创建无效输入错误
func NewInvalidInputError(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string) *AppError {
	return New(CodeNotFound, message)
}

// NewAlreadyExistsError 创建已存在错误
func NewAlreadyExistsError(message string) *AppError {
	return New(CodeAlreadyExists, message)
}

// NewInternalError 创建内部错误
func NewInternalError(message string) *AppError {
	return New(CodeInternal, message)
}

// NewInternalErrorWithCause 创建带原因的内部错误
func NewInternalErrorWithCause(message string, cause error) *AppError {
	return Wrap(CodeInternal, message, cause)
}

// CodeOf 提取错误码，非 AppError 归为 INTERNAL_ERROR
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound 判断是否为未找到错误
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsInvalidInput 判断是否为无效输入错误
func IsInvalidInput(err error) bool { return is(err, CodeInvalidInput) }

// IsCancelled 判断是否为取消错误（含 context 取消）
func IsCancelled(err error) bool {
	return is(err, CodeCancelled) || errors.Is(err, context.Canceled)
}

// IsRetryable 判断错误是否值得重试（瞬态网络或限流）
func IsRetryable(err error) bool {
	return is(err, CodeTransientNetwork) || is(err, CodeRateLimited)
}
