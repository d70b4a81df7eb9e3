package errors

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/code"
)

// AppError 统一应用错误结构体
// 包含错误码、消息、详情、追踪ID和时间戳
type AppError struct {
	// Code 错误码
	Code int `json:"code"`
	// Message 错误消息
	Message string `json:"message"`
	// Details 错误详情（可选）
	Details []string `json:"details,omitempty"`
	// TraceID 请求追踪ID
	TraceID string `json:"traceId,omitempty"`
	// Cause 原始错误（不序列化到JSON）
	Cause error `json:"-"`
	// Timestamp 错误发生时间
	Timestamp time.Time `json:"timestamp"`

	kind *code.Code
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap 实现 errors.Unwrap 接口，支持错误链路追踪
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match an AppError against the catalog code it was built from.
func (e *AppError) Is(target error) bool {
	if e.kind == nil {
		return false
	}
	return e.kind.Is(target)
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:      c.Code(),
		Message:   c.Msg(),
		Details:   c.Details(),
		Cause:     cause,
		Timestamp: time.Now(),
		kind:      c,
	}
}

// Wrap returns nil for a nil cause, otherwise an AppError carrying c.
func Wrap(c *code.Code, cause error) error {
	if cause == nil {
		return nil
	}
	return NewAppError(c, cause)
}

// WithTraceID 设置 TraceID 并返回自身（链式调用）
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// WithDetails 设置详情并返回自身（链式调用）
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = details
	return e
}

// Message extracts the human-readable text placed in an error response.
// 提取返回给客户端的错误消息
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr.Error()
	}
	return err.Error()
}

// CodeOf returns the catalog code carried by err, or ErrorServerInternal's code.
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr.Code()
	}
	return code.ErrorServerInternal.Code()
}

// IsAppError 检查错误是否为 AppError 类型
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 从错误链中获取 AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
