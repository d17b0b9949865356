package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	// 通用错误代码
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"

	// 业务错误代码
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicate  ErrorCode = "DUPLICATE_ERROR"

	// ErrCodeIntegrity 版本检查写入未命中任何行：要么遗漏了前置检查，
	// 要么发生了真实的丢失更新竞争。调用方不得将其转换为业务响应，也不得重试。
	ErrCodeIntegrity ErrorCode = "INTEGRITY_VIOLATION"

	// 基础设施错误代码
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeQueue    ErrorCode = "QUEUE_ERROR"
)

// ICoder 可报告错误代码的错误。
// AppError、CRUDError、IntegrityViolationError 都实现了该接口，IsErrorCode 依赖它做判断。
type ICoder interface {
	error
	Code() ErrorCode
}

// IError 错误接口
type IError interface {
	ICoder

	// 获取错误消息
	Message() string

	// 获取原始错误
	Cause() error

	// 获取错误详情
	Details() map[string]any

	// 获取堆栈信息
	Stack() string

	// 是否为指定类型的错误
	Is(target error) bool

	// 添加上下文
	WithContext(key string, value any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}

	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code 获取错误代码
func (e *AppError) Code() ErrorCode {
	return e.code
}

// Message 获取错误消息
func (e *AppError) Message() string {
	return e.message
}

// Cause 获取原始错误
func (e *AppError) Cause() error {
	return e.cause
}

// Details 获取错误详情
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Stack 获取堆栈信息
func (e *AppError) Stack() string {
	return e.stack
}

// Is 检查是否为指定类型的错误
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}

	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}

	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}

	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithContext 添加上下文
func (e *AppError) WithContext(key string, value any) IError {
	newDetails := copyMap(e.details)
	newDetails[key] = value

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: newDetails,
		stack:   e.stack,
	}
}

// 预定义错误变量，用于 errors.Is 比较（按错误代码匹配）
var (
	ErrInternal   = NewError(ErrCodeInternal, "内部错误")
	ErrNotFound   = NewError(ErrCodeNotFound, "资源未找到")
	ErrConflict   = NewError(ErrCodeConflict, "资源冲突")
	ErrValidation = NewError(ErrCodeValidation, "数据验证失败")
	ErrDuplicate  = NewError(ErrCodeDuplicate, "数据重复")
	ErrIntegrity  = NewError(ErrCodeIntegrity, "版本检查写入未命中")
	ErrDatabase   = NewError(ErrCodeDatabase, "数据库错误")
)

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	return IsErrorCode(err, ErrCodeValidation)
}

// IsConflict 检查是否为冲突错误
func IsConflict(err error) bool {
	return IsErrorCode(err, ErrCodeConflict)
}

// IsDuplicate 检查是否为存储层重复键信号
func IsDuplicate(err error) bool {
	return IsErrorCode(err, ErrCodeDuplicate)
}

// IsIntegrityViolation 检查是否为版本检查写入失败
func IsIntegrityViolation(err error) bool {
	return IsErrorCode(err, ErrCodeIntegrity)
}

// IsErrorCode 检查错误链中是否存在指定错误代码
//
// 沿 Unwrap 链逐层检查，外层包装（例如 ErrCodeDatabase）不会遮蔽内层的代码。
func IsErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		if coder, ok := err.(ICoder); ok && coder.Code() == code {
			return true
		}
		err = stdErrors.Unwrap(err)
	}
	return false
}

// GetErrorCode 获取错误代码（取最外层）
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var coder ICoder
	if stdErrors.As(err, &coder) {
		return coder.Code()
	}

	return ErrCodeInternal
}

// captureStack 捕获堆栈信息
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var builder strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))

		if !more {
			break
		}
	}

	return builder.String()
}

// copyMap 复制映射
func copyMap(original map[string]any) map[string]any {
	if original == nil {
		return make(map[string]any)
	}

	copied := make(map[string]any, len(original))
	for k, v := range original {
		copied[k] = v
	}

	return copied
}
