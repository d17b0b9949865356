package errors

import (
	"fmt"
	"net/http"
)

// CRUDError 生命周期编排对外暴露的领域错误。
//
// StatusCode 与 Status 取自 HTTP 语义，便于传输层直接渲染；
// 序列化时只输出 message 与 type，状态码由传输层写入响应行。
type CRUDError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Status     string `json:"type"`
}

// NewCRUDError 按 HTTP 状态码构造领域错误，Status 使用标准状态文本。
func NewCRUDError(statusCode int, message string) *CRUDError {
	return &CRUDError{
		StatusCode: statusCode,
		Message:    message,
		Status:     http.StatusText(statusCode),
	}
}

// NotFound 指定 id 不存在未删除的实体。
func NotFound(kind string, id any) *CRUDError {
	return NewCRUDError(http.StatusNotFound, fmt.Sprintf("%s with id %v is not found.", kind, id))
}

// AlreadyExists 变更会违反该类型的唯一性约束；data 为触发冲突的意图或上下文描述。
func AlreadyExists(kind string, data any) *CRUDError {
	return NewCRUDError(http.StatusConflict, fmt.Sprintf("%s with %v already exists.", kind, data))
}

func (e *CRUDError) Error() string {
	return fmt.Sprintf("CRUDError(code=%d, message=%s, type=%s)", e.StatusCode, e.Message, e.Status)
}

// Code 实现 ICoder：404 → NOT_FOUND，409 → CONFLICT。
func (e *CRUDError) Code() ErrorCode {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusBadRequest:
		return ErrCodeInvalidInput
	default:
		return ErrCodeInternal
	}
}

// Is 支持 errors.Is(err, ErrNotFound) / errors.Is(err, ErrConflict) 之类的按代码比较。
func (e *CRUDError) Is(target error) bool {
	switch t := target.(type) {
	case *AppError:
		return e.Code() == t.code
	case *CRUDError:
		return e.StatusCode == t.StatusCode && e.Message == t.Message
	default:
		return false
	}
}

// IntegrityViolationError 版本检查写入影响了零行，而实体刚刚被读取为存在。
//
// 它与 Conflict 是不同的错误类别：不会被转换为 4xx 业务响应，也永远不会被重试。
type IntegrityViolationError struct {
	Kind            string
	ID              any
	ExpectedVersion int64
	Affected        int64
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("cannot update %sEntity %v, entity version wasn't %d (affected rows: %d)",
		e.Kind, e.ID, e.ExpectedVersion, e.Affected)
}

// Code 实现 ICoder
func (e *IntegrityViolationError) Code() ErrorCode {
	return ErrCodeIntegrity
}

// Is 与 ErrIntegrity 哨兵按代码匹配
func (e *IntegrityViolationError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return appErr.code == ErrCodeIntegrity
	}
	return false
}
