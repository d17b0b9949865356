package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"crudkit/domain"
	"crudkit/errors"
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// NoopValidator 默认验证器，实现为空操作
type NoopValidator struct{}

// Validate 实现 IValidator 接口
func (NoopValidator) Validate(value any) error {
	return nil
}

// IntentValidator 对实现了 domain.IValidatable 的值执行校验，其他值直接通过。
type IntentValidator struct{}

// Validate 实现 IValidator 接口
func (IntentValidator) Validate(value any) error {
	return ValidateIntent(value)
}

// NewValidationError 创建验证错误
func NewValidationError(message string) error {
	return errors.NewError(errors.ErrCodeValidation, message)
}

// ValidateIntent 校验创建/更新意图。
// 意图未实现 domain.IValidatable 时视为合法；校验失败统一归类为 ErrCodeValidation，
// 已经是验证错误的保持原样返回。
func ValidateIntent(intent any) error {
	v, ok := intent.(domain.IValidatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil || errors.IsValidation(err) {
		return err
	}
	return errors.WrapError(err, errors.ErrCodeValidation, err.Error())
}

// ValidateStringLength 验证字符串长度（按字符计数）
func ValidateStringLength(value, fieldName string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return NewValidationError(fmt.Sprintf("%s长度不能少于%d个字符（当前%d）", fieldName, min, length))
	}
	if max > 0 && length > max {
		return NewValidationError(fmt.Sprintf("%s长度不能超过%d个字符（当前%d）", fieldName, max, length))
	}
	return nil
}

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fmt.Sprintf("%s不能为空", fieldName))
	}
	return nil
}

// ValidatePattern 验证字符串匹配正则
func ValidatePattern(value, fieldName string, pattern *regexp.Regexp) error {
	if !pattern.MatchString(value) {
		return NewValidationError(fmt.Sprintf("%s格式不正确: %q", fieldName, value))
	}
	return nil
}

// ValidateNotAfter 验证时间不晚于给定时刻，零值视为缺失
func ValidateNotAfter(value time.Time, fieldName string, limit time.Time) error {
	if value.IsZero() {
		return NewValidationError(fmt.Sprintf("%s不能为空", fieldName))
	}
	if value.After(limit) {
		return NewValidationError(fmt.Sprintf("%s不能晚于%s", fieldName, limit.Format(time.RFC3339)))
	}
	return nil
}

// ValidateIntRange 验证整数范围
func ValidateIntRange(value int, fieldName string, min, max int) error {
	if value < min {
		return NewValidationError(fmt.Sprintf("%s不能小于%d（当前%d）", fieldName, min, value))
	}
	if value > max {
		return NewValidationError(fmt.Sprintf("%s不能大于%d（当前%d）", fieldName, max, value))
	}
	return nil
}

// ValidatePageParams 验证分页参数。
//
// 页码从 0 开始；pageSize 为 0 合法（返回空页）。maxPageSize <= 0 表示不限制上限。
func ValidatePageParams(pageIndex, pageSize, maxPageSize int) error {
	if pageIndex < 0 {
		return NewValidationError(fmt.Sprintf("页码不能为负数（当前%d）", pageIndex))
	}
	if pageSize < 0 {
		return NewValidationError(fmt.Sprintf("每页大小不能为负数（当前%d）", pageSize))
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		return NewValidationError(fmt.Sprintf("每页大小不能超过%d（当前%d）", maxPageSize, pageSize))
	}
	return nil
}
