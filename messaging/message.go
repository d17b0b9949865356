// Package messaging 提供生命周期事件的消息抽象与发布
package messaging

import (
	"time"
)

// 元数据键
const (
	MetadataKind      = "kind"
	MetadataOperation = "operation"
	MetadataEntityID  = "entity_id"
	MetadataVersion   = "version"
)

// IMessage 消息接口
type IMessage interface {
	// GetID 获取消息ID
	GetID() string

	// GetType 获取消息类型
	GetType() string

	GetTimestamp() time.Time

	// GetPayload 获取消息数据
	GetPayload() any

	GetMetadata() map[string]any
}

// Message 消息基础实现
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (m *Message) GetID() string           { return m.ID }
func (m *Message) GetType() string         { return m.Type }
func (m *Message) GetTimestamp() time.Time { return m.Timestamp }
func (m *Message) GetPayload() any         { return m.Payload }

// GetMetadata 获取元数据，未设置时返回空 map
func (m *Message) GetMetadata() map[string]any {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	return m.Metadata
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// NewMessage 创建新消息
func NewMessage(messageID, messageType string, at time.Time, data any) *Message {
	return &Message{
		ID:        messageID,
		Type:      messageType,
		Timestamp: at,
		Payload:   data,
		Metadata:  make(map[string]any),
	}
}
