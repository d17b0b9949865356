// Package redisstreams 提供基于 Redis Streams (XADD) 的消息发布
package redisstreams

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"crudkit/logging"
	"crudkit/messaging"
)

// client go-redis 中用到的命令子集，便于测试替换
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Config Redis Streams 发布配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// MaxLen 每个 stream 的近似最大长度，0 表示不裁剪
	MaxLen int64
	Logger logging.Logger

	// MaxPublishConcurrency 限制同时进行的 XADD 数，0 表示不限制
	MaxPublishConcurrency int
}

// Publisher 每种消息类型写入 <StreamPrefix><type> 这个 stream
type Publisher struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger

	pubSem chan struct{}
}

var _ messaging.IPublisher = (*Publisher)(nil)

// NewPublisher 创建发布器；未提供 Client 时按 Addr 建立连接并在 Close 时关闭
func NewPublisher(cfg Config) (*Publisher, error) {
	var cl client
	own := false
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis client not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return newPublisher(cfg, cl, own), nil
}

func newPublisher(cfg Config, cl client, own bool) *Publisher {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "crudkit:"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.redisstreams"))
	}
	p := &Publisher{cfg: cfg, client: cl, ownClient: own, logger: cfg.Logger}
	if cfg.MaxPublishConcurrency > 0 {
		p.pubSem = make(chan struct{}, cfg.MaxPublishConcurrency)
	}
	return p
}

// Publish 把消息追加到对应的 stream
func (p *Publisher) Publish(ctx context.Context, message messaging.IMessage) error {
	if p.pubSem != nil {
		select {
		case p.pubSem <- struct{}{}:
			defer func() { <-p.pubSem }()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	values, err := encodeMessage(message)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: p.streamName(message.GetType()), Values: values}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}
	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "xadd",
		logging.String("stream", args.Stream),
		logging.String("entry_id", entryID))
	return nil
}

// Close 仅关闭自行创建的连接
func (p *Publisher) Close() error {
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}

func (p *Publisher) streamName(messageType string) string {
	return p.cfg.StreamPrefix + messageType
}

func encodeMessage(msg messaging.IMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(msg.GetMetadata())
	if err != nil {
		return nil, err
	}
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"id":        msg.GetID(),
		"type":      msg.GetType(),
		"timestamp": ts.UnixNano(),
		"payload":   string(payload),
		"metadata":  string(metadata),
	}, nil
}

// DecodeMessage 把 stream 条目还原为消息，供消费方使用
func DecodeMessage(entry redis.XMessage) (*messaging.Message, error) {
	id, _ := entry.Values["id"].(string)
	msgType, _ := entry.Values["type"].(string)
	payloadRaw, _ := entry.Values["payload"].(string)
	metadataRaw, _ := entry.Values["metadata"].(string)

	var payload any
	if payloadRaw != "" {
		if err := json.Unmarshal([]byte(payloadRaw), &payload); err != nil {
			return nil, err
		}
	}
	metadata := make(map[string]any)
	if metadataRaw != "" {
		if err := json.Unmarshal([]byte(metadataRaw), &metadata); err != nil {
			return nil, err
		}
	}

	var ts time.Time
	switch v := entry.Values["timestamp"].(type) {
	case int64:
		ts = time.Unix(0, v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			ts = time.Unix(0, n)
		}
	}

	return &messaging.Message{ID: id, Type: msgType, Timestamp: ts, Payload: payload, Metadata: metadata}, nil
}
