// Package natsjetstream 提供基于 NATS JetStream 的消息发布
package natsjetstream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"crudkit/logging"
	"crudkit/messaging"
)

// jetStream nats.JetStreamContext 中用到的子集，便于测试替换
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// Config JetStream 发布配置
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	Logger        logging.Logger
	Conn          *nats.Conn

	// 可选：流参数
	Retention         string // limits|workqueue|interest（默认 limits）
	MaxBytes          int64  // 0 表示不设置
	Replicas          int    // 0 表示默认
	MaxMsgsPerSubject int64  // 每主题最大消息数，默认 -1
}

// Publisher 把消息发布到 <SubjectPrefix><type> 主题，主题由 Stream 持久化
type Publisher struct {
	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	js       jetStream
	ownsConn bool

	mu sync.Mutex
}

var _ messaging.IPublisher = (*Publisher)(nil)

func applyDefaults(cfg Config) Config {
	if cfg.Stream == "" {
		cfg.Stream = "CRUDKIT"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "crudkit."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "transport.nats"))
	}
	return cfg
}

// NewPublisher 建立连接并确保 stream 存在
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg = applyDefaults(cfg)
	p := &Publisher{cfg: cfg, logger: cfg.Logger}

	if cfg.Conn != nil {
		p.conn = cfg.Conn
	} else {
		url := cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		conn, err := nats.Connect(url, nats.Name("crudkit"))
		if err != nil {
			return nil, err
		}
		p.conn = conn
		p.ownsConn = true
	}

	js, err := p.conn.JetStream()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.js = js
	if err := p.ensureStream(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func newWithJetStream(cfg Config, js jetStream) (*Publisher, error) {
	cfg = applyDefaults(cfg)
	p := &Publisher{cfg: cfg, logger: cfg.Logger, js: js}
	if err := p.ensureStream(); err != nil {
		return nil, err
	}
	return p, nil
}

// Publish 同步发布并等待 JetStream 确认
func (p *Publisher) Publish(ctx context.Context, message messaging.IMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	js := p.js
	p.mu.Unlock()
	if js == nil {
		return errors.New("nats publisher is closed")
	}

	data, err := marshalMessage(message)
	if err != nil {
		return err
	}
	subject := p.subjectName(message.GetType())
	ack, err := js.Publish(subject, data, nats.MsgId(message.GetID()))
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "jetstream publish",
		logging.String("subject", subject),
		logging.Any("seq", ack.Sequence))
	return nil
}

// Close 仅关闭自行建立的连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ownsConn && p.conn != nil {
		p.conn.Close()
	}
	p.conn = nil
	p.js = nil
	return nil
}

func (p *Publisher) ensureStream() error {
	_, err := p.js.StreamInfo(p.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(err.Error(), "stream not found") {
		return err
	}
	retention := nats.LimitsPolicy
	switch strings.ToLower(p.cfg.Retention) {
	case "workqueue":
		retention = nats.WorkQueuePolicy
	case "interest":
		retention = nats.InterestPolicy
	}
	sc := &nats.StreamConfig{
		Name:              p.cfg.Stream,
		Subjects:          []string{p.cfg.SubjectPrefix + ">"},
		Retention:         retention,
		MaxMsgsPerSubject: -1,
	}
	if p.cfg.MaxMsgsPerSubject != 0 {
		sc.MaxMsgsPerSubject = p.cfg.MaxMsgsPerSubject
	}
	if p.cfg.MaxBytes > 0 {
		sc.MaxBytes = p.cfg.MaxBytes
	}
	if p.cfg.Replicas > 0 {
		sc.Replicas = p.cfg.Replicas
	}
	_, err = p.js.AddStream(sc)
	return err
}

func (p *Publisher) subjectName(messageType string) string {
	return p.cfg.SubjectPrefix + messageType
}

type wireMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  map[string]any  `json:"metadata"`
}

func marshalMessage(msg messaging.IMessage) ([]byte, error) {
	payload, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return nil, err
	}
	metadata := msg.GetMetadata()
	if metadata == nil {
		metadata = make(map[string]any)
	}
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(wireMessage{ID: msg.GetID(), Type: msg.GetType(), Timestamp: ts.UnixNano(), Payload: payload, Metadata: metadata})
}

// UnmarshalMessage 解码 Publish 写出的消息体
func UnmarshalMessage(data []byte) (*messaging.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	var payload any
	if len(w.Payload) > 0 {
		if err := json.Unmarshal(w.Payload, &payload); err != nil {
			return nil, err
		}
	}
	return &messaging.Message{
		ID:        w.ID,
		Type:      w.Type,
		Timestamp: time.Unix(0, w.Timestamp),
		Payload:   payload,
		Metadata:  w.Metadata,
	}, nil
}
