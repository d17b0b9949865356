// Package snowflake 提供 int64 实体标识生成器（雪花算法）
//
// 生成的 id 按时间单调递增，可直接作为 lifecycle.IIDGenerator[int64] 使用。
package snowflake

import (
	"fmt"
	"sync"
	"time"

	"crudkit/errors"
)

const (
	// 起始时间戳 (2023-01-01 00:00:00 UTC)，毫秒
	epoch int64 = 1672531200000

	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxWorkerID     = -1 ^ (-1 << workerIDBits)     // 31
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits) // 31
	maxSequence     = -1 ^ (-1 << sequenceBits)     // 4095

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits
)

// Option 配置 Generator
type Option func(*Generator)

// WithTimeSource 注入时间源，默认 time.Now
func WithTimeSource(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator Snowflake ID生成器
type Generator struct {
	mux           sync.Mutex
	now           func() time.Time
	datacenterID  int64
	workerID      int64
	sequence      int64
	lastTimestamp int64
}

// NewGenerator 创建ID生成器
func NewGenerator(datacenterID, workerID int64, opts ...Option) (*Generator, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("datacenter ID %d out of range [0, %d]", datacenterID, maxDatacenterID))
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("worker ID %d out of range [0, %d]", workerID, maxWorkerID))
	}

	g := &Generator{
		now:           time.Now,
		datacenterID:  datacenterID,
		workerID:      workerID,
		lastTimestamp: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) millis() int64 {
	return g.now().UnixMilli()
}

// NextID 生成下一个ID；时钟回拨时返回错误
func (g *Generator) NextID() (int64, error) {
	g.mux.Lock()
	defer g.mux.Unlock()

	now := g.millis()
	if now < g.lastTimestamp {
		return 0, errors.NewError(errors.ErrCodeInternal,
			fmt.Sprintf("clock moved backwards by %dms, refusing to generate id", g.lastTimestamp-now))
	}
	if now < epoch {
		return 0, errors.NewError(errors.ErrCodeInternal, "clock is before snowflake epoch")
	}

	if now == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= g.lastTimestamp {
				time.Sleep(100 * time.Microsecond)
				now = g.millis()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = now

	id := ((now - epoch) << timestampLeftShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence

	return id, nil
}

// Parts 解析后的 id 组成
type Parts struct {
	Timestamp    time.Time
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Parse 解析ID
func Parse(id int64) Parts {
	return Parts{
		Timestamp:    time.UnixMilli((id >> timestampLeftShift) + epoch).UTC(),
		DatacenterID: (id >> datacenterIDShift) & maxDatacenterID,
		WorkerID:     (id >> workerIDShift) & maxWorkerID,
		Sequence:     id & maxSequence,
	}
}
