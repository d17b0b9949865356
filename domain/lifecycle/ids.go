package lifecycle

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IIDGenerator 为新实体分配标识
type IIDGenerator[ID comparable] interface {
	NextID() (ID, error)
}

// IDGeneratorFunc 函数形式的 IIDGenerator
type IDGeneratorFunc[ID comparable] func() (ID, error)

func (f IDGeneratorFunc[ID]) NextID() (ID, error) { return f() }

// UUIDGenerator 随机 v4 UUID
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// SequenceGenerator 进程内自增 int64 序列，从 1 开始
type SequenceGenerator struct {
	last atomic.Int64
}

func (g *SequenceGenerator) NextID() (int64, error) {
	return g.last.Add(1), nil
}
