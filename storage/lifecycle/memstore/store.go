// Package memstore 提供 lifecycle.IRepository 的内存参考实现。
//
// 行为与真实存储保持一致：唯一性冲突返回 errors.ErrCodeDuplicate，版本检查写入
// 原子执行，软删除只写入删除时间而不移除记录。适合测试与示例。
package memstore

import (
	"context"
	"fmt"
	"sync"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
)

// DuplicatePredicate 判断 candidate 是否与已存储的 existing 违反唯一性约束
type DuplicatePredicate[E any] func(candidate, existing E) bool

// Store 按 id 存储实体快照，并保留创建顺序
type Store[ID comparable, E lifecycle.IEntity[ID, E]] struct {
	mu    sync.RWMutex
	items map[ID]E
	// order 按插入顺序记录 id，分页列表以此为序
	order       []ID
	isDuplicate DuplicatePredicate[E]
}

// New 创建内存存储；isDuplicate 为 nil 时只有 id 冲突才视为重复
func New[ID comparable, E lifecycle.IEntity[ID, E]](isDuplicate DuplicatePredicate[E], seed ...E) *Store[ID, E] {
	s := &Store[ID, E]{isDuplicate: isDuplicate}
	s.Reset(seed...)
	return s
}

// Reset 清空存储并按顺序写入 seed（不做唯一性检查）
func (s *Store[ID, E]) Reset(seed ...E) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[ID]E, len(seed))
	s.order = make([]ID, 0, len(seed))
	for _, e := range seed {
		id := e.GetID()
		if _, exists := s.items[id]; !exists {
			s.order = append(s.order, id)
		}
		s.items[id] = e
	}
}

// Clear 清空存储
func (s *Store[ID, E]) Clear() {
	s.Reset()
}

// Peek 读取物理记录，包括已软删除的
func (s *Store[ID, E]) Peek(id ID) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

// All 按创建顺序返回全部物理记录，包括已软删除的
func (s *Store[ID, E]) All() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len 物理记录数
func (s *Store[ID, E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store[ID, E]) PageNonDeleted(ctx context.Context, pageIndex, pageSize int) (lifecycle.Page[E], error) {
	if err := ctx.Err(); err != nil {
		return lifecycle.Page[E]{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]E, 0, len(s.order))
	for _, id := range s.order {
		if e := s.items[id]; !e.Lifecycle().IsDeleted() {
			live = append(live, e)
		}
	}

	start, end := lifecycle.PageBounds(len(live), pageIndex, pageSize)
	items := make([]E, end-start)
	copy(items, live[start:end])
	return lifecycle.NewPage(items, pageIndex, pageSize, int64(len(live))), nil
}

func (s *Store[ID, E]) FindNonDeleted(ctx context.Context, id ID) (E, bool, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok || e.Lifecycle().IsDeleted() {
		return zero, false, nil
	}
	return e, true, nil
}

func (s *Store[ID, E]) Insert(ctx context.Context, entity E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entity.GetID()
	if _, exists := s.items[id]; exists {
		return errors.NewError(errors.ErrCodeDuplicate, fmt.Sprintf("entity with id %v already stored", id))
	}
	if err := s.checkUniqueLocked(entity); err != nil {
		return err
	}
	s.items[id] = entity
	s.order = append(s.order, id)
	return nil
}

// UpdateIfVersion 仅当存储中的版本等于 expectedVersion 时替换实体；
// 唯一性扫描与写入在同一把锁内完成。
func (s *Store[ID, E]) UpdateIfVersion(ctx context.Context, entity E, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entity.GetID()
	stored, ok := s.items[id]
	if !ok || stored.GetVersion() != expectedVersion {
		return 0, nil
	}
	if err := s.checkUniqueLocked(entity); err != nil {
		return 0, err
	}
	s.items[id] = entity
	return 1, nil
}

// Flush 内存写入即时生效
func (s *Store[ID, E]) Flush(ctx context.Context) error {
	return ctx.Err()
}

// checkUniqueLocked 对其他未删除实体执行唯一性判定；软删除的实体从不冲突
func (s *Store[ID, E]) checkUniqueLocked(candidate E) error {
	if s.isDuplicate == nil || candidate.Lifecycle().IsDeleted() {
		return nil
	}
	id := candidate.GetID()
	for _, otherID := range s.order {
		if otherID == id {
			continue
		}
		other := s.items[otherID]
		if other.Lifecycle().IsDeleted() {
			continue
		}
		if s.isDuplicate(candidate, other) {
			return errors.NewError(errors.ErrCodeDuplicate,
				fmt.Sprintf("entity %v conflicts with stored entity %v", id, otherID))
		}
	}
	return nil
}
