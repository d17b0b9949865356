// Package lifecycle 提供多实体类型共用的生命周期编排：创建、分页列表、查询、更新与软删除。
//
// 实体是不可变的值快照。每种实体类型嵌入 Entity[ID] 承载版本号与审计时间，
// 并通过 WithLifecycle 返回替换了生命周期元数据的副本；持久化端口以
// “实体快照 + 期望版本号”执行条件写入，实现乐观并发控制。
package lifecycle

import (
	"time"

	"crudkit/domain"
)

// Entity 生命周期元数据（用于嵌入）。
//
// Version 从 0 开始，每次成功变更恰好加 1；CreatedAt 只在创建时写入；
// DeletedAt 非空表示已软删除，该实体对所有查询与列表不可见，但物理记录保留。
type Entity[ID comparable] struct {
	ID        ID         `json:"id"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// NewEntity 创建版本为 0 的生命周期元数据，创建与更新时间均为 now。
func NewEntity[ID comparable](id ID, now time.Time) Entity[ID] {
	return Entity[ID]{
		ID:        id,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e Entity[ID]) GetID() ID               { return e.ID }
func (e Entity[ID]) GetVersion() int64       { return e.Version }
func (e Entity[ID]) GetCreatedAt() time.Time { return e.CreatedAt }
func (e Entity[ID]) GetUpdatedAt() time.Time { return e.UpdatedAt }
func (e Entity[ID]) GetDeletedAt() *time.Time {
	if e.DeletedAt == nil {
		return nil
	}
	at := *e.DeletedAt
	return &at
}
func (e Entity[ID]) IsDeleted() bool { return e.DeletedAt != nil }

// Lifecycle 返回元数据本身，嵌入后即为实体的 Lifecycle 方法。
func (e Entity[ID]) Lifecycle() Entity[ID] { return e }

// Next 返回一次成功变更之后的元数据：版本加 1，更新时间刷新，创建时间不变。
func (e Entity[ID]) Next(now time.Time) Entity[ID] {
	next := e
	next.Version = e.Version + 1
	next.UpdatedAt = now
	next.DeletedAt = e.GetDeletedAt()
	return next
}

// Deleted 返回软删除之后的元数据：在 Next 的基础上写入删除时间。
func (e Entity[ID]) Deleted(now time.Time) Entity[ID] {
	next := e.Next(now)
	at := now
	next.DeletedAt = &at
	return next
}

// IEntity 生命周期编排要求的实体能力。
//
// E 为实现类型自身；WithLifecycle 不修改接收者，而是返回替换了元数据的副本。
type IEntity[ID comparable, E any] interface {
	domain.IEntity[ID]

	Lifecycle() Entity[ID]
	WithLifecycle(meta Entity[ID]) E
}
