package lifecycle

import "context"

// IRepository 生命周期编排的持久化端口。
//
// 约定：
//   - 所有读取只返回未软删除的实体；
//   - Insert 违反实体类型唯一性约束时返回错误码为 errors.ErrCodeDuplicate 的错误；
//   - UpdateIfVersion 是唯一的并发串行化点：仅当存储中的版本等于 expectedVersion 时
//     原子地替换实体，返回受影响行数（0 或 1）；
//   - Flush 之后，此前的写入必须已持久化，且唯一性冲突必须已经暴露。
type IRepository[ID comparable, E any] interface {
	// PageNonDeleted 按创建顺序分页列出未删除实体，pageIndex 从 0 开始
	PageNonDeleted(ctx context.Context, pageIndex, pageSize int) (Page[E], error)

	// FindNonDeleted 按 id 查找未删除实体，不存在时返回 false
	FindNonDeleted(ctx context.Context, id ID) (E, bool, error)

	// Insert 插入新实体
	Insert(ctx context.Context, entity E) error

	// UpdateIfVersion 版本检查写入
	UpdateIfVersion(ctx context.Context, entity E, expectedVersion int64) (int64, error)

	// Flush 持久化挂起的写入
	Flush(ctx context.Context) error
}
