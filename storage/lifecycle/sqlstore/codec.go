package sqlstore

import (
	"database/sql"
	"time"

	"crudkit/domain/lifecycle"
)

// Column 实体类型自有列
type Column struct {
	Name string
	// Type DDL 类型，例如 TEXT、BIGINT
	Type string
}

// Codec 实体类型与表结构之间的映射。
//
// 生命周期列（id、version、created_at、updated_at、deleted_at）由 Store 维护，
// Codec 只负责 id 的编码与实体自有列。
type Codec[ID comparable, E any] interface {
	// Table 表名
	Table() string

	// IDType id 列的 DDL 类型。int64 主键应使用 BIGINT 而非 INTEGER，
	// 避免 sqlite 把它当作 rowid 别名而打乱插入顺序。
	IDType() string

	// Columns 实体自有列，顺序与 Values / Targets 一致
	Columns() []Column

	// UniqueBy 唯一性约束涉及的列，只对未删除记录生效；为空表示只有 id 唯一
	UniqueBy() []string

	// EncodeID 把 id 转换为驱动可接受的值
	EncodeID(id ID) any

	// Values 实体自有列的值
	Values(entity E) []any

	// Targets 返回一组新的扫描目标：第一个用于 id，其后依次对应 Columns
	Targets() []any

	// Decode 由扫描结果与生命周期元数据构造实体；meta.ID 由 Decode 从 targets[0] 解析
	Decode(targets []any, meta lifecycle.Entity[ID]) (E, error)
}

func encodeTime(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func decodeTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func encodeDeletedAt(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: encodeTime(*t), Valid: true}
}

func decodeDeletedAt(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := decodeTime(n.Int64)
	return &t
}
