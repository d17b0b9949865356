// Package sqlstore 提供 lifecycle.IRepository 的 SQL 实现。
//
// 每个实体一行：id 主键、version、created_at、updated_at、deleted_at（UTC 纳秒时间戳）
// 以及实体自有列。UpdateIfVersion 以 `WHERE id = ? AND version = ?` 执行条件写入，
// 唯一性由 `WHERE deleted_at IS NULL` 的部分唯一索引保证，软删除记录不参与冲突判定。
// 每条语句自动提交，Flush 无需额外动作。
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
	"crudkit/logging"
	core "crudkit/storage/database"
	"crudkit/storage/database/dialect"
	dbsql "crudkit/storage/database/sql"
)

const (
	colID        = "id"
	colVersion   = "version"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
	colDeletedAt = "deleted_at"
)

// Option 配置 Store
type Option func(*storeOptions)

type storeOptions struct {
	logger logging.Logger
}

// WithLogger 注入日志器
func WithLogger(logger logging.Logger) Option {
	return func(o *storeOptions) { o.logger = logger }
}

// Store 基于 core.IDatabase 的持久化端口实现
type Store[ID comparable, E lifecycle.IEntity[ID, E]] struct {
	db      core.IDatabase
	sql     dbsql.ISql
	dialect dialect.Dialect
	codec   Codec[ID, E]
	logger  logging.Logger
	columns []string
}

// New 创建 SQL 存储；表结构可通过 EnsureSchema 创建
func New[ID comparable, E lifecycle.IEntity[ID, E]](db core.IDatabase, codec Codec[ID, E], opts ...Option) *Store[ID, E] {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetLogger()
	}

	columns := []string{colID, colVersion, colCreatedAt, colUpdatedAt, colDeletedAt}
	for _, c := range codec.Columns() {
		columns = append(columns, c.Name)
	}

	s := dbsql.New(db)
	return &Store[ID, E]{
		db:      db,
		sql:     s,
		dialect: s.Dialect(),
		codec:   codec,
		logger:  o.logger.WithFields(logging.String("component", "sqlstore"), logging.String("table", codec.Table())),
		columns: columns,
	}
}

// EnsureSchema 在一个事务内创建表与部分唯一索引（已存在时跳过）
func (s *Store[ID, E]) EnsureSchema(ctx context.Context) (err error) {
	table := s.codec.Table()
	unique := s.codec.UniqueBy()
	if len(unique) > 0 && !s.dialect.SupportsPartialIndex() {
		return errors.NewError(errors.ErrCodeDatabase,
			fmt.Sprintf("dialect %q cannot enforce uniqueness on non-deleted %s rows", s.dialect.Name(), table))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "begin schema transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	defs := []string{
		fmt.Sprintf("%s %s NOT NULL PRIMARY KEY", colID, s.codec.IDType()),
		colVersion + " BIGINT NOT NULL",
		colCreatedAt + " BIGINT NOT NULL",
		colUpdatedAt + " BIGINT NOT NULL",
		colDeletedAt + " BIGINT",
	}
	for _, c := range s.codec.Columns() {
		defs = append(defs, c.Name+" "+c.Type)
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err = tx.Exec(ctx, ddl); err != nil {
		return errors.WrapDatabaseError(ctx, err, "create table "+table)
	}

	if len(unique) > 0 {
		index := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_live ON %s (%s) WHERE %s IS NULL",
			strings.ReplaceAll(table, ".", "_"), table, strings.Join(unique, ", "), colDeletedAt)
		if _, err = tx.Exec(ctx, index); err != nil {
			return errors.WrapDatabaseError(ctx, err, "create unique index on "+table)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapDatabaseError(ctx, err, "commit schema transaction")
	}
	s.logger.Debug(ctx, "schema ensured")
	return nil
}

// orderBy 列表顺序：sqlite 使用 rowid 表示插入顺序，其他方言退化为创建时间
func (s *Store[ID, E]) orderBy() string {
	if s.dialect.Name() == dialect.NameSQLite {
		return "rowid"
	}
	return colCreatedAt + ", " + colID
}

func (s *Store[ID, E]) PageNonDeleted(ctx context.Context, pageIndex, pageSize int) (lifecycle.Page[E], error) {
	var total int64
	err := s.sql.Select("COUNT(*)").From(s.codec.Table()).
		Where(colDeletedAt + " IS NULL").
		QueryRow(ctx).Scan(&total)
	if err != nil {
		return lifecycle.Page[E]{}, s.translate(ctx, err, "count")
	}

	if pageSize <= 0 || pageIndex >= lifecycle.TotalPages(total, pageSize) {
		return lifecycle.NewPage[E](nil, pageIndex, pageSize, total), nil
	}

	rows, err := s.sql.Select(s.columns...).From(s.codec.Table()).
		Where(colDeletedAt + " IS NULL").
		OrderBy(s.orderBy()).
		Limit(pageSize).
		Offset(pageIndex * pageSize).
		Query(ctx)
	if err != nil {
		return lifecycle.Page[E]{}, s.translate(ctx, err, "page")
	}
	defer rows.Close()

	items := make([]E, 0, pageSize)
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return lifecycle.Page[E]{}, s.translate(ctx, err, "scan")
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return lifecycle.Page[E]{}, s.translate(ctx, err, "page")
	}
	return lifecycle.NewPage(items, pageIndex, pageSize, total), nil
}

func (s *Store[ID, E]) FindNonDeleted(ctx context.Context, id ID) (E, bool, error) {
	return s.find(ctx, id, true)
}

// FindAny 按 id 读取物理记录，包括已软删除的
func (s *Store[ID, E]) FindAny(ctx context.Context, id ID) (E, bool, error) {
	return s.find(ctx, id, false)
}

func (s *Store[ID, E]) find(ctx context.Context, id ID, liveOnly bool) (E, bool, error) {
	var zero E
	q := s.sql.Select(s.columns...).From(s.codec.Table()).
		Where(colID+" = ?", s.codec.EncodeID(id))
	if liveOnly {
		q = q.And(colDeletedAt + " IS NULL")
	}

	e, err := s.scan(q.QueryRow(ctx))
	if stderrors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, s.translate(ctx, err, "find")
	}
	return e, true, nil
}

func (s *Store[ID, E]) Insert(ctx context.Context, entity E) error {
	meta := entity.Lifecycle()
	values := append([]any{
		s.codec.EncodeID(meta.ID),
		meta.Version,
		encodeTime(meta.CreatedAt),
		encodeTime(meta.UpdatedAt),
		encodeDeletedAt(meta.DeletedAt),
	}, s.codec.Values(entity)...)

	_, err := s.sql.InsertInto(s.codec.Table()).Columns(s.columns...).Values(values...).Exec(ctx)
	if err != nil {
		return s.translate(ctx, err, "insert")
	}
	s.logger.Debug(ctx, "inserted", logging.Any("id", meta.ID))
	return nil
}

func (s *Store[ID, E]) UpdateIfVersion(ctx context.Context, entity E, expectedVersion int64) (int64, error) {
	meta := entity.Lifecycle()
	b := s.sql.Update(s.codec.Table()).
		Set(colVersion, meta.Version).
		Set(colUpdatedAt, encodeTime(meta.UpdatedAt)).
		Set(colDeletedAt, encodeDeletedAt(meta.DeletedAt))
	values := s.codec.Values(entity)
	for i, c := range s.codec.Columns() {
		b = b.Set(c.Name, values[i])
	}

	res, err := b.Where(colID+" = ?", s.codec.EncodeID(meta.ID)).
		Where(colVersion+" = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return 0, s.translate(ctx, err, "update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.translate(ctx, err, "rows affected")
	}
	s.logger.Debug(ctx, "version checked update",
		logging.Any("id", meta.ID),
		logging.Int64("expected_version", expectedVersion),
		logging.Int64("affected", affected))
	return affected, nil
}

// Flush 每条语句已自动提交
func (s *Store[ID, E]) Flush(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store[ID, E]) scan(row core.IRow) (E, error) {
	var (
		zero                 E
		meta                 lifecycle.Entity[ID]
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	targets := s.codec.Targets()
	dest := make([]any, 0, len(targets)+4)
	dest = append(dest, targets[0], &meta.Version, &createdAt, &updatedAt, &deletedAt)
	dest = append(dest, targets[1:]...)

	if err := row.Scan(dest...); err != nil {
		return zero, err
	}
	meta.CreatedAt = decodeTime(createdAt)
	meta.UpdatedAt = decodeTime(updatedAt)
	meta.DeletedAt = decodeDeletedAt(deletedAt)

	e, err := s.codec.Decode(targets, meta)
	if err != nil {
		return zero, errors.WrapError(err, errors.ErrCodeDatabase, "decode "+s.codec.Table()+" row")
	}
	return e, nil
}

// translate 唯一性冲突转换为 ErrCodeDuplicate，其他错误包装为 ErrCodeDatabase 并保留原因
func (s *Store[ID, E]) translate(ctx context.Context, err error, op string) error {
	if s.dialect.IsUniqueViolation(err) {
		return errors.WrapError(err, errors.ErrCodeDuplicate, fmt.Sprintf("%s %s: unique constraint violated", op, s.codec.Table()))
	}
	return errors.WrapDatabaseError(ctx, err, op+" "+s.codec.Table())
}
