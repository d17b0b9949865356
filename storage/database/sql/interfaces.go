// Package sql 提供面向持久化适配器的 SQL 构建器。
//
// 表名与列名在 Build 时做安全标识符校验，参数一律使用占位符传递；
// 占位符由底层 IExecutor 按方言改写。
package sql

import (
	"context"
	"database/sql"

	core "crudkit/storage/database"
	"crudkit/storage/database/dialect"
)

// ISql 提供统一的 SQL 构建与执行接口。
type ISql interface {
	Select(columns ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder

	// Dialect 返回推断出的方言
	Dialect() dialect.Dialect
}

// ISelectBuilder 构建 SELECT 语句。
type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	And(cond string, args ...any) ISelectBuilder
	OrderBy(expr string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

// IInsertBuilder 构建 INSERT 语句。
type IInsertBuilder interface {
	Columns(cols ...string) IInsertBuilder
	Values(vals ...any) IInsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// IUpdateBuilder 构建 UPDATE 语句。
type IUpdateBuilder interface {
	Set(column string, val any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

type sqlImpl struct {
	exec    core.IExecutor
	dialect dialect.Dialect
}

// New 基于数据库或事务创建 ISql 实例。
func New(exec core.IExecutor) ISql {
	return &sqlImpl{
		exec:    exec,
		dialect: dialect.FromDatabase(exec),
	}
}

func (s *sqlImpl) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{exec: s.exec, cols: columns}
}

func (s *sqlImpl) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{exec: s.exec, table: table}
}

func (s *sqlImpl) Update(table string) IUpdateBuilder {
	return &updateBuilder{exec: s.exec, table: table}
}

func (s *sqlImpl) Dialect() dialect.Dialect {
	return s.dialect
}
