// Package database 提供通用的数据库抽象接口
//
// 持久化适配器只依赖这里的接口，具体驱动由 basic 包基于 database/sql 提供。
package database

import (
	"context"
	"database/sql"
	"time"
)

// IExecutor 查询与执行能力，IDatabase 与 ITransaction 共享
type IExecutor interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IDatabase 通用数据库接口
type IDatabase interface {
	IExecutor

	// 事务操作
	Begin(ctx context.Context) (ITransaction, error)

	// 连接管理
	Ping(ctx context.Context) error
	Close() error
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
//
// 实现方应返回诸如 "sqlite"、"postgres" 等 driver/dialect 名，
// 供 dialect 包推断方言能力（占位符、唯一键错误识别等）。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IExecutor

	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver string // sqlite, postgres ...
	DSN    string

	// 连接池配置
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
