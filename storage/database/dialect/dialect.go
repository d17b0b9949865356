package dialect

import (
	"strconv"
	"strings"

	core "crudkit/storage/database"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从数据库实例推断方言
//
// 需要实例实现 IDialectNameProvider；否则返回 Unknown。
func FromDatabase(db any) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 根据方言对标识符加引号（如表名/列名）。
//
// schema.table 形式会对每一段分别加引号；MySQL 使用反引号，Postgres/SQLite 使用双引号；
// Unknown 方言原样返回。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 将通用占位符 ? 转换为方言特定形式。
//
// 仅 Postgres 需要替换（$1、$2...）。简单扫描，不区分字符串字面量中的 ?，
// 调用方应始终通过参数传值。
func (d Dialect) Rebind(query string) string {
	if query == "" || d.name != NamePostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 4)
	argIndex := 1
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
		} else {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// SupportsPartialIndex 是否支持 CREATE UNIQUE INDEX ... WHERE 部分索引
func (d Dialect) SupportsPartialIndex() bool {
	switch d.name {
	case NameSQLite, NamePostgres:
		return true
	default:
		return false
	}
}

// IsUniqueViolation 判断错误是否为唯一键/主键冲突
//
// 使用错误消息关键字匹配：
//   - MySQL: "Duplicate entry" (Error 1062)
//   - SQLite: "UNIQUE constraint failed" / "PRIMARY KEY constraint failed"
//   - Postgres: "duplicate key value violates unique constraint" (23505)
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed") ||
			strings.Contains(msg, "primary key constraint failed")
	case NamePostgres:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
