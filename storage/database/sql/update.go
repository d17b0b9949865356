package sql

import (
	"context"
	"database/sql"
	"strings"

	core "crudkit/storage/database"
)

type updateBuilder struct {
	exec core.IExecutor

	table     string
	setCols   []string
	setArgs   []any
	whereExpr []string
	whereArgs []any
}

func (b *updateBuilder) Set(col string, val any) IUpdateBuilder {
	if col == "" {
		return b
	}
	b.setCols = append(b.setCols, col)
	b.setArgs = append(b.setArgs, val)
	return b
}

func (b *updateBuilder) Where(cond string, args ...any) IUpdateBuilder {
	if cond != "" {
		b.whereExpr = append(b.whereExpr, cond)
		b.whereArgs = append(b.whereArgs, args...)
	}
	return b
}

// Build 生成语句；没有 WHERE 条件的 UPDATE 视为误用
func (b *updateBuilder) Build() (string, []any) {
	if len(b.setCols) == 0 {
		panic("updateBuilder: no columns to set")
	}
	if len(b.whereExpr) == 0 {
		panic("updateBuilder: refusing to build UPDATE without WHERE")
	}
	mustBeIdentifiers("updateBuilder", b.table)
	mustBeIdentifiers("updateBuilder", b.setCols...)

	var sb strings.Builder
	args := make([]any, 0, len(b.setArgs)+len(b.whereArgs))

	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	for i, col := range b.setCols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")
	}
	args = append(args, b.setArgs...)

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(b.whereExpr, " AND "))
	args = append(args, b.whereArgs...)

	return sb.String(), args
}

func (b *updateBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.exec.Exec(ctx, q, args...)
}
