package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SelectBuilder SQL查询构建器
type SelectBuilder struct {
	table      string
	selectCols []string
	joins      []string
	whereConds []string
	groupBy    []string
	orderBy    []string
	args       []any
}

// NewSelectBuilder 创建新的SELECT查询构建器
func NewSelectBuilder(table string, cols ...string) *SelectBuilder {
	selectCols := cols
	if len(cols) == 0 {
		selectCols = []string{"*"}
	}

	return &SelectBuilder{
		table:      table,
		selectCols: selectCols,
		args:       make([]any, 0),
	}
}

// Join 添加JOIN
func (b *SelectBuilder) Join(joinType, table, onCondition string) *SelectBuilder {
	b.joins = append(b.joins, fmt.Sprintf("%s %s ON %s", joinType, table, onCondition))
	return b
}

// Where adds a condition; multiple conditions are joined with AND.
func (b *SelectBuilder) Where(condition string, args ...any) *SelectBuilder {
	b.whereConds = append(b.whereConds, condition)
	b.args = append(b.args, args...)
	return b
}

// WhereNullable filters col by value, rendering IS NULL when value is nil.
// A nil value is a real filter, never a wildcard.
func (b *SelectBuilder) WhereNullable(col string, value *string) *SelectBuilder {
	if value == nil {
		return b.Where(col + " IS NULL")
	}
	return b.Where(col+" = ?", *value)
}

// GroupBy 添加GROUP BY
func (b *SelectBuilder) GroupBy(cols ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

// OrderBy 添加ORDER BY
func (b *SelectBuilder) OrderBy(cols ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, cols...)
	return b
}

// Args 获取参数
func (b *SelectBuilder) Args() []any {
	return b.args
}

// Build renders the statement with '?' placeholders.
func (b *SelectBuilder) Build() string {
	var query strings.Builder

	query.WriteString("SELECT ")
	query.WriteString(strings.Join(b.selectCols, ", "))
	query.WriteString(" FROM " + b.table)

	for _, join := range b.joins {
		query.WriteString(" " + join)
	}

	if len(b.whereConds) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(b.whereConds, " AND "))
	}

	if len(b.groupBy) > 0 {
		query.WriteString(" GROUP BY ")
		query.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(b.orderBy, ", "))
	}

	return query.String()
}

// Query 执行查询
func (b *SelectBuilder) Query(ctx context.Context, r Runner) (*sql.Rows, error) {
	return r.QueryContext(ctx, r.Rebind(b.Build()), b.args...)
}

// QueryRow 执行单行查询
func (b *SelectBuilder) QueryRow(ctx context.Context, r Runner) *sql.Row {
	return r.QueryRowContext(ctx, r.Rebind(b.Build()), b.args...)
}

// InsertBuilder INSERT查询构建器
type InsertBuilder struct {
	table     string
	cols      []string
	rows      int
	args      []any
	returning []string
}

// NewInsertBuilder 创建INSERT构建器
func NewInsertBuilder(table string) *InsertBuilder {
	return &InsertBuilder{
		table: table,
		cols:  make([]string, 0),
		args:  make([]any, 0),
	}
}

// Columns 设置列
func (i *InsertBuilder) Columns(cols ...string) *InsertBuilder {
	i.cols = append(i.cols, cols...)
	return i
}

// Values adds one row; len(vals) must match the column count.
func (i *InsertBuilder) Values(vals ...any) *InsertBuilder {
	i.rows++
	i.args = append(i.args, vals...)
	return i
}

// Returning appends a RETURNING clause (PostgreSQL and SQLite >= 3.35).
func (i *InsertBuilder) Returning(cols ...string) *InsertBuilder {
	i.returning = append(i.returning, cols...)
	return i
}

// Build 构建INSERT语句
func (i *InsertBuilder) Build() string {
	var query strings.Builder

	query.WriteString("INSERT INTO " + i.table)
	query.WriteString(" (" + strings.Join(i.cols, ", ") + ")")

	placeholders := make([]string, len(i.cols))
	for j := range placeholders {
		placeholders[j] = "?"
	}
	row := "(" + strings.Join(placeholders, ", ") + ")"

	query.WriteString(" VALUES ")
	for idx := 0; idx < i.rows; idx++ {
		if idx > 0 {
			query.WriteString(", ")
		}
		query.WriteString(row)
	}

	if len(i.returning) > 0 {
		query.WriteString(" RETURNING " + strings.Join(i.returning, ", "))
	}

	return query.String()
}

// Args 返回参数列表
func (i *InsertBuilder) Args() []any {
	return i.args
}

// Exec 执行INSERT
func (i *InsertBuilder) Exec(ctx context.Context, r Runner) (sql.Result, error) {
	return r.ExecContext(ctx, r.Rebind(i.Build()), i.args...)
}

// QueryRow executes an INSERT ... RETURNING statement.
func (i *InsertBuilder) QueryRow(ctx context.Context, r Runner) *sql.Row {
	return r.QueryRowContext(ctx, r.Rebind(i.Build()), i.args...)
}

// UpdateBuilder UPDATE查询构建器
type UpdateBuilder struct {
	table      string
	setCols    []string
	setArgs    []any
	conditions []string
	whereArgs  []any
}

// NewUpdateBuilder 创建UPDATE构建器
func NewUpdateBuilder(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set adds an assignment. Assignments render in call order.
func (u *UpdateBuilder) Set(col string, val any) *UpdateBuilder {
	u.setCols = append(u.setCols, col)
	u.setArgs = append(u.setArgs, val)
	return u
}

// Where 设置WHERE条件
func (u *UpdateBuilder) Where(condition string, args ...any) *UpdateBuilder {
	u.conditions = append(u.conditions, condition)
	u.whereArgs = append(u.whereArgs, args...)
	return u
}

// Build 构建UPDATE语句
func (u *UpdateBuilder) Build() string {
	var query strings.Builder

	query.WriteString("UPDATE " + u.table)

	sets := make([]string, len(u.setCols))
	for i, col := range u.setCols {
		sets[i] = col + " = ?"
	}
	query.WriteString(" SET " + strings.Join(sets, ", "))

	if len(u.conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(u.conditions, " AND "))
	}

	return query.String()
}

// Args returns SET arguments followed by WHERE arguments.
func (u *UpdateBuilder) Args() []any {
	args := make([]any, 0, len(u.setArgs)+len(u.whereArgs))
	args = append(args, u.setArgs...)
	return append(args, u.whereArgs...)
}

// Exec 执行UPDATE
func (u *UpdateBuilder) Exec(ctx context.Context, r Runner) (sql.Result, error) {
	return r.ExecContext(ctx, r.Rebind(u.Build()), u.Args()...)
}

// DeleteBuilder DELETE查询构建器
type DeleteBuilder struct {
	table      string
	conditions []string
	args       []any
}

// NewDeleteBuilder 创建DELETE构建器
func NewDeleteBuilder(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where 设置WHERE条件
func (d *DeleteBuilder) Where(condition string, args ...any) *DeleteBuilder {
	d.conditions = append(d.conditions, condition)
	d.args = append(d.args, args...)
	return d
}

// Build 构建DELETE语句
func (d *DeleteBuilder) Build() string {
	query := "DELETE FROM " + d.table
	if len(d.conditions) > 0 {
		query += " WHERE " + strings.Join(d.conditions, " AND ")
	}
	return query
}

// Args 返回参数列表
func (d *DeleteBuilder) Args() []any {
	return d.args
}

// Exec 执行DELETE
func (d *DeleteBuilder) Exec(ctx context.Context, r Runner) (sql.Result, error) {
	return r.ExecContext(ctx, r.Rebind(d.Build()), d.args...)
}
