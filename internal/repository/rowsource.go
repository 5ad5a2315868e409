package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Row 数据源返回的原始行（字段名 → 值），不同表字段不同
type Row map[string]interface{}

// OrderBy 排序字段
type OrderBy struct {
	Field     string
	Ascending bool
}

// RowSource 通用行查询接口
// 日程聚合器只依赖该接口：按等值 / 范围 / OR 条件筛选，按字段排序，可选 limit
type RowSource interface {
	QueryRows(ctx context.Context, table string, filter FilterExpr, order OrderBy, limit int) ([]Row, error)
}

// ErrInvalidIdentifier 表名或字段名非法
var ErrInvalidIdentifier = errors.New("非法的表名或字段名")

// QuerySourceError 数据源查询失败（网络、表或字段不存在、权限不足、超时等）
type QuerySourceError struct {
	Table string
	Err   error
}

func (e *QuerySourceError) Error() string {
	return fmt.Sprintf("查询数据源 %s 失败: %v", e.Table, e.Err)
}

func (e *QuerySourceError) Unwrap() error { return e.Err }

// ── 过滤表达式 ──

// FilterExpr 过滤条件（封闭集合：Eq / Gte / Or / And）
type FilterExpr interface {
	// sql 生成带 ? 占位符的条件语句
	sql() (string, []interface{})
	// columns 条件中引用的全部字段
	columns() []string
	// Match 在内存中对单行求值
	Match(row Row) bool
}

type eqFilter struct {
	field string
	value interface{}
}

// Eq field = value
func Eq(field string, value interface{}) FilterExpr {
	return eqFilter{field: field, value: value}
}

func (f eqFilter) sql() (string, []interface{}) {
	return f.field + " = ?", []interface{}{f.value}
}

func (f eqFilter) columns() []string { return []string{f.field} }

func (f eqFilter) Match(row Row) bool {
	v, ok := row[f.field]
	if !ok || v == nil {
		return false
	}
	c, ok := compareValues(v, f.value)
	return ok && c == 0
}

type gteFilter struct {
	field string
	value interface{}
}

// Gte field >= value（用于 start_time >= now）
func Gte(field string, value interface{}) FilterExpr {
	return gteFilter{field: field, value: value}
}

func (f gteFilter) sql() (string, []interface{}) {
	return f.field + " >= ?", []interface{}{f.value}
}

func (f gteFilter) columns() []string { return []string{f.field} }

func (f gteFilter) Match(row Row) bool {
	v, ok := row[f.field]
	if !ok || v == nil {
		return false
	}
	c, ok := compareValues(v, f.value)
	return ok && c >= 0
}

type orFilter struct {
	left, right FilterExpr
}

// Or 两个条件取或（用于比赛的 team1_id / team2_id）
func Or(left, right FilterExpr) FilterExpr {
	return orFilter{left: left, right: right}
}

func (f orFilter) sql() (string, []interface{}) {
	ls, la := f.left.sql()
	rs, ra := f.right.sql()
	return "(" + ls + " OR " + rs + ")", append(la, ra...)
}

func (f orFilter) columns() []string {
	return append(f.left.columns(), f.right.columns()...)
}

func (f orFilter) Match(row Row) bool {
	return f.left.Match(row) || f.right.Match(row)
}

type andFilter struct {
	clauses []FilterExpr
}

// And 多个条件取与，nil 条件会被忽略
func And(clauses ...FilterExpr) FilterExpr {
	kept := make([]FilterExpr, 0, len(clauses))
	for _, c := range clauses {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return andFilter{clauses: kept}
}

func (f andFilter) sql() (string, []interface{}) {
	parts := make([]string, 0, len(f.clauses))
	var args []interface{}
	for _, c := range f.clauses {
		s, a := c.sql()
		parts = append(parts, "("+s+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args
}

func (f andFilter) columns() []string {
	var cols []string
	for _, c := range f.clauses {
		cols = append(cols, c.columns()...)
	}
	return cols
}

func (f andFilter) Match(row Row) bool {
	for _, c := range f.clauses {
		if !c.Match(row) {
			return false
		}
	}
	return true
}

// ── GORM 实现 ──

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validateQuery 表名、字段名只允许小写标识符，防止通用查询被拼接注入
func validateQuery(table string, filter FilterExpr, order OrderBy) error {
	idents := []string{table}
	if filter != nil {
		idents = append(idents, filter.columns()...)
	}
	if order.Field != "" {
		idents = append(idents, order.Field)
	}
	for _, id := range idents {
		if !identifierPattern.MatchString(id) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	return nil
}

type gormRowSource struct {
	db *gorm.DB
}

// NewGormRowSource 创建基于 GORM 的 RowSource
func NewGormRowSource(db *gorm.DB) RowSource {
	return &gormRowSource{db: db}
}

func (s *gormRowSource) QueryRows(ctx context.Context, table string, filter FilterExpr, order OrderBy, limit int) ([]Row, error) {
	if err := validateQuery(table, filter, order); err != nil {
		return nil, &QuerySourceError{Table: table, Err: err}
	}

	var raw []map[string]interface{}
	if err := buildRowQuery(s.db.WithContext(ctx), table, filter, order, limit).Find(&raw).Error; err != nil {
		return nil, &QuerySourceError{Table: table, Err: err}
	}

	rows := make([]Row, len(raw))
	for i := range raw {
		rows[i] = Row(raw[i])
	}
	return rows, nil
}

func buildRowQuery(tx *gorm.DB, table string, filter FilterExpr, order OrderBy, limit int) *gorm.DB {
	tx = tx.Table(table)
	if filter != nil {
		clause, args := filter.sql()
		tx = tx.Where(clause, args...)
	}
	if order.Field != "" {
		dir := "ASC"
		if !order.Ascending {
			dir = "DESC"
		}
		tx = tx.Order(order.Field + " " + dir)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return tx
}
