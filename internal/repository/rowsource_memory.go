package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRowSource 内存实现的 RowSource
// 用于本地演示与单元测试；语义与 GORM 实现一致（筛选 → 排序 → limit）
type MemoryRowSource struct {
	mu     sync.RWMutex
	tables map[string][]Row
	fail   map[string]error
	delay  map[string]time.Duration
}

// NewMemoryRowSource 创建空的内存数据源
func NewMemoryRowSource() *MemoryRowSource {
	return &MemoryRowSource{
		tables: make(map[string][]Row),
		fail:   make(map[string]error),
		delay:  make(map[string]time.Duration),
	}
}

// Insert 向表追加行
func (m *MemoryRowSource) Insert(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], rows...)
}

// FailTable 令对指定表的查询返回错误（nil 表示恢复）
func (m *MemoryRowSource) FailTable(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, table)
		return
	}
	m.fail[table] = err
}

// DelayTable 令对指定表的查询延迟返回，期间响应 ctx 取消
func (m *MemoryRowSource) DelayTable(table string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay[table] = d
}

func (m *MemoryRowSource) QueryRows(ctx context.Context, table string, filter FilterExpr, order OrderBy, limit int) ([]Row, error) {
	if err := validateQuery(table, filter, order); err != nil {
		return nil, &QuerySourceError{Table: table, Err: err}
	}

	m.mu.RLock()
	delay := m.delay[table]
	failErr := m.fail[table]
	rows, exists := m.tables[table]
	m.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &QuerySourceError{Table: table, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	if failErr != nil {
		return nil, &QuerySourceError{Table: table, Err: failErr}
	}
	if !exists {
		return nil, &QuerySourceError{Table: table, Err: fmt.Errorf("relation %q does not exist", table)}
	}

	var out []Row
	for _, r := range rows {
		if filter == nil || filter.Match(r) {
			out = append(out, copyRow(r))
		}
	}

	if order.Field != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c, ok := compareValues(out[i][order.Field], out[j][order.Field])
			if !ok {
				return false
			}
			if order.Ascending {
				return c < 0
			}
			return c > 0
		})
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// compareValues 比较两个标量值；类型不可比较时 ok=false
func compareValues(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case time.Time:
		bt, ok := asTime(b)
		if !ok {
			return 0, false
		}
		return compareTime(av, bt), true
	case *time.Time:
		if av == nil {
			return 0, false
		}
		return compareValues(*av, b)
	case string:
		if bs, ok := b.(string); ok {
			switch {
			case av < bs:
				return -1, true
			case av > bs:
				return 1, true
			default:
				return 0, true
			}
		}
		if bt, ok := asTime(b); ok {
			at, err := time.Parse(time.RFC3339Nano, av)
			if err != nil {
				return 0, false
			}
			return compareTime(at, bt), true
		}
		return 0, false
	default:
		af, ok := asFloat(a)
		if !ok {
			return 0, false
		}
		bf, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
