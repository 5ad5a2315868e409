package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSourceQuery(t *testing.T) {
	m := New()

	m.ObserveSourceQuery("practice", 10*time.Millisecond, nil)
	m.ObserveSourceQuery("game", 20*time.Millisecond, errors.New("relation does not exist"))
	m.ObserveSourceQuery("game", 5*time.Millisecond, nil)

	if got := testutil.ToFloat64(m.sourceQueries.WithLabelValues("game")); got != 2 {
		t.Errorf("期望 game 查询次数=2，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.sourceFailures.WithLabelValues("game")); got != 1 {
		t.Errorf("期望 game 失败次数=1，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.sourceFailures.WithLabelValues("practice")); got != 0 {
		t.Errorf("期望 practice 失败次数=0，实际=%v", got)
	}
}

func TestIncMalformedRow(t *testing.T) {
	m := New()
	m.IncMalformedRow("meeting")
	m.IncMalformedRow("meeting")

	if got := testutil.ToFloat64(m.malformedRows.WithLabelValues("meeting")); got != 2 {
		t.Errorf("期望异常行计数=2，实际=%v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveSourceQuery("meeting", time.Millisecond, errors.New("timeout"))
	m.ObserveHTTPRequest("GET", "", 200, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, `schedule_source_failures_total{source="meeting"} 1`) {
		t.Errorf("指标输出缺少 meeting 失败计数:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Error("未匹配路由应记录为 unmatched")
	}
}
