package tracing

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"team-sports/backend/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.TracingConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("未开启追踪时 Init 不应失败: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown 不应为 nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown 不应返回错误: %v", err)
	}
}
