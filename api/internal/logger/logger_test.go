package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"dev", "", "prod", "production"} {
		l, err := New(env)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", env, err)
		}
		dev := l.Core().Enabled(zap.DebugLevel)
		wantDev := env == "dev" || env == ""
		if dev != wantDev {
			t.Errorf("New(%q): debug enabled = %v, want %v", env, dev, wantDev)
		}
	}
}

func TestContext(t *testing.T) {
	fallback := zaptest.NewLogger(t)
	if From(context.Background(), fallback) != fallback {
		t.Error("Expected fallback for empty context")
	}
	if From(context.Background(), nil) == nil {
		t.Error("Expected a no-op logger, got nil")
	}

	l := zaptest.NewLogger(t).With(zap.String("request_id", "r1"))
	ctx := WithContext(context.Background(), l)
	if From(ctx, fallback) != l {
		t.Error("Expected logger stored in context")
	}
}
