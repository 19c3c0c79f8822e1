package tracing

import (
	"context"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of inert provider failed: %v", err)
	}
}

func TestTracer_ReturnsNamedTracer(t *testing.T) {
	if Tracer("neurohub") == nil {
		t.Error("expected non-nil tracer")
	}
}
