package observability

import (
	"context"
	"testing"

	"github.com/yungbote/flightwx/internal/config"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), config.OtelConfig{}, "test", "conditions")
	if shutdown == nil {
		t.Fatalf("expected shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
