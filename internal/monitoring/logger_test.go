package monitoring

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetLevel(t *testing.T) {
	l := NewLogger()
	ctx := context.Background()

	if l.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be disabled by default")
	}
	if !l.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}

	l.SetLevel(slog.LevelDebug)
	if !l.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}

	l.SetLevel(slog.LevelError)
	if l.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at error level")
	}
}
