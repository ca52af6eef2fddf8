package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("hello", "rows", 3)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"rows":3`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	New(&buf, "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = ContextWithSession(ctx, "sess-9")
	FromContext(ctx).Info("stage run")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "session_id=sess-9") {
		t.Errorf("FromContext output = %q", out)
	}
	if got := SessionID(ctx); got != "sess-9" {
		t.Errorf("SessionID() = %q, want %q", got, "sess-9")
	}
	if got := SessionID(context.Background()); got != "" {
		t.Errorf("SessionID(empty) = %q", got)
	}
}
