package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/loadsheet/internal/config"
	"github.com/JonMunkholm/loadsheet/internal/metrics"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew_FileReference(t *testing.T) {
	t.Cleanup(metrics.Reset)
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Reference.OntologyPath = writeFile(t, dir, "fields.csv", "canonical_type,field\nahu,temp\n")
	cfg.Reference.UnitsPath = writeFile(t, dir, "units.csv", "ID,Category\ndegF,Temperature\n")
	cfg.Reference.EnumsPath = writeFile(t, dir, "enums.csv", "Field,Required Enum TRUE,Required Enum FALSE\nfan,on,off\n")
	cfg.Reference.LoadTimeout = 5 * time.Second
	cfg.Reference.Preload = true
	cfg.Metrics.Backend = config.MetricsNone

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if err := app.Ready(); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
	st := app.Reference.Status()
	if !st.Units || !st.Enums {
		t.Errorf("Status() = %+v, want all loaded", st)
	}
	if app.Service == nil {
		t.Fatal("Service is nil")
	}
	if app.MetricsHandler != nil {
		t.Error("MetricsHandler set without prometheus backend")
	}
}

func TestNew_MissingFilesNotReady(t *testing.T) {
	t.Cleanup(metrics.Reset)
	cfg := &config.Config{}
	cfg.Reference.OntologyPath = filepath.Join(t.TempDir(), "missing.csv")
	cfg.Reference.Preload = true

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()
	if err := app.Ready(); err == nil {
		t.Error("Ready() = nil, want ErrNotReady")
	}
}

func TestNewMetrics(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.MetricsConfig
		wantBackend bool
		wantHandler bool
		wantErr     bool
	}{
		{"none", config.MetricsConfig{Backend: config.MetricsNone}, false, false, false},
		{"prometheus", config.MetricsConfig{Backend: config.MetricsPrometheus, JobName: "t"}, true, true, false},
		{"datadog", config.MetricsConfig{Backend: config.MetricsDatadog, StatsdAddr: "127.0.0.1:8125"}, true, false, false},
		{"unknown", config.MetricsConfig{Backend: "graphite"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, h, closeFn, err := NewMetrics(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMetrics() error = %v, wantErr %v", err, tt.wantErr)
			}
			if closeFn != nil {
				defer closeFn()
			}
			if (b != nil) != tt.wantBackend {
				t.Errorf("backend = %v, want set = %v", b, tt.wantBackend)
			}
			if (h != nil) != tt.wantHandler {
				t.Errorf("handler = %v, want set = %v", h, tt.wantHandler)
			}
		})
	}
}

func TestDatabaseName(t *testing.T) {
	if got := databaseName("postgres://u:p@host:5432/refs?sslmode=disable"); got != "refs" {
		t.Errorf("databaseName() = %q, want refs", got)
	}
}
