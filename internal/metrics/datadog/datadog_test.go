package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
)

func TestLabelsToTags(t *testing.T) {
	tests := []struct {
		name string
		in   metrics.Labels
		want []string
	}{
		{"nil", nil, nil},
		{"sorted", metrics.Labels{"step": "ontology", "job": "loadsheet"}, []string{"job:loadsheet", "step:ontology"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labelsToTags(tt.in)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("labelsToTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend() error = nil, want error")
	}
}

func TestBackend_SendsToAgent(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), Namespace: "loadsheet."})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "uploaded"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	got := string(buf[:n])
	if !strings.Contains(got, "loadsheet."+metrics.RecordsTotal+":3|c") || !strings.Contains(got, "kind:uploaded") {
		t.Errorf("packet = %q", got)
	}
}
