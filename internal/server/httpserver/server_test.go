package httpserver

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/internal/telemetry/metric"
)

func TestServerServesMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	reg.SetSlots(3)

	srv := New("127.0.0.1:0", reg.Handler(), logger.NewNop())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + MetricsPath)
	if err != nil {
		t.Fatalf("GET metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(body) == 0 {
		t.Fatal("empty metrics body")
	}

	health, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz error = %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", health.StatusCode)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler(), nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
