package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.SavesTotal == nil || r.LoadsTotal == nil || r.IntegrityFailures == nil {
		t.Error("metrics not initialized")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestObserveSave(t *testing.T) {
	r := NewRegistry()

	r.ObserveSave(5*time.Millisecond, nil)
	r.ObserveSave(0, domain.ErrIO.Wrap(errors.New("disk full")))
	r.ObserveSave(0, errors.New("plain"))

	if got := counterValue(t, r.SavesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok saves = %v, want 1", got)
	}
	if got := counterValue(t, r.SavesTotal.WithLabelValues("SK-IOER-5000")); got != 1 {
		t.Errorf("io saves = %v, want 1", got)
	}
	if got := counterValue(t, r.SavesTotal.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown saves = %v, want 1", got)
	}
}

func TestIntegrityFailuresCounted(t *testing.T) {
	r := NewRegistry()

	r.ObserveLoad("use", domain.ErrIntegrity.WithDetails("x"))
	r.ObserveVerify(domain.ErrIntegrity)
	r.ObserveBackup("restore", domain.ErrNotFound)
	r.ObserveLoad("use", nil)

	if got := counterValue(t, r.IntegrityFailures); got != 2 {
		t.Errorf("integrity failures = %v, want 2", got)
	}
	if got := counterValue(t, r.LoadsTotal.WithLabelValues("use", "ok")); got != 1 {
		t.Errorf("ok loads = %v, want 1", got)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.ObserveSave(time.Second, nil)
	r.ObserveLoad("scan", nil)
	r.ObserveBackup("create", nil)
	r.ObserveVerify(nil)
	r.SetSlots(3)
	r.SetPlayTime(1)
}

func TestSlotCollector(t *testing.T) {
	r := NewRegistry()
	c := NewSlotCollector(func() []SlotStat {
		return []SlotStat{{SlotID: 1, SavePoints: 3}, {SlotID: 42, SavePoints: 10}}
	})
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "savekeep_slot_save_points" {
			if n := len(f.GetMetric()); n != 2 {
				t.Errorf("collected %d series, want 2", n)
			}
			return
		}
	}
	t.Error("savekeep_slot_save_points not gathered")
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.SetSlots(2)
	r.ObserveSave(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"savekeep_slots 2", "savekeep_saves_total", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}
