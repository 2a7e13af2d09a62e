package service

import (
	"testing"
	"time"
)

func TestAutoSaver_Tick(t *testing.T) {
	a := NewAutoSaver(2*time.Second, true)

	steps := []struct {
		dt   float32
		want bool
	}{
		{0.5, false},
		{1.0, false},
		{0.6, true},
		{1.0, false},
		{-3, false},
		{1.0, true},
	}
	for i, s := range steps {
		if got := a.Tick(s.dt); got != s.want {
			t.Fatalf("step %d: Tick(%v) = %v, want %v", i, s.dt, got, s.want)
		}
	}
}

func TestAutoSaver_Disabled(t *testing.T) {
	a := NewAutoSaver(time.Second, false)
	for i := 0; i < 10; i++ {
		if a.Tick(1) {
			t.Fatal("disabled auto-saver fired")
		}
	}
	if a.Elapsed() != 0 {
		t.Fatalf("Elapsed = %v, want 0", a.Elapsed())
	}
}

func TestAutoSaver_ToggleResetsTimer(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		a := NewAutoSaver(time.Second, true)
		a.Tick(0.9)
		a.SetEnabled(enabled)
		if a.Elapsed() != 0 {
			t.Fatalf("SetEnabled(%v): Elapsed = %v, want 0", enabled, a.Elapsed())
		}
		if a.Enabled() != enabled {
			t.Fatalf("Enabled = %v, want %v", a.Enabled(), enabled)
		}
	}
}

func TestAutoSaver_DefaultInterval(t *testing.T) {
	a := NewAutoSaver(0, true)
	if a.Interval() != DefaultAutoSaveInterval {
		t.Fatalf("Interval = %v, want %v", a.Interval(), DefaultAutoSaveInterval)
	}
	a.SetInterval(-time.Second)
	if a.Interval() != DefaultAutoSaveInterval {
		t.Fatalf("Interval after negative = %v", a.Interval())
	}
	if a.Tick(299) {
		t.Fatal("fired before 300s")
	}
	if !a.Tick(1) {
		t.Fatal("did not fire at 300s")
	}
}
