package service

import "time"

// DefaultAutoSaveInterval is the auto-save period.
const DefaultAutoSaveInterval = 300 * time.Second

// AutoSaver accumulates unscaled frame time and reports when a save is due.
type AutoSaver struct {
	interval time.Duration
	enabled  bool
	elapsed  time.Duration
}

// NewAutoSaver returns an AutoSaver. A non-positive interval falls back to
// DefaultAutoSaveInterval.
func NewAutoSaver(interval time.Duration, enabled bool) *AutoSaver {
	a := &AutoSaver{enabled: enabled}
	a.SetInterval(interval)
	return a
}

// Tick adds realDt seconds and reports whether the interval elapsed. The
// timer restarts from zero after firing.
func (a *AutoSaver) Tick(realDt float32) bool {
	if !a.enabled || realDt <= 0 {
		return false
	}
	a.elapsed += time.Duration(float64(realDt) * float64(time.Second))
	if a.elapsed < a.interval {
		return false
	}
	a.elapsed = 0
	return true
}

// SetEnabled toggles auto-save and restarts the timer.
func (a *AutoSaver) SetEnabled(enabled bool) {
	a.enabled = enabled
	a.elapsed = 0
}

// Reset restarts the timer.
func (a *AutoSaver) Reset() { a.elapsed = 0 }

// SetInterval changes the period without resetting accumulated time.
func (a *AutoSaver) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultAutoSaveInterval
	}
	a.interval = d
}

func (a *AutoSaver) Enabled() bool           { return a.enabled }
func (a *AutoSaver) Interval() time.Duration { return a.interval }
func (a *AutoSaver) Elapsed() time.Duration  { return a.elapsed }
