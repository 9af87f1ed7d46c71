package roof

import (
	"sync"
	"time"
)

// watchdog is a single-shot safety timer armed at motion start. Its
// callback reacquires the controller lock and forces a stop if motion
// is still in progress.
type watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	armedAt  time.Time
	duration time.Duration
	active   bool
}

func (w *watchdog) arm(d time.Duration, fire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	w.armedAt = time.Now()
	w.duration = d
	w.active = true
	w.timer = time.AfterFunc(d, fire)
}

func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
}

func (w *watchdog) cancelLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.active = false
}

func (w *watchdog) remaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return 0
	}
	rem := w.duration - time.Since(w.armedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

func (w *watchdog) isActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}
