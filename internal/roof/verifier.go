package roof

import (
	"sync"
	"time"
)

// verifier re-requests a fresh input read on a coarse, fixed cadence
// while the roof is moving, guarding against a missed or dropped
// poller edge (spec §4.6). Stop is non-blocking: it signals the
// background goroutine to exit without waiting for it, because its
// tick callback itself needs the controller lock, and Stop is always
// invoked while that lock is already held.
type verifier struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func startVerifier(interval time.Duration, tick func()) *verifier {
	v := &verifier{stop: make(chan struct{})}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-v.stop:
				return
			case <-t.C:
				tick()
			}
		}
	}()
	return v
}

func (v *verifier) Stop() {
	if v == nil {
		return
	}
	v.stopOnce.Do(func() { close(v.stop) })
}
