package roof

import "sync"

// busFaultThreshold is the number of consecutive bus errors observed
// while moving that escalates to a safety stop (spec §7).
const busFaultThreshold = 3

// busFaultTracker counts consecutive bus errors. There is no
// cooldown/half-open state: a bus fault during motion is a one-way
// escalation to Error, never a retryable circuit.
type busFaultTracker struct {
	mu    sync.Mutex
	count int
}

// record increments the counter and reports whether it is at or above
// the threshold.
func (t *busFaultTracker) record() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	return t.count >= busFaultThreshold
}

func (t *busFaultTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
}
