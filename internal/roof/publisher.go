package roof

import (
	"sync"

	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
)

// Publisher maintains the current StatusSnapshot and fans it out to
// subscribers: a pull-model current value plus best-effort
// per-subscriber channels that drop rather than block the publishing
// caller.
type Publisher struct {
	mu      sync.Mutex
	current StatusSnapshot
	subs    []chan StatusSnapshot
}

// NewPublisher returns a Publisher seeded with initial.
func NewPublisher(initial StatusSnapshot) *Publisher {
	return &Publisher{current: initial}
}

// Snapshot returns the current status.
func (p *Publisher) Snapshot() StatusSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Publish replaces the current snapshot and notifies subscribers.
// Delivery is best-effort: the state machine that calls Publish must
// never stall on a slow subscriber.
func (p *Publisher) Publish(snap StatusSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = snap
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe returns the current snapshot plus a channel of future
// updates and a cancel func that must be called when the subscriber is
// done listening.
func (p *Publisher) Subscribe() (StatusSnapshot, <-chan StatusSnapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan StatusSnapshot, 8)
	p.subs = append(p.subs, ch)
	cur := p.current

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s == ch {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return cur, ch, cancel
}

// LEDMask recomputes the four front-panel indicator bits for a
// snapshot (spec §4.9).
func LEDMask(snap StatusSnapshot, faultAsserted bool) byte {
	var mask byte
	switch snap.Status {
	case StatusOpen:
		mask |= board.LEDOpen
	case StatusClosed:
		mask |= board.LEDClosed
	}
	if faultAsserted || snap.Status == StatusError {
		mask |= board.LEDFault
	}
	if snap.IsAtSpeed {
		mask |= board.LEDAtSpeed
	}
	return mask
}
