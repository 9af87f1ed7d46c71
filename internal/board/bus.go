// Package board implements the I²C register transport and the
// relay/digital-input expander driver the roof controller uses to
// energize relays and sample limit-switch and fault inputs.
package board

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// Bus serializes byte-register reads/writes against the expander
// behind a mutex: each ReadRegister or WriteRegister call is one
// transaction that never overlaps another caller's. The lock is held
// per call only; a sequence of calls is not locked as a unit.
type Bus struct {
	mu  sync.Mutex
	dev i2c.Dev
}

// NewBus binds a Bus to an already-opened periph.io I²C bus handle at
// the expander's address.
func NewBus(conn i2c.Bus, addr uint16) *Bus {
	return &Bus{dev: i2c.Dev{Bus: conn, Addr: addr}}
}

// ReadRegister reads length bytes starting at register reg.
func (b *Bus) ReadRegister(reg byte, length int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rx := make([]byte, length)
	if err := b.dev.Tx([]byte{reg}, rx); err != nil {
		return nil, &BusError{Op: fmt.Sprintf("read register 0x%02x", reg), Err: err}
	}
	return rx, nil
}

// WriteRegister writes data to register reg in a single transaction.
func (b *Bus) WriteRegister(reg byte, data ...byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	wr := make([]byte, 0, len(data)+1)
	wr = append(wr, reg)
	wr = append(wr, data...)
	if err := b.dev.Tx(wr, nil); err != nil {
		return &BusError{Op: fmt.Sprintf("write register 0x%02x", reg), Err: err}
	}
	return nil
}
