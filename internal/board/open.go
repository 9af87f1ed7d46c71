package board

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenHardwareBus initializes the periph.io host drivers and opens the
// named I²C bus (an empty name selects the platform default), returning
// a Bus bound to addr and the underlying closer so the caller can
// release it on shutdown.
func OpenHardwareBus(name string, addr uint16) (*Bus, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("board: host init: %w", err)
	}
	conn, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("board: open i2c bus %q: %w", name, err)
	}
	return NewBus(conn, addr), conn, nil
}
