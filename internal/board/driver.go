package board

import "fmt"

// RelayID identifies one of the four relay channels on the expander,
// 1-indexed to match the device's set/clear register protocol (writing
// value N to RegRelaySet/RegRelayClear affects relay N).
type RelayID uint8

// Transport is the capability a Board depends on: atomic byte-register
// read/write. *Bus is the production implementation over
// periph.io/x/conn/v3/i2c; tests substitute *SimBus.
type Transport interface {
	ReadRegister(reg byte, length int) ([]byte, error)
	WriteRegister(reg byte, data ...byte) error
}

// Board wraps a Transport with the expander's semantic operations.
type Board struct {
	t Transport
}

// New constructs a Board over the given transport.
func New(t Transport) *Board {
	return &Board{t: t}
}

func validRelay(id RelayID) error {
	if id < 1 || id > 4 {
		return fmt.Errorf("board: relay id %d out of range [1,4]", id)
	}
	return nil
}

// EnergizeRelay sets relay id via the atomic set-bit register.
func (b *Board) EnergizeRelay(id RelayID) error {
	if err := validRelay(id); err != nil {
		return err
	}
	return b.t.WriteRegister(RegRelaySet, byte(id))
}

// DeEnergizeRelay clears relay id via the atomic clear-bit register.
func (b *Board) DeEnergizeRelay(id RelayID) error {
	if err := validRelay(id); err != nil {
		return err
	}
	return b.t.WriteRegister(RegRelayClear, byte(id))
}

// SetRelayMask writes the full relay mask in one transaction.
func (b *Board) SetRelayMask(mask byte) error {
	return b.t.WriteRegister(RegRelayMask, mask)
}

// ReadRelayMask reads back the full relay mask register.
func (b *Board) ReadRelayMask() (byte, error) {
	rx, err := b.t.ReadRegister(RegRelayMask, 1)
	if err != nil {
		return 0, err
	}
	return rx[0], nil
}

// ReadInputMask reads the four raw digital-input bits (IN1..IN4).
// The returned byte is not polarity-resolved; callers apply the
// configured NC/NO and ignore-limit-switch rules themselves.
func (b *Board) ReadInputMask() (byte, error) {
	rx, err := b.t.ReadRegister(RegInputMask, 1)
	if err != nil {
		return 0, err
	}
	return rx[0] & 0x0f, nil
}

// SetLEDMask writes the front-panel status LED mask.
func (b *Board) SetLEDMask(mask byte) error {
	return b.t.WriteRegister(RegLEDMask, mask)
}
