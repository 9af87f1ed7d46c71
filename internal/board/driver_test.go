package board

import (
	"errors"
	"testing"
)

func TestEnergizeRelaySetsBit(t *testing.T) {
	sim := NewSimBus()
	d := New(sim)

	if err := d.EnergizeRelay(2); err != nil {
		t.Fatalf("EnergizeRelay: %v", err)
	}
	if got := sim.RelayMask(); got != 0b0010 {
		t.Fatalf("relay mask = %04b, want 0010", got)
	}

	if err := d.EnergizeRelay(1); err != nil {
		t.Fatalf("EnergizeRelay: %v", err)
	}
	if got := sim.RelayMask(); got != 0b0011 {
		t.Fatalf("relay mask = %04b, want 0011", got)
	}

	if err := d.DeEnergizeRelay(2); err != nil {
		t.Fatalf("DeEnergizeRelay: %v", err)
	}
	if got := sim.RelayMask(); got != 0b0001 {
		t.Fatalf("relay mask = %04b, want 0001", got)
	}
}

func TestEnergizeRelayRejectsOutOfRange(t *testing.T) {
	d := New(NewSimBus())
	if err := d.EnergizeRelay(0); err == nil {
		t.Fatal("expected error for relay id 0")
	}
	if err := d.EnergizeRelay(5); err == nil {
		t.Fatal("expected error for relay id 5")
	}
}

func TestReadInputMaskMasksUpperBits(t *testing.T) {
	sim := NewSimBus()
	sim.SetInputMask(0xff)
	d := New(sim)

	mask, err := d.ReadInputMask()
	if err != nil {
		t.Fatalf("ReadInputMask: %v", err)
	}
	if mask != 0x0f {
		t.Fatalf("mask = 0x%02x, want 0x0f", mask)
	}
}

func TestBusErrorPropagates(t *testing.T) {
	sim := NewSimBus()
	sim.FailNext(1, nil)
	d := New(sim)

	_, err := d.ReadInputMask()
	if err == nil {
		t.Fatal("expected error")
	}
	var be *BusError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BusError, got %T: %v", err, err)
	}
}
