// Package roof implements the roof motion state machine: the relay
// sequencer, safety watchdog, periodic verifier, fault-clear pulser,
// configuration lifecycle, and status publisher that sit on top of a
// board.Board.
package roof

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoofStatus is the controller's current motion/position state.
type RoofStatus int

const (
	StatusNotInitialized RoofStatus = iota
	StatusStopped
	StatusOpening
	StatusClosing
	StatusOpen
	StatusClosed
	StatusPartiallyOpen
	StatusPartiallyClose
	StatusError
)

var roofStatusNames = map[RoofStatus]string{
	StatusNotInitialized: "NotInitialized",
	StatusStopped:        "Stopped",
	StatusOpening:        "Opening",
	StatusClosing:        "Closing",
	StatusOpen:           "Open",
	StatusClosed:         "Closed",
	StatusPartiallyOpen:  "PartiallyOpen",
	StatusPartiallyClose: "PartiallyClose",
	StatusError:          "Error",
}

func (s RoofStatus) String() string {
	if n, ok := roofStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("RoofStatus(%d)", int(s))
}

// MarshalJSON renders the status as its name rather than its ordinal.
func (s RoofStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// IsMoving reports whether the status represents active motion.
func (s RoofStatus) IsMoving() bool {
	return s == StatusOpening || s == StatusClosing
}

// StopReason records why the most recent motion ended.
type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonNormalStop
	ReasonLimitReached
	ReasonSafetyWatchdogTimeout
	ReasonEmergencyStop
	ReasonFaultDetected
	ReasonSystemDisposal
	ReasonCommandIssued
)

var stopReasonNames = map[StopReason]string{
	ReasonNone:                  "None",
	ReasonNormalStop:            "NormalStop",
	ReasonLimitReached:          "LimitReached",
	ReasonSafetyWatchdogTimeout: "SafetyWatchdogTimeout",
	ReasonEmergencyStop:         "EmergencyStop",
	ReasonFaultDetected:         "FaultDetected",
	ReasonSystemDisposal:        "SystemDisposal",
	ReasonCommandIssued:         "CommandIssued",
}

func (r StopReason) String() string {
	if n, ok := stopReasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// MarshalJSON renders the reason as its name.
func (r StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// DigitalInputSnapshot is the logical (polarity-resolved) read of the
// four board inputs, after applying UseNormallyClosedLimitSwitches and
// IgnorePhysicalLimitSwitches.
type DigitalInputSnapshot struct {
	ForwardLimit bool
	ReverseLimit bool
	Fault        bool
	AtSpeed      bool
}

// StatusSnapshot is the immutable, published view of controller state
// (spec §6 GetStatus / the push feed payload).
type StatusSnapshot struct {
	Status                          RoofStatus `json:"status"`
	IsMoving                        bool       `json:"isMoving"`
	LastStopReason                  StopReason `json:"lastStopReason"`
	LastTransitionUtc               time.Time  `json:"lastTransitionUtc"`
	IsWatchdogActive                bool       `json:"isWatchdogActive"`
	WatchdogSecondsRemaining        float64    `json:"watchdogSecondsRemaining"`
	IsAtSpeed                       bool       `json:"isAtSpeed"`
	IsUsingPhysicalHardware         bool       `json:"isUsingPhysicalHardware"`
	IsIgnoringPhysicalLimitSwitches bool       `json:"isIgnoringPhysicalLimitSwitches"`
}

// HealthSnapshot is the health-probe contract (spec §6).
type HealthSnapshot struct {
	IsInitialized                bool       `json:"isInitialized"`
	IsServiceDisposed            bool       `json:"isServiceDisposed"`
	Status                       RoofStatus `json:"status"`
	IsMoving                     bool       `json:"isMoving"`
	LastStopReason               StopReason `json:"lastStopReason"`
	LastTransitionUtc            time.Time  `json:"lastTransitionUtc"`
	IsWatchdogActive             bool       `json:"isWatchdogActive"`
	WatchdogSecondsRemaining     float64    `json:"watchdogSecondsRemaining"`
	Ready                        bool       `json:"ready"`
	IgnoresPhysicalLimitSwitches bool       `json:"ignoresPhysicalLimitSwitches"`
	HardwareMode                 bool       `json:"hardwareMode"`
}
