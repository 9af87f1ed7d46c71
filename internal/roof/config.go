package roof

import (
	"fmt"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
)

// Configuration holds the operator-tunable options for the roof
// controller (spec §3, §4.7, §6 configuration input format).
type Configuration struct {
	SafetyWatchdogTimeout                 time.Duration `json:"safetyWatchdogTimeout"`
	OpenRelayID                           board.RelayID `json:"openRelayId"`
	CloseRelayID                          board.RelayID `json:"closeRelayId"`
	StopRelayID                           board.RelayID `json:"stopRelayId"`
	ClearFaultRelayID                     board.RelayID `json:"clearFaultRelayId"`
	EnableDigitalInputPolling             bool          `json:"enableDigitalInputPolling"`
	DigitalInputPollInterval              time.Duration `json:"digitalInputPollInterval"`
	EnablePeriodicVerificationWhileMoving bool          `json:"enablePeriodicVerificationWhileMoving"`
	PeriodicVerificationInterval          time.Duration `json:"periodicVerificationInterval"`
	UseNormallyClosedLimitSwitches        bool          `json:"useNormallyClosedLimitSwitches"`
	LimitSwitchDebounce                   time.Duration `json:"limitSwitchDebounce"`
	IgnorePhysicalLimitSwitches           bool          `json:"ignorePhysicalLimitSwitches"`

	// RestartOnFailureWaitTimeSeconds is a host-process-level setting
	// (spec §6 configuration input format) that the core never consumes
	// itself; it is carried here purely so GetConfiguration can echo it
	// back to an operator inspecting the running configuration.
	RestartOnFailureWaitTimeSeconds int `json:"restartOnFailureWaitTimeSeconds,omitempty"`
}

// Validate returns a list of human-readable validation failures, or nil
// if cfg is well-formed. It returns the list instead of exiting the
// process, since configuration is also replaced at runtime.
func (c Configuration) Validate() []string {
	var errs []string

	if c.SafetyWatchdogTimeout <= 0 {
		errs = append(errs, "SafetyWatchdogTimeout must be > 0")
	}
	// Poll and verifier periods are unconditional requirements (spec §3,
	// §4.7), independent of whether polling/verification is enabled:
	// both durations must already be well-formed before the
	// "verification requires polling" implication below is checked.
	if c.DigitalInputPollInterval <= 0 {
		errs = append(errs, "DigitalInputPollInterval must be > 0")
	}
	if c.PeriodicVerificationInterval <= 0 {
		errs = append(errs, "PeriodicVerificationInterval must be > 0")
	} else if c.PeriodicVerificationInterval > c.SafetyWatchdogTimeout {
		errs = append(errs, "PeriodicVerificationInterval must be <= SafetyWatchdogTimeout")
	}
	if c.EnablePeriodicVerificationWhileMoving && !c.EnableDigitalInputPolling {
		errs = append(errs, "EnablePeriodicVerificationWhileMoving requires EnableDigitalInputPolling")
	}
	if c.LimitSwitchDebounce < 0 {
		errs = append(errs, "LimitSwitchDebounce must be >= 0")
	}

	ids := []struct {
		id   board.RelayID
		name string
	}{
		{c.OpenRelayID, "OpenRelayID"},
		{c.CloseRelayID, "CloseRelayID"},
		{c.StopRelayID, "StopRelayID"},
		{c.ClearFaultRelayID, "ClearFaultRelayID"},
	}
	seen := make(map[board.RelayID]string, len(ids))
	duplicate := false
	for _, r := range ids {
		if r.id < 1 || r.id > 4 {
			errs = append(errs, fmt.Sprintf("%s (%d) must be in range [1,4]", r.name, r.id))
			continue
		}
		if _, ok := seen[r.id]; ok && !duplicate {
			errs = append(errs, "relay identifiers must be unique")
			duplicate = true
		}
		seen[r.id] = r.name
	}

	return errs
}
