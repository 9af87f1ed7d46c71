package roof

import "testing"

func validConfig() Configuration {
	return testConfig()
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if errs := validConfig().Validate(); errs != nil {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateRejectsZeroWatchdog(t *testing.T) {
	cfg := validConfig()
	cfg.SafetyWatchdogTimeout = 0
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for zero SafetyWatchdogTimeout")
	}
}

func TestValidateRejectsVerificationIntervalLongerThanWatchdog(t *testing.T) {
	cfg := validConfig()
	cfg.PeriodicVerificationInterval = cfg.SafetyWatchdogTimeout + 1
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for verification interval exceeding watchdog timeout")
	}
}

func TestValidateRejectsVerificationWithoutPolling(t *testing.T) {
	cfg := validConfig()
	cfg.EnableDigitalInputPolling = false
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error when verification is enabled without polling")
	}
}

func TestValidateRejectsZeroPollIntervalEvenWhenPollingDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.EnableDigitalInputPolling = false
	cfg.EnablePeriodicVerificationWhileMoving = false
	cfg.DigitalInputPollInterval = 0
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for zero DigitalInputPollInterval regardless of EnableDigitalInputPolling")
	}
}

func TestValidateRejectsZeroVerificationIntervalEvenWhenVerificationDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.EnablePeriodicVerificationWhileMoving = false
	cfg.PeriodicVerificationInterval = 0
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for zero PeriodicVerificationInterval regardless of EnablePeriodicVerificationWhileMoving")
	}
}

func TestValidateRejectsOutOfRangeRelayID(t *testing.T) {
	cfg := validConfig()
	cfg.StopRelayID = 9
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for out-of-range relay id")
	}
}

func TestValidateRejectsNegativeDebounce(t *testing.T) {
	cfg := validConfig()
	cfg.LimitSwitchDebounce = -1
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected validation error for negative debounce")
	}
}
