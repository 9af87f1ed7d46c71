// Package config loads roofctld's process-level configuration from
// environment variables, using a getEnv/parseX-with-fallback shape for
// Config.Load.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
	"github.com/RoySalisbury/HVOv9-sub007/internal/roof"
)

// Config holds all process-level configuration: how to bind the HTTP
// server, how to reach the hardware (or simulate it), and the initial
// roof.Configuration handed to the controller at startup.
type Config struct {
	HTTPAddr     string
	LogLevel     string
	UseSimulator bool
	I2CBusName   string
	I2CAddress   uint16

	// RestartOnFailureWaitTime is a host-process setting, not consumed
	// by the core: how long a process supervisor should wait before
	// restarting roofctld after a crash. Carried through to
	// Roof.RestartOnFailureWaitTimeSeconds purely for operator
	// visibility via GetConfiguration.
	RestartOnFailureWaitTime time.Duration

	Roof roof.Configuration
}

// Load reads configuration from environment variables, applying
// documented defaults for every tunable.
func Load() *Config {
	restartWait := parseDuration(os.Getenv("RESTART_ON_FAILURE_WAIT_TIME"), 5*time.Second)

	cfg := &Config{
		HTTPAddr:                 getEnv("ROOFCTLD_HTTP_ADDR", ":8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		UseSimulator:             getEnvBool("ROOFCTLD_USE_SIMULATOR"),
		I2CBusName:               os.Getenv("ROOFCTLD_I2C_BUS"),
		I2CAddress:               uint16(parseInt(os.Getenv("ROOFCTLD_I2C_ADDRESS"), int(board.DefaultAddress))),
		RestartOnFailureWaitTime: restartWait,
	}

	cfg.Roof = roof.Configuration{
		SafetyWatchdogTimeout:                 parseDuration(os.Getenv("ROOF_SAFETY_WATCHDOG_TIMEOUT"), 90*time.Second),
		OpenRelayID:                           board.RelayID(parseInt(os.Getenv("ROOF_OPEN_RELAY_ID"), 1)),
		CloseRelayID:                          board.RelayID(parseInt(os.Getenv("ROOF_CLOSE_RELAY_ID"), 2)),
		StopRelayID:                           board.RelayID(parseInt(os.Getenv("ROOF_STOP_RELAY_ID"), 3)),
		ClearFaultRelayID:                     board.RelayID(parseInt(os.Getenv("ROOF_CLEAR_FAULT_RELAY_ID"), 4)),
		EnableDigitalInputPolling:             getEnvBoolDefault("ROOF_ENABLE_DIGITAL_INPUT_POLLING", true),
		DigitalInputPollInterval:              parseDuration(os.Getenv("ROOF_DIGITAL_INPUT_POLL_INTERVAL"), 100*time.Millisecond),
		EnablePeriodicVerificationWhileMoving: getEnvBoolDefault("ROOF_ENABLE_PERIODIC_VERIFICATION", true),
		PeriodicVerificationInterval:          parseDuration(os.Getenv("ROOF_PERIODIC_VERIFICATION_INTERVAL"), time.Second),
		UseNormallyClosedLimitSwitches:        getEnvBool("ROOF_USE_NORMALLY_CLOSED_LIMIT_SWITCHES"),
		LimitSwitchDebounce:                   parseDuration(os.Getenv("ROOF_LIMIT_SWITCH_DEBOUNCE"), 50*time.Millisecond),
		IgnorePhysicalLimitSwitches:           getEnvBool("ROOF_IGNORE_PHYSICAL_LIMIT_SWITCHES"),
		RestartOnFailureWaitTimeSeconds:       int(restartWait.Seconds()),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvBool returns true if the env var is "true" or "1" (case-insensitive).
func getEnvBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1"
}

// getEnvBoolDefault is getEnvBool but falls back to def when the
// variable is unset rather than defaulting to false.
func getEnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	v = strings.ToLower(v)
	return v == "true" || v == "1"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}
