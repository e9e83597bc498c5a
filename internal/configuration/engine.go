package configuration

import "time"

type EngineConfig struct {
	// Whether the engine may write pwm outputs at all. When false the
	// daemon runs in pure monitoring mode.
	Enabled bool `json:"enabled"`
	// Time interval between evaluation cycles.
	TickRate time.Duration `json:"tickRate"`
	// Maximum time between two applied ticks, regardless of
	// temperature movement.
	ForceTickRate time.Duration `json:"forceTickRate"`
	// Minimum temperature change that triggers evaluation before
	// ForceTickRate has elapsed.
	DeltaC float64 `json:"deltaC"`
}
