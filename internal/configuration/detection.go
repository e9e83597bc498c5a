package configuration

import "time"

type DetectionConfig struct {
	// Time to wait after a pwm write before trusting readings again.
	SettleTime time.Duration `json:"settleTime"`
	// How long to wait for a fan to show any rpm reaction.
	SpinupWindow time.Duration `json:"spinupWindow"`
	// Poll interval while waiting for spin-up and during measurement.
	PollInterval time.Duration `json:"pollInterval"`
	// Total measurement duration per pwm, counted from drive start.
	MeasureWindow time.Duration `json:"measureWindow"`
	// Time to wait after toggling a pwm mode file.
	ModeDwell time.Duration `json:"modeDwell"`

	// Minimum rpm increase over the baseline that counts as spin-up.
	RpmDeltaThresh int `json:"rpmDeltaThresh"`
	// Duty the ramp starts at before jumping to RampEndPercent.
	RampStartPercent int `json:"rampStartPercent"`
	RampEndPercent   int `json:"rampEndPercent"`
	// How often to retry spin-up with the alternate pwm mode.
	ModeToggleTries int `json:"modeToggleTries"`
	// Minimum temperature change accepted as mapping evidence when no
	// tachometer exists.
	TempDeltaThreshC float64 `json:"tempDeltaThreshC"`
}
