package configuration

import (
	"fmt"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if err := validateEngine(&config.Engine); err != nil {
		return err
	}
	if err := validateDetection(&config.Detection); err != nil {
		return err
	}
	if err := validatePorts(config); err != nil {
		return err
	}
	if len(config.ProfileDir) <= 0 {
		return fmt.Errorf("profileDir must not be empty")
	}
	return nil
}

func validateEngine(config *EngineConfig) error {
	if config.TickRate <= 0 {
		return fmt.Errorf("engine.tickRate must be positive")
	}
	if config.ForceTickRate < 0 {
		return fmt.Errorf("engine.forceTickRate must not be negative")
	}
	if config.DeltaC < 0 {
		return fmt.Errorf("engine.deltaC must not be negative")
	}
	return nil
}

func validateDetection(config *DetectionConfig) error {
	if config.PollInterval <= 0 {
		return fmt.Errorf("detection.pollInterval must be positive")
	}
	if config.SpinupWindow <= 0 || config.MeasureWindow <= 0 {
		return fmt.Errorf("detection spin-up and measure windows must be positive")
	}
	if config.RpmDeltaThresh <= 0 {
		return fmt.Errorf("detection.rpmDeltaThresh must be positive")
	}
	if config.RampEndPercent < 1 || config.RampEndPercent > 100 {
		return fmt.Errorf("detection.rampEndPercent must be in [1, 100]")
	}
	if config.RampStartPercent < 0 || config.RampStartPercent > config.RampEndPercent {
		return fmt.Errorf("detection.rampStartPercent must be in [0, rampEndPercent]")
	}
	return nil
}

func validatePorts(config *Configuration) error {
	if config.Api.Enabled && (config.Api.Port <= 0 || config.Api.Port >= 65535) {
		return fmt.Errorf("api.port must be in (0, 65535)")
	}
	if config.Statistics.Enabled && (config.Statistics.Port <= 0 || config.Statistics.Port >= 65535) {
		return fmt.Errorf("statistics.port must be in (0, 65535)")
	}
	return nil
}
