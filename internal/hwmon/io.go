package hwmon

import (
	"fmt"

	"github.com/linuxfancontrol/lfcd/internal/util"
)

// Io is the read/write surface of the hwmon sysfs tree. All operations
// are best-effort: a missing file, an I/O error or non-numeric content
// is reported as an error and must be treated by callers as "value
// currently unavailable", never as zero.
//
// The engine and detection both receive an Io instead of touching the
// filesystem themselves, so they can run against an in-memory fake.
type Io interface {
	ReadMilliC(sensor TempSensor) (int, error)
	ReadRpm(fan FanTach) (int, error)
	ReadRaw(pwm PwmOutput) (int, error)
	ReadEnable(pwm PwmOutput) (int, error)
	ReadMode(pwm PwmOutput) (int, error)

	WriteRaw(pwm PwmOutput, raw int) error
	WriteEnable(pwm PwmOutput, value int) error
	WriteMode(pwm PwmOutput, value int) error
}

// SysfsIo is the Io implementation backed by the real sysfs tree.
type SysfsIo struct{}

func NewSysfsIo() *SysfsIo {
	return &SysfsIo{}
}

func (io *SysfsIo) ReadMilliC(sensor TempSensor) (int, error) {
	return util.ReadIntFromFile(sensor.InputPath)
}

func (io *SysfsIo) ReadRpm(fan FanTach) (int, error) {
	return util.ReadIntFromFile(fan.InputPath)
}

func (io *SysfsIo) ReadRaw(pwm PwmOutput) (int, error) {
	return util.ReadIntFromFile(pwm.PwmPath)
}

func (io *SysfsIo) ReadEnable(pwm PwmOutput) (int, error) {
	if len(pwm.EnablePath) <= 0 {
		return -1, fmt.Errorf("%s: no enable file", pwm)
	}
	return util.ReadIntFromFile(pwm.EnablePath)
}

func (io *SysfsIo) ReadMode(pwm PwmOutput) (int, error) {
	if len(pwm.ModePath) <= 0 {
		return -1, fmt.Errorf("%s: no mode file", pwm)
	}
	return util.ReadIntFromFile(pwm.ModePath)
}

func (io *SysfsIo) WriteRaw(pwm PwmOutput, raw int) error {
	return util.WriteIntToFile(raw, pwm.PwmPath)
}

func (io *SysfsIo) WriteEnable(pwm PwmOutput, value int) error {
	if len(pwm.EnablePath) <= 0 {
		return fmt.Errorf("%s: no enable file", pwm)
	}
	return util.WriteIntToFile(value, pwm.EnablePath)
}

func (io *SysfsIo) WriteMode(pwm PwmOutput, value int) error {
	if len(pwm.ModePath) <= 0 {
		return fmt.Errorf("%s: no mode file", pwm)
	}
	return util.WriteIntToFile(value, pwm.ModePath)
}

// SetManual puts the pwm into manual control mode. A pwm without an
// enable file is always "on", which is not a failure.
func SetManual(io Io, pwm PwmOutput) bool {
	if len(pwm.EnablePath) <= 0 {
		return true
	}
	return io.WriteEnable(pwm, ControlModeManual) == nil
}

// SetPercent writes the given duty percentage to the pwm output.
func SetPercent(io Io, pwm PwmOutput, percent int) bool {
	raw := RawFromPercent(percent, pwm.MaxRaw)
	return io.WriteRaw(pwm, raw) == nil
}

// ReadPercent reads the current duty of the pwm output as a percentage.
func ReadPercent(io Io, pwm PwmOutput) (int, error) {
	raw, err := io.ReadRaw(pwm)
	if err != nil {
		return -1, err
	}
	return PercentFromRaw(raw, pwm.MaxRaw), nil
}
