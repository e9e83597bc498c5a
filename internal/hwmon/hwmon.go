package hwmon

import (
	"fmt"
)

const (
	// DefaultMaxRaw is assumed whenever a pwmN_max file is absent or unreadable.
	DefaultMaxRaw = 255

	// pwmN_enable values. Not guaranteed for every driver, but the
	// common interpretation is:
	// 0 - no control (full speed)
	// 1 - manual pwm control
	// 2+ - automatic control by the hardware
	ControlModeDisabled  = 0
	ControlModeManual    = 1
	ControlModeAutomatic = 2
)

// Chip is one hwmon device directory.
type Chip struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
	Path   string `json:"path"`
}

// TempSensor is a single tempN_input file.
type TempSensor struct {
	ChipId    string `json:"chipId"`
	Index     int    `json:"index"`
	InputPath string `json:"inputPath"`
	Label     string `json:"label"`
}

// FanTach is a single fanN_input file.
type FanTach struct {
	ChipId    string `json:"chipId"`
	Index     int    `json:"index"`
	InputPath string `json:"inputPath"`
	Label     string `json:"label"`
}

// PwmOutput is a single pwmN file together with its companion
// enable/mode files (either of which may be absent).
type PwmOutput struct {
	ChipId     string `json:"chipId"`
	Index      int    `json:"index"`
	PwmPath    string `json:"pwmPath"`
	EnablePath string `json:"enablePath"`
	ModePath   string `json:"modePath"`
	MaxRaw     int    `json:"maxRaw"`
	Label      string `json:"label"`
}

// Inventory is an immutable snapshot of all hwmon entries found by Scan.
// Consumers hold a copy; paths are re-validated lazily on read/write
// failure, never proactively.
type Inventory struct {
	Chips []Chip       `json:"chips"`
	Temps []TempSensor `json:"temps"`
	Fans  []FanTach    `json:"fans"`
	Pwms  []PwmOutput  `json:"pwms"`
}

// FansForChip returns all fan tachs of the given chip, in inventory order.
func (inv Inventory) FansForChip(chipId string) []FanTach {
	var result []FanTach
	for _, fan := range inv.Fans {
		if fan.ChipId == chipId {
			result = append(result, fan)
		}
	}
	return result
}

// TempsForChip returns all temp sensors of the given chip, in inventory order.
func (inv Inventory) TempsForChip(chipId string) []TempSensor {
	var result []TempSensor
	for _, temp := range inv.Temps {
		if temp.ChipId == chipId {
			result = append(result, temp)
		}
	}
	return result
}

func (c Chip) String() string {
	if len(c.Vendor) > 0 {
		return fmt.Sprintf("%s: %s (%s)", c.Id, c.Name, c.Vendor)
	}
	return fmt.Sprintf("%s: %s", c.Id, c.Name)
}

func (t TempSensor) String() string {
	return fmt.Sprintf("%s/temp%d (%s)", t.ChipId, t.Index, t.Label)
}

func (f FanTach) String() string {
	return fmt.Sprintf("%s/fan%d (%s)", f.ChipId, f.Index, f.Label)
}

func (p PwmOutput) String() string {
	return fmt.Sprintf("%s/pwm%d", p.ChipId, p.Index)
}

// RawFromPercent converts a duty percentage to the raw pwm value of the
// given scale. Rounding uses a symmetric bias so that repeated
// percent -> raw -> percent round trips are stable.
func RawFromPercent(percent int, maxRaw int) int {
	if maxRaw <= 0 {
		maxRaw = DefaultMaxRaw
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return (percent*maxRaw + 50) / 100
}

// PercentFromRaw converts a raw pwm value back to a duty percentage,
// using the inverse of the RawFromPercent bias.
func PercentFromRaw(raw int, maxRaw int) int {
	if maxRaw <= 0 {
		maxRaw = DefaultMaxRaw
	}
	if raw < 0 {
		raw = 0
	}
	if raw > maxRaw {
		raw = maxRaw
	}
	return (raw*100 + maxRaw/2) / maxRaw
}
