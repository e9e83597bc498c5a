package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/linuxfancontrol/lfcd/internal/util"
)

const DefaultSysfsRoot = "/sys/class/hwmon"

var (
	tempInputRegex = regexp.MustCompile(`^temp(\d+)_input$`)
	fanInputRegex  = regexp.MustCompile(`^fan(\d+)_input$`)
	pwmRegex       = regexp.MustCompile(`^pwm(\d+)$`)
)

// Scan walks the hwmon root and builds an Inventory snapshot. Scanning
// is best-effort: unreadable chips or files are skipped, never fatal.
func Scan(basePath string) Inventory {
	inventory := Inventory{}

	chipPaths := util.FindHwmonDevicePaths(basePath)
	sort.Strings(chipPaths)

	for _, chipPath := range chipPaths {
		chip := Chip{
			Id:     filepath.Base(chipPath),
			Name:   readChipName(chipPath),
			Vendor: readChipVendor(chipPath),
			Path:   chipPath,
		}

		temps, fans, pwms := scanChip(chip)
		if len(temps) <= 0 && len(fans) <= 0 && len(pwms) <= 0 {
			continue
		}

		inventory.Chips = append(inventory.Chips, chip)
		inventory.Temps = append(inventory.Temps, temps...)
		inventory.Fans = append(inventory.Fans, fans...)
		inventory.Pwms = append(inventory.Pwms, pwms...)
	}

	return inventory
}

func scanChip(chip Chip) (temps []TempSensor, fans []FanTach, pwms []PwmOutput) {
	entries, err := os.ReadDir(chip.Path)
	if err != nil {
		return nil, nil, nil
	}

	for _, entry := range entries {
		name := entry.Name()
		fullPath := filepath.Join(chip.Path, name)

		if m := tempInputRegex.FindStringSubmatch(name); m != nil {
			index, _ := strconv.Atoi(m[1])
			temps = append(temps, TempSensor{
				ChipId:    chip.Id,
				Index:     index,
				InputPath: fullPath,
				Label:     readLabel(chip, name, fmt.Sprintf("temp%d", index)),
			})
			continue
		}

		if m := fanInputRegex.FindStringSubmatch(name); m != nil {
			index, _ := strconv.Atoi(m[1])
			fans = append(fans, FanTach{
				ChipId:    chip.Id,
				Index:     index,
				InputPath: fullPath,
				Label:     readLabel(chip, name, fmt.Sprintf("fan%d", index)),
			})
			continue
		}

		if m := pwmRegex.FindStringSubmatch(name); m != nil {
			index, _ := strconv.Atoi(m[1])
			pwms = append(pwms, PwmOutput{
				ChipId:     chip.Id,
				Index:      index,
				PwmPath:    fullPath,
				EnablePath: optionalFile(fullPath + "_enable"),
				ModePath:   optionalFile(fullPath + "_mode"),
				MaxRaw:     readMaxRaw(fullPath),
				Label:      fmt.Sprintf("%s:%s:pwm%d", chip.Id, chip.Name, index),
			})
		}
	}

	sort.Slice(temps, func(i, j int) bool { return temps[i].Index < temps[j].Index })
	sort.Slice(fans, func(i, j int) bool { return fans[i].Index < fans[j].Index })
	sort.Slice(pwms, func(i, j int) bool { return pwms[i].Index < pwms[j].Index })

	return temps, fans, pwms
}

// readLabel reads the label of an in/output of a chip, e.g. temp1_label
// for temp1_input, falling back to the given default.
func readLabel(chip Chip, inputFile string, fallback string) string {
	labelPath := filepath.Join(chip.Path, strings.TrimSuffix(inputFile, "input")+"label")
	label, err := util.ReadTextFromFile(labelPath)
	if err != nil || len(label) <= 0 {
		return fallback
	}
	return label
}

func readChipName(chipPath string) string {
	name, err := util.ReadTextFromFile(filepath.Join(chipPath, "name"))
	if err != nil || len(name) <= 0 {
		return filepath.Base(chipPath)
	}
	return name
}

func readChipVendor(chipPath string) string {
	vendor, _ := util.ReadTextFromFile(filepath.Join(chipPath, "device", "vendor"))
	return vendor
}

func optionalFile(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func readMaxRaw(pwmPath string) int {
	value, err := util.ReadIntFromFile(pwmPath + "_max")
	if err != nil || value <= 0 {
		return DefaultMaxRaw
	}
	return value
}
