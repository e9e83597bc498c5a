package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/linuxfancontrol/lfcd/cmd/global"
	"github.com/linuxfancontrol/lfcd/internal/configuration"
	"github.com/linuxfancontrol/lfcd/internal/detection"
	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/lease"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

var probeFans bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long: `Scans the hwmon tree and prints all temperature sensors, fans and
pwm outputs. With --probe, additionally spins up every pwm output one
at a time to find out which fan it controls.`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		sysfsIo := hwmon.NewSysfsIo()
		inventory := hwmon.Scan(configuration.CurrentConfig.SysfsRoot)

		printInventory(sysfsIo, inventory)

		if probeFans {
			runProbe(sysfsIo, inventory)
		}
	},
}

func init() {
	detectCmd.Flags().BoolVarP(&probeFans, "probe", "p", false, "Actively probe which pwm output controls which fan (spins fans up!)")
	rootCmd.AddCommand(detectCmd)
}

func tableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

func printTable(t table.Table) {
	if t.Rows == nil {
		return
	}
	var buf bytes.Buffer
	if err := t.WriteTable(&buf, tableConfig()); err != nil {
		ui.Fatal("Error printing table: %v", err)
	}
	ui.Printfln(buf.String())
}

func printInventory(io hwmon.Io, inventory hwmon.Inventory) {
	for _, chip := range inventory.Chips {
		temps := inventory.TempsForChip(chip.Id)
		fans := inventory.FansForChip(chip.Id)

		var pwms []hwmon.PwmOutput
		for _, pwm := range inventory.Pwms {
			if pwm.ChipId == chip.Id {
				pwms = append(pwms, pwm)
			}
		}

		if len(temps) <= 0 && len(fans) <= 0 && len(pwms) <= 0 {
			continue
		}

		ui.Printfln("> %s", chip)

		var sensorRows [][]string
		for _, sensor := range temps {
			valueText := "N/A"
			if milliC, err := io.ReadMilliC(sensor); err == nil {
				valueText = fmt.Sprintf("%.1f°C", float64(milliC)/1000.0)
			}
			sensorRows = append(sensorRows, []string{
				"", strconv.Itoa(sensor.Index), sensor.Label, valueText,
			})
		}
		printTable(table.Table{
			Headers: []string{"Sensors", "Index", "Label", "Value"},
			Rows:    sensorRows,
		})

		var fanRows [][]string
		for _, fan := range fans {
			rpmText := "N/A"
			if rpm, err := io.ReadRpm(fan); err == nil {
				rpmText = strconv.Itoa(rpm)
			}
			fanRows = append(fanRows, []string{
				"", strconv.Itoa(fan.Index), fan.Label, rpmText,
			})
		}
		printTable(table.Table{
			Headers: []string{"Fans   ", "Index", "Label", "RPM"},
			Rows:    fanRows,
		})

		var pwmRows [][]string
		for _, pwm := range pwms {
			dutyText := "N/A"
			if percent, err := hwmon.ReadPercent(io, pwm); err == nil {
				dutyText = strconv.Itoa(percent) + "%"
			}
			enableText := "N/A"
			if len(pwm.EnablePath) > 0 {
				if enable, err := io.ReadEnable(pwm); err == nil {
					enableText = strconv.Itoa(enable)
				}
			}
			pwmRows = append(pwmRows, []string{
				"", strconv.Itoa(pwm.Index), dutyText, enableText,
			})
		}
		printTable(table.Table{
			Headers: []string{"PWMs   ", "Index", "Duty", "Enable"},
			Rows:    pwmRows,
		})
	}
}

// runProbe performs a full detection sweep and prints the resulting
// pwm to fan mapping.
func runProbe(io hwmon.Io, inventory hwmon.Inventory) {
	if os.Geteuid() != 0 {
		ui.Fatal("Probing requires root permissions to be able to drive fans")
	}

	config := detection.Config{
		SettleTime:       configuration.CurrentConfig.Detection.SettleTime,
		SpinupWindow:     configuration.CurrentConfig.Detection.SpinupWindow,
		PollInterval:     configuration.CurrentConfig.Detection.PollInterval,
		MeasureWindow:    configuration.CurrentConfig.Detection.MeasureWindow,
		ModeDwell:        configuration.CurrentConfig.Detection.ModeDwell,
		RpmDeltaThresh:   configuration.CurrentConfig.Detection.RpmDeltaThresh,
		RampStartPercent: configuration.CurrentConfig.Detection.RampStartPercent,
		RampEndPercent:   configuration.CurrentConfig.Detection.RampEndPercent,
		ModeToggleTries:  configuration.CurrentConfig.Detection.ModeToggleTries,
		TempDeltaThreshC: configuration.CurrentConfig.Detection.TempDeltaThreshC,
	}

	detect := detection.New(io, inventory, lease.NewRegistry(), config)
	if err := detect.Start(); err != nil {
		ui.Fatal("Unable to start detection: %v", err)
	}

	lastPhase := detection.PhaseIdle
	for {
		status := detect.Status()
		if !status.Running {
			break
		}
		if status.Phase != lastPhase {
			lastPhase = status.Phase
			ui.Info("Probing %d/%d: %s", status.CurrentIndex+1, status.Total, status.Phase)
		}
		time.Sleep(100 * time.Millisecond)
	}

	var rows [][]string
	for _, result := range detect.Results() {
		mapping := "unmapped"
		evidence := string(result.Evidence)
		switch result.Evidence {
		case detection.EvidenceRpm:
			mapping = fmt.Sprintf("%s (peak %d rpm)", result.Fan, result.PeakRpm)
		case detection.EvidenceTemperature:
			mapping = fmt.Sprintf("%s (Δ%.1f°C)", result.TempSensor, result.TempDeltaC)
		}
		rows = append(rows, []string{"", result.Pwm, mapping, evidence})
	}
	printTable(table.Table{
		Headers: []string{"Results", "PWM", "Mapping", "Evidence"},
		Rows:    rows,
	})
}
