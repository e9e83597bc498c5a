package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/linuxfancontrol/lfcd/internal/configuration"
	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

var watchSensors bool

var sensorCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Print temperature sensor readings",
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		sysfsIo := hwmon.NewSysfsIo()
		inventory := hwmon.Scan(configuration.CurrentConfig.SysfsRoot)
		if len(inventory.Temps) <= 0 {
			ui.Fatal("No temperature sensors found")
		}

		for {
			printSensors(sysfsIo, inventory)
			if !watchSensors {
				return
			}
			time.Sleep(time.Second)
		}
	},
}

func init() {
	sensorCmd.Flags().BoolVarP(&watchSensors, "watch", "w", false, "Keep printing readings every second")
	rootCmd.AddCommand(sensorCmd)
}

func printSensors(io hwmon.Io, inventory hwmon.Inventory) {
	var rows [][]string
	for _, sensor := range inventory.Temps {
		valueText := "N/A"
		if milliC, err := io.ReadMilliC(sensor); err == nil {
			valueText = strconv.FormatFloat(float64(milliC)/1000.0, 'f', 1, 64) + "°C"
		}
		rows = append(rows, []string{
			"", sensor.ChipId, strconv.Itoa(sensor.Index), sensor.Label, valueText,
		})
	}
	printTable(table.Table{
		Headers: []string{"Sensors", "Chip", "Index", "Label", "Value"},
		Rows:    rows,
	})
}
