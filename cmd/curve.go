package cmd

import (
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/linuxfancontrol/lfcd/internal/configuration"
	"github.com/linuxfancontrol/lfcd/internal/engine"
	"github.com/linuxfancontrol/lfcd/internal/profile"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

const (
	curvePreviewMinTempC = 0.0
	curvePreviewMaxTempC = 100.0
	curvePreviewStepC    = 1.0
	curvePreviewHeight   = 15
)

var curveCmd = &cobra.Command{
	Use:   "curve <profile>",
	Short: "Print the fan curve(s) of a profile to console",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		name := args[0]
		p, err := profile.Load(profile.PathForName(configuration.CurrentConfig.ProfileDir, name))
		if err != nil {
			ui.Fatal("Unable to load profile %s: %v", name, err)
		}

		for idx, curve := range p.FanCurves {
			if idx > 0 {
				ui.Printfln("")
				ui.Printfln("")
			}
			printCurve(&curve)
		}
	},
}

func init() {
	rootCmd.AddCommand(curveCmd)
}

func printCurve(curve *profile.FanCurveSpec) {
	ui.Printfln("%s (%s)", curve.Name, curve.Type)

	if curve.Type == profile.KindMix {
		ui.Printfln("  %s over: %s", curve.Mix, strings.Join(curve.CurveRefs, ", "))
		return
	}

	var values []float64
	for tempC := curvePreviewMinTempC; tempC <= curvePreviewMaxTempC; tempC += curvePreviewStepC {
		values = append(values, float64(engine.PreviewCurve(*curve, tempC)))
	}

	caption := "duty % over 0-100°C"
	graph := asciigraph.Plot(values,
		asciigraph.Height(curvePreviewHeight),
		asciigraph.Caption(caption),
	)
	ui.Printfln("%s", graph)
}
