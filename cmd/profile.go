package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/linuxfancontrol/lfcd/internal/configuration"
	"github.com/linuxfancontrol/lfcd/internal/profile"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage fan profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored profiles",
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		names := profile.List(configuration.CurrentConfig.ProfileDir)
		if len(names) <= 0 {
			ui.Printfln("No profiles found in %s", configuration.CurrentConfig.ProfileDir)
			return
		}
		for _, name := range names {
			ui.Printfln("%s", name)
		}
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		p, err := profile.Load(profile.PathForName(configuration.CurrentConfig.ProfileDir, args[0]))
		if err != nil {
			ui.Fatal("Unable to load profile %s: %v", args[0], err)
		}

		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			ui.Fatal("Unable to render profile: %v", err)
		}
		ui.Printfln("%s", string(data))
	},
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Validate a stored profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()
		configuration.LoadConfig()

		p, err := profile.Load(profile.PathForName(configuration.CurrentConfig.ProfileDir, args[0]))
		if err != nil {
			ui.Fatal("Unable to load profile %s: %v", args[0], err)
		}
		if err := profile.Validate(&p); err != nil {
			ui.Fatal("Profile %s is invalid: %v", args[0], err)
		}
		ui.Success("Profile %s is valid", args[0])
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileValidateCmd)
	rootCmd.AddCommand(profileCmd)
}
