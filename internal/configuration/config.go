package configuration

import (
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/linuxfancontrol/lfcd/internal/ui"
)

type Configuration struct {
	DbPath  string `json:"dbPath"`
	PidFile string `json:"pidFile"`

	SysfsRoot string `json:"sysfsRoot"`

	ProfileDir    string `json:"profileDir"`
	ActiveProfile string `json:"activeProfile"`

	Engine    EngineConfig    `json:"engine"`
	Detection DetectionConfig `json:"detection"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("lfcd")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/lfcd/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbpath", "/etc/lfcd/lfcd.db")
	viper.SetDefault("pidfile", "/run/lfcd.pid")
	viper.SetDefault("sysfsroot", "/sys/class/hwmon")
	viper.SetDefault("profiledir", "/var/lib/lfcd/profiles")
	viper.SetDefault("activeprofile", "Default")

	viper.SetDefault("engine.enabled", true)
	viper.SetDefault("engine.tickrate", 500*time.Millisecond)
	viper.SetDefault("engine.forcetickrate", 2*time.Second)
	viper.SetDefault("engine.deltac", 0.5)

	viper.SetDefault("detection.settletime", 250*time.Millisecond)
	viper.SetDefault("detection.spinupwindow", 5*time.Second)
	viper.SetDefault("detection.pollinterval", 100*time.Millisecond)
	viper.SetDefault("detection.measurewindow", 10*time.Second)
	viper.SetDefault("detection.modedwell", 600*time.Millisecond)
	viper.SetDefault("detection.rpmdeltathresh", 30)
	viper.SetDefault("detection.rampstartpercent", 30)
	viper.SetDefault("detection.rampendpercent", 100)
	viper.SetDefault("detection.modetoggletries", 1)
	viper.SetDefault("detection.tempdeltathreshc", 0.5)

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.host", "127.0.0.1")
	viper.SetDefault("api.port", 8777)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)

	viper.SetDefault("telemetry.streampath", "")
	viper.SetDefault("telemetry.latestpath", "/run/lfcd/telemetry.json")
	viper.SetDefault("telemetry.historypath", "")
	viper.SetDefault("telemetry.retention", 24*time.Hour)
}

// DetectAndReadConfigFile detects the path of the first existing config file
func DetectAndReadConfigFile() string {
	err := readInConfig()
	if err != nil {
		ui.Fatal("Error reading config file, %s", err)
	}
	return GetFilePath()
}

// readInConfig reads and parses the config file
func readInConfig() error {
	return viper.ReadInConfig()
}

// GetFilePath this is only populated _after_ readInConfig()
func GetFilePath() string {
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	// load default configuration values
	err := viper.Unmarshal(&CurrentConfig)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
