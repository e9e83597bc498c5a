package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linuxfancontrol/lfcd/internal/api"
	"github.com/linuxfancontrol/lfcd/internal/configuration"
	"github.com/linuxfancontrol/lfcd/internal/detection"
	"github.com/linuxfancontrol/lfcd/internal/engine"
	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/lease"
	"github.com/linuxfancontrol/lfcd/internal/persistence"
	"github.com/linuxfancontrol/lfcd/internal/profile"
	"github.com/linuxfancontrol/lfcd/internal/statistics"
	"github.com/linuxfancontrol/lfcd/internal/telemetry"
	"github.com/linuxfancontrol/lfcd/internal/ui"
	"github.com/linuxfancontrol/lfcd/internal/util"
)

const historyPruneInterval = 1 * time.Hour

func RunDaemon() {
	if getProcessOwner() != "root" {
		ui.Fatal("Fan control requires root permissions to be able to modify fan speeds, please run lfcd as root")
	}

	config := &configuration.CurrentConfig

	if err := util.WritePidFile(config.PidFile); err != nil {
		if errors.Is(err, util.ErrAlreadyRunning) {
			ui.Fatal("Another instance is already running (%s)", config.PidFile)
		}
		ui.Warning("Unable to write pid file %s: %v", config.PidFile, err)
	}
	defer func() {
		_ = util.RemovePidFile(config.PidFile)
	}()

	pers := persistence.NewPersistence(config.DbPath)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize persistence: %v", err)
	}

	sysfsIo := hwmon.NewSysfsIo()
	inventory := hwmon.Scan(config.SysfsRoot)
	if len(inventory.Pwms) <= 0 && len(inventory.Temps) <= 0 {
		ui.Fatal("No hwmon devices found under %s, exiting.", config.SysfsRoot)
	}
	ui.Info("Found %d chips, %d temperature sensors, %d fans, %d pwm outputs",
		len(inventory.Chips), len(inventory.Temps), len(inventory.Fans), len(inventory.Pwms))

	// an unclean shutdown may have left pwms in manual mode; roll the
	// previous snapshot back before taking a fresh one
	rollbackEnableSnapshot(pers, sysfsIo, inventory)
	enableSnapshot := takeEnableSnapshot(sysfsIo, inventory)
	if err := pers.SavePwmEnableSnapshot(enableSnapshot); err != nil {
		ui.Warning("Unable to persist pwm enable snapshot: %v", err)
	}

	leases := lease.NewRegistry()
	publisher, history, closeTelemetry := buildTelemetry(config.Telemetry)
	defer closeTelemetry()

	fanEngine := engine.New(sysfsIo, inventory, leases, publisher, config.Engine.ForceTickRate)
	fanEngine.SetControlEnabled(config.Engine.Enabled)
	applyActiveProfile(fanEngine, config)

	detect := detection.New(sysfsIo, inventory, leases, detectionConfig(config.Detection))
	detect.OnComplete = func(results []detection.Result) {
		if err := pers.SaveDetectionResults(results); err != nil {
			ui.Warning("Unable to persist detection results: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === control loop
		g.Add(func() error {
			ticker := time.NewTicker(config.Engine.TickRate)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					fanEngine.Tick(config.Engine.DeltaC)
				case <-ctx.Done():
					ui.Info("Stopping control loop...")
					return nil
				}
			}
		}, func(err error) {
			cancel()
		})
	}
	if history != nil {
		// === telemetry history pruning
		g.Add(func() error {
			ticker := time.NewTicker(historyPruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := history.Prune(config.Telemetry.Retention); err != nil {
						ui.Warning("Unable to prune telemetry history: %v", err)
					}
				case <-ctx.Done():
					return nil
				}
			}
		}, func(err error) {
			cancel()
		})
	}
	if config.Api.Enabled {
		// === REST api
		restApi := &api.Api{
			Inventory:   inventory,
			Engine:      fanEngine,
			Detection:   detect,
			Persistence: pers,
			History:     history,
			ProfileDir:  config.ProfileDir,
		}
		restService := restApi.CreateRestService()
		g.Add(func() error {
			addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)
			if err := restService.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				ui.Error("Cannot start REST api endpoint (%s)", err.Error())
				return err
			}
			return nil
		}, func(err error) {
			ui.Info("Stopping REST api...")
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer timeoutCancel()
			_ = restService.Shutdown(timeoutCtx)
			cancel()
		})
	}
	if config.Statistics.Enabled {
		// === Prometheus Exporter
		statistics.Register(statistics.NewSensorCollector(sysfsIo, inventory.Temps))
		statistics.Register(statistics.NewFanCollector(sysfsIo, inventory.Fans))
		statistics.Register(statistics.NewControlCollector(sysfsIo, inventory.Pwms))

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", config.Statistics.Port),
			Handler: promhttp.Handler(),
		}
		g.Add(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
				return err
			}
			return nil
		}, func(err error) {
			ui.Info("Stopping statistics server...")
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer timeoutCancel()
			_ = server.Shutdown(timeoutCtx)
			cancel()
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	err := g.Run()

	detect.Abort()
	restoreEnableSnapshot(pers, sysfsIo, inventory, enableSnapshot)

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Info("Done.")
}

// applyActiveProfile loads the configured profile and hands it to the
// engine. A missing or invalid profile leaves the daemon in pure
// monitoring mode instead of failing startup.
func applyActiveProfile(fanEngine *engine.Engine, config *configuration.Configuration) {
	if len(config.ActiveProfile) <= 0 {
		return
	}

	path := profile.PathForName(config.ProfileDir, config.ActiveProfile)
	p, err := profile.Load(path)
	if err != nil {
		ui.Warning("Unable to load active profile %s: %v", config.ActiveProfile, err)
		return
	}
	if err := profile.Validate(&p); err != nil {
		ui.Warning("Active profile %s is invalid: %v", config.ActiveProfile, err)
		return
	}

	fanEngine.ApplyProfile(p)
	ui.Info("Applied profile %s", p.Name)
}

// buildTelemetry assembles the configured telemetry sinks. The close
// function flushes and closes all of them.
func buildTelemetry(config configuration.TelemetryConfig) (telemetry.Publisher, *telemetry.History, func()) {
	var publishers telemetry.MultiPublisher
	var closers []func()

	if len(config.StreamPath) > 0 || len(config.LatestPath) > 0 {
		sink := telemetry.NewFileSink(config.StreamPath, config.LatestPath)
		publishers = append(publishers, sink)
		closers = append(closers, func() { _ = sink.Close() })
	}

	var history *telemetry.History
	if len(config.HistoryPath) > 0 {
		var err error
		history, err = telemetry.NewHistory(config.HistoryPath)
		if err != nil {
			ui.Warning("Unable to open telemetry history %s: %v", config.HistoryPath, err)
		} else {
			publishers = append(publishers, history)
			closers = append(closers, func() { _ = history.Close() })
		}
	}

	closeAll := func() {
		for _, closeSink := range closers {
			closeSink()
		}
	}
	if len(publishers) <= 0 {
		return telemetry.Discard{}, nil, closeAll
	}
	return publishers, history, closeAll
}

func detectionConfig(config configuration.DetectionConfig) detection.Config {
	return detection.Config{
		SettleTime:       config.SettleTime,
		SpinupWindow:     config.SpinupWindow,
		PollInterval:     config.PollInterval,
		MeasureWindow:    config.MeasureWindow,
		ModeDwell:        config.ModeDwell,
		RpmDeltaThresh:   config.RpmDeltaThresh,
		RampStartPercent: config.RampStartPercent,
		RampEndPercent:   config.RampEndPercent,
		ModeToggleTries:  config.ModeToggleTries,
		TempDeltaThreshC: config.TempDeltaThreshC,
	}
}

// takeEnableSnapshot records the current control mode of every pwm so
// it can be restored at shutdown.
func takeEnableSnapshot(io hwmon.Io, inventory hwmon.Inventory) map[string]int {
	snapshot := map[string]int{}
	for _, pwm := range inventory.Pwms {
		if len(pwm.EnablePath) <= 0 {
			continue
		}
		if enable, err := io.ReadEnable(pwm); err == nil {
			snapshot[pwm.PwmPath] = enable
		}
	}
	return snapshot
}

// restoreEnableSnapshot hands the fans back to their original control
// mode and drops the persisted snapshot.
func restoreEnableSnapshot(pers persistence.Persistence, io hwmon.Io, inventory hwmon.Inventory, snapshot map[string]int) {
	writeEnableSnapshot(io, inventory, snapshot)
	if err := pers.DeletePwmEnableSnapshot(); err != nil {
		ui.Warning("Unable to drop pwm enable snapshot: %v", err)
	}
}

// rollbackEnableSnapshot applies a snapshot left behind by an unclean
// shutdown of a previous instance.
func rollbackEnableSnapshot(pers persistence.Persistence, io hwmon.Io, inventory hwmon.Inventory) {
	snapshot, err := pers.LoadPwmEnableSnapshot()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ui.Warning("Unable to read pwm enable snapshot: %v", err)
		}
		return
	}
	ui.Info("Rolling back pwm state of a previous unclean shutdown")
	writeEnableSnapshot(io, inventory, snapshot)
	_ = pers.DeletePwmEnableSnapshot()
}

func writeEnableSnapshot(io hwmon.Io, inventory hwmon.Inventory, snapshot map[string]int) {
	for _, pwm := range inventory.Pwms {
		enable, ok := snapshot[pwm.PwmPath]
		if !ok {
			continue
		}
		if err := io.WriteEnable(pwm, enable); err != nil {
			ui.Warning("Unable to restore control mode of %s: %v", pwm, err)
		}
	}
}

func getProcessOwner() string {
	stdout, err := exec.Command("ps", "-o", "user=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		ui.Fatal("Error checking process owner: %v", err)
		os.Exit(1)
	}
	return strings.TrimSpace(string(stdout))
}
