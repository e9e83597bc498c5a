package detection

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/asecurityteam/rolling"

	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/lease"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

// ErrAlreadyRunning is returned by Start while a sweep is active.
var ErrAlreadyRunning = errors.New("detection is already running")

// UnmappedRpm is the peak value recorded for a pwm that produced no
// measurable fan response.
const UnmappedRpm = -1

// leaseOwner is the name under which detection holds pwm leases.
const leaseOwner = "detection"

// baselineSamples is the number of rpm reads averaged per candidate
// before driving a pwm, to keep tachometer jitter out of the baseline.
const baselineSamples = 5

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePrepare    Phase = "prepare"
	PhaseSpinup     Phase = "spinup"
	PhaseMeasure    Phase = "measure"
	PhaseRestore    Phase = "restore"
	PhaseRestoreAll Phase = "restoreAll"
	PhaseDone       Phase = "done"
)

type Evidence string

const (
	EvidenceRpm         Evidence = "rpm"
	EvidenceTemperature Evidence = "temperature"
	EvidenceNone        Evidence = "none"
)

// Config holds the tuning parameters of a detection sweep. The
// defaults are deliberately conservative: a sweep takes roughly
// measure-window seconds per responsive pwm.
type Config struct {
	SettleTime    time.Duration
	SpinupWindow  time.Duration
	PollInterval  time.Duration
	MeasureWindow time.Duration
	ModeDwell     time.Duration

	RpmDeltaThresh   int
	RampStartPercent int
	RampEndPercent   int
	ModeToggleTries  int
	TempDeltaThreshC float64
}

func DefaultConfig() Config {
	return Config{
		SettleTime:       250 * time.Millisecond,
		SpinupWindow:     5 * time.Second,
		PollInterval:     100 * time.Millisecond,
		MeasureWindow:    10 * time.Second,
		ModeDwell:        600 * time.Millisecond,
		RpmDeltaThresh:   30,
		RampStartPercent: 30,
		RampEndPercent:   100,
		ModeToggleTries:  1,
		TempDeltaThreshC: 0.5,
	}
}

// Status is a point-in-time snapshot of a running (or finished) sweep.
type Status struct {
	Running      bool   `json:"running"`
	Phase        Phase  `json:"phase"`
	CurrentIndex int    `json:"currentIndex"`
	CurrentPwm   string `json:"currentPwm,omitempty"`
	Total        int    `json:"total"`
}

// Result is the detection outcome for one pwm output.
type Result struct {
	Pwm        string   `json:"pwm"`
	PeakRpm    int      `json:"peakRpm"`
	Fan        string   `json:"fan,omitempty"`
	Evidence   Evidence `json:"evidence"`
	TempSensor string   `json:"tempSensor,omitempty"`
	TempDeltaC float64  `json:"tempDeltaC,omitempty"`
}

// snapshot remembers the original state of one pwm so it can be
// restored after (or mid-way through) its test.
type snapshot struct {
	raw       int
	hasRaw    bool
	enable    int
	hasEnable bool
	mode      int
	hasMode   bool

	touched bool
}

// Detection drives every pwm output to full duty, one at a time, and
// watches the tachometers for the fan that responds. It is disruptive
// by nature: fans spin up audibly while a sweep runs. A single
// instance runs at most one sweep at a time.
type Detection struct {
	io        hwmon.Io
	inventory hwmon.Inventory
	leases    *lease.Registry
	config    Config

	// invoked from the worker goroutine after a finished sweep,
	// aborted or not. Set before Start.
	OnComplete func([]Result)

	mu           sync.Mutex
	running      bool
	stop         chan struct{}
	phase        Phase
	currentIndex int
	results      map[string]Result
}

func New(io hwmon.Io, inventory hwmon.Inventory, leases *lease.Registry, config Config) *Detection {
	if leases == nil {
		leases = lease.NewRegistry()
	}
	return &Detection{
		io:        io,
		inventory: inventory,
		leases:    leases,
		config:    config,
		phase:     PhaseIdle,
		results:   map[string]Result{},
	}
}

// Start launches the sweep worker. Results from a previous sweep are
// discarded.
func (d *Detection) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.stop = make(chan struct{})
	d.phase = PhasePrepare
	d.currentIndex = 0
	d.results = map[string]Result{}
	d.mu.Unlock()

	ui.Info("Starting fan detection sweep over %d pwm outputs", len(d.inventory.Pwms))
	go d.worker()
	return nil
}

// Abort requests a cooperative stop. The worker still restores every
// pwm it has touched before going idle.
func (d *Detection) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}

func (d *Detection) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		Running:      d.running,
		Phase:        d.phase,
		CurrentIndex: d.currentIndex,
		Total:        len(d.inventory.Pwms),
	}
	if d.running && d.currentIndex < len(d.inventory.Pwms) {
		status.CurrentPwm = d.inventory.Pwms[d.currentIndex].PwmPath
	}
	return status
}

// Results returns a copy of what the sweep has produced so far,
// ordered by pwm path. Outputs not yet reached are absent.
func (d *Detection) Results() []Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	var results []Result
	for _, result := range d.results {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Pwm < results[j].Pwm
	})
	return results
}

func (d *Detection) stopped() bool {
	select {
	case <-d.stop:
		return true
	default:
		return false
	}
}

// sleep waits for the given duration, returning false if the sweep
// was aborted meanwhile.
func (d *Detection) sleep(duration time.Duration) bool {
	select {
	case <-d.stop:
		return false
	case <-time.After(duration):
		return true
	}
}

func (d *Detection) setProgress(index int, phase Phase) {
	d.mu.Lock()
	d.currentIndex = index
	d.phase = phase
	d.mu.Unlock()
}

func (d *Detection) setPhase(phase Phase) {
	d.mu.Lock()
	d.phase = phase
	d.mu.Unlock()
}

func (d *Detection) storeResult(result Result) {
	d.mu.Lock()
	d.results[result.Pwm] = result
	d.mu.Unlock()
}

func (d *Detection) worker() {
	snapshots := d.prepare()
	claimed := map[string]bool{}

	for i := range d.inventory.Pwms {
		if d.stopped() {
			break
		}
		pwm := d.inventory.Pwms[i]

		d.setProgress(i, PhaseSpinup)
		d.leases.Acquire(pwm.PwmPath, leaseOwner)

		result := d.probePwm(pwm, &snapshots[i], claimed)
		d.storeResult(result)

		d.setPhase(PhaseRestore)
		d.restore(pwm, snapshots[i])
	}

	d.setPhase(PhaseRestoreAll)
	for i := range d.inventory.Pwms {
		if snapshots[i].touched {
			d.restore(d.inventory.Pwms[i], snapshots[i])
		}
	}
	d.leases.ReleaseAll(leaseOwner)

	results := d.Results()

	d.mu.Lock()
	d.phase = PhaseDone
	d.running = false
	d.mu.Unlock()

	ui.Info("Fan detection finished, %d outputs probed", len(results))
	if d.OnComplete != nil {
		d.OnComplete(results)
	}
}

// prepare snapshots the original duty, enable and mode of every pwm.
func (d *Detection) prepare() []snapshot {
	snapshots := make([]snapshot, len(d.inventory.Pwms))
	for i, pwm := range d.inventory.Pwms {
		if raw, err := d.io.ReadRaw(pwm); err == nil {
			snapshots[i].raw = raw
			snapshots[i].hasRaw = true
		}
		if len(pwm.EnablePath) > 0 {
			if enable, err := d.io.ReadEnable(pwm); err == nil {
				snapshots[i].enable = enable
				snapshots[i].hasEnable = true
			}
		}
		if len(pwm.ModePath) > 0 {
			if mode, err := d.io.ReadMode(pwm); err == nil {
				snapshots[i].mode = mode
				snapshots[i].hasMode = true
			}
		}
	}
	return snapshots
}

// restore writes the snapshotted state back, duty first so a fan never
// runs uncontrolled in a wrong mode.
func (d *Detection) restore(pwm hwmon.PwmOutput, snap snapshot) {
	if snap.hasRaw {
		if err := d.io.WriteRaw(pwm, snap.raw); err != nil {
			ui.Warning("Unable to restore duty on %s: %v", pwm, err)
		}
	}
	if snap.hasMode {
		if err := d.io.WriteMode(pwm, snap.mode); err != nil {
			ui.Warning("Unable to restore mode on %s: %v", pwm, err)
		}
	}
	if snap.hasEnable {
		if err := d.io.WriteEnable(pwm, snap.enable); err != nil {
			ui.Warning("Unable to restore enable on %s: %v", pwm, err)
		}
	}
}

// probePwm runs the full per-pwm procedure and returns its result.
// The pwm is left driven; the caller restores it.
func (d *Detection) probePwm(pwm hwmon.PwmOutput, snap *snapshot, claimed map[string]bool) Result {
	result := Result{Pwm: pwm.PwmPath, PeakRpm: UnmappedRpm, Evidence: EvidenceNone}

	candidates, global := candidateFans(d.inventory, pwm, claimed)
	if len(candidates) <= 0 {
		return d.probeByTemperature(pwm, snap, result)
	}

	baseline := d.baselineRpm(candidates)
	driveStart := time.Now()
	d.drive(pwm, snap)

	spun, fan := d.awaitSpinup(candidates, baseline)
	if !spun {
		spun, fan = d.retryWithToggledMode(pwm, snap, candidates, baseline)
	}
	if !spun {
		ui.Info("Pwm %s: no rpm response, marking unmapped", pwm)
		return result
	}

	d.setPhase(PhaseMeasure)
	peak, peakFan := d.measurePeak(candidates, driveStart, fan)

	if global {
		claimed[peakFan.InputPath] = true
	}

	result.PeakRpm = peak
	result.Fan = peakFan.InputPath
	result.Evidence = EvidenceRpm
	ui.Info("Pwm %s: mapped to %s, peak %d rpm", pwm, peakFan, peak)
	return result
}

// drive forces manual mode and ramps the pwm to full duty.
func (d *Detection) drive(pwm hwmon.PwmOutput, snap *snapshot) {
	snap.touched = true

	if !hwmon.SetManual(d.io, pwm) {
		ui.Warning("Unable to force manual mode on %s", pwm)
	}
	if d.config.RampStartPercent > 0 && d.config.RampStartPercent < d.config.RampEndPercent {
		hwmon.SetPercent(d.io, pwm, d.config.RampStartPercent)
		if !d.sleep(d.config.SettleTime) {
			return
		}
	}
	hwmon.SetPercent(d.io, pwm, d.config.RampEndPercent)
}

// baselineRpm averages a few reads per candidate and returns the
// highest average.
func (d *Detection) baselineRpm(candidates []hwmon.FanTach) int {
	baseline := 0
	for _, fan := range candidates {
		window := rolling.NewPointPolicy(rolling.NewWindow(baselineSamples))
		for i := 0; i < baselineSamples; i++ {
			if rpm, err := d.io.ReadRpm(fan); err == nil {
				window.Append(float64(rpm))
			}
		}
		avg := int(window.Reduce(rolling.Avg))
		if avg > baseline {
			baseline = avg
		}
	}
	return baseline
}

// awaitSpinup polls the candidates until one exceeds the baseline by
// the configured threshold or the spin-up window elapses.
func (d *Detection) awaitSpinup(candidates []hwmon.FanTach, baseline int) (bool, hwmon.FanTach) {
	deadline := time.Now().Add(d.config.SpinupWindow)
	for time.Now().Before(deadline) {
		for _, fan := range candidates {
			rpm, err := d.io.ReadRpm(fan)
			if err != nil {
				continue
			}
			if rpm >= baseline+d.config.RpmDeltaThresh {
				return true, fan
			}
		}
		if !d.sleep(d.config.PollInterval) {
			break
		}
	}
	return false, hwmon.FanTach{}
}

// retryWithToggledMode flips the pwm mode file (DC vs PWM signalling)
// and repeats the spin-up check. Some controllers only react in one of
// the two modes. The snapshotted mode is restored by the caller.
func (d *Detection) retryWithToggledMode(pwm hwmon.PwmOutput, snap *snapshot, candidates []hwmon.FanTach, baseline int) (bool, hwmon.FanTach) {
	if len(pwm.ModePath) <= 0 || !snap.hasMode {
		return false, hwmon.FanTach{}
	}

	toggled := 1 - snap.mode
	if toggled < 0 || toggled > 1 {
		return false, hwmon.FanTach{}
	}

	for try := 0; try < d.config.ModeToggleTries; try++ {
		if d.stopped() {
			break
		}
		ui.Debug("Pwm %s: retrying spin-up with mode %d", pwm, toggled)
		if err := d.io.WriteMode(pwm, toggled); err != nil {
			return false, hwmon.FanTach{}
		}
		if !d.sleep(d.config.ModeDwell) {
			break
		}
		hwmon.SetPercent(d.io, pwm, d.config.RampEndPercent)
		if spun, fan := d.awaitSpinup(candidates, baseline); spun {
			return true, fan
		}
	}
	return false, hwmon.FanTach{}
}

// measurePeak keeps polling until the measure window (counted from
// drive start) elapses and returns the highest rpm seen and the fan
// that produced it.
func (d *Detection) measurePeak(candidates []hwmon.FanTach, driveStart time.Time, spunFan hwmon.FanTach) (int, hwmon.FanTach) {
	peak := 0
	peakFan := spunFan

	deadline := driveStart.Add(d.config.MeasureWindow)
	for {
		for _, fan := range candidates {
			rpm, err := d.io.ReadRpm(fan)
			if err != nil {
				continue
			}
			if rpm > peak {
				peak = rpm
				peakFan = fan
			}
		}
		if !time.Now().Before(deadline) {
			break
		}
		if !d.sleep(d.config.PollInterval) {
			break
		}
	}
	return peak, peakFan
}

// probeByTemperature is the fallback for systems without any usable
// tachometer: drive the pwm and pick the temperature sensor with the
// largest absolute change as mapping evidence.
func (d *Detection) probeByTemperature(pwm hwmon.PwmOutput, snap *snapshot, result Result) Result {
	if len(d.inventory.Temps) <= 0 {
		return result
	}

	before := map[int]int{}
	for i, sensor := range d.inventory.Temps {
		if milliC, err := d.io.ReadMilliC(sensor); err == nil {
			before[i] = milliC
		}
	}

	driveStart := time.Now()
	d.drive(pwm, snap)

	bestIndex := -1
	bestDelta := 0.0
	deadline := driveStart.Add(d.config.MeasureWindow)
	for time.Now().Before(deadline) {
		if !d.sleep(d.config.PollInterval) {
			break
		}
		for i, sensor := range d.inventory.Temps {
			start, ok := before[i]
			if !ok {
				continue
			}
			milliC, err := d.io.ReadMilliC(sensor)
			if err != nil {
				continue
			}
			delta := float64(milliC-start) / 1000.0
			if delta < 0 {
				delta = -delta
			}
			if delta > bestDelta {
				bestDelta = delta
				bestIndex = i
			}
		}
	}

	if bestIndex < 0 || bestDelta < d.config.TempDeltaThreshC {
		ui.Info("Pwm %s: no temperature response, marking unmapped", pwm)
		return result
	}

	sensor := d.inventory.Temps[bestIndex]
	result.Evidence = EvidenceTemperature
	result.TempSensor = sensor.InputPath
	result.TempDeltaC = bestDelta
	ui.Info("Pwm %s: mapped to %s via temperature delta %.1f°C", pwm, sensor, bestDelta)
	return result
}

// candidateFans selects the tachometers to watch for a pwm: same-chip
// fans with a matching index first, then any same-chip fan, then the
// global set minus fans already claimed by earlier pwms. The second
// return value reports whether the global fallback was used.
func candidateFans(inventory hwmon.Inventory, pwm hwmon.PwmOutput, claimed map[string]bool) ([]hwmon.FanTach, bool) {
	var indexMatch, sameChip []hwmon.FanTach
	for _, fan := range inventory.Fans {
		if fan.ChipId != pwm.ChipId {
			continue
		}
		sameChip = append(sameChip, fan)
		if fan.Index == pwm.Index {
			indexMatch = append(indexMatch, fan)
		}
	}
	if len(indexMatch) > 0 {
		return indexMatch, false
	}
	if len(sameChip) > 0 {
		return sameChip, false
	}

	var unclaimed []hwmon.FanTach
	for _, fan := range inventory.Fans {
		if !claimed[fan.InputPath] {
			unclaimed = append(unclaimed, fan)
		}
	}
	return unclaimed, true
}
