package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/qdm12/reprint"

	"github.com/linuxfancontrol/lfcd/internal/hwmon"
	"github.com/linuxfancontrol/lfcd/internal/lease"
	"github.com/linuxfancontrol/lfcd/internal/profile"
	"github.com/linuxfancontrol/lfcd/internal/telemetry"
	"github.com/linuxfancontrol/lfcd/internal/ui"
	"github.com/linuxfancontrol/lfcd/internal/util"
)

// leaseOwner is the name under which the engine checks pwm leases.
const leaseOwner = "engine"

// binding is one compiled control: a physical pwm output linked to the
// evaluation logic for its curve.
type binding struct {
	controlName string
	pwm         hwmon.PwmOutput
	curve       evaluator
	minPercent  int

	lastPercent *int
}

// BindingStatus is the externally visible state of one binding.
type BindingStatus struct {
	Control     string `json:"control"`
	Pwm         string `json:"pwm"`
	Curve       string `json:"curve"`
	MinPercent  int    `json:"minPercent"`
	LastPercent *int   `json:"lastPercent"`
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	ControlEnabled bool            `json:"controlEnabled"`
	ProfileName    string          `json:"profileName"`
	Bindings       []BindingStatus `json:"bindings"`
}

// Engine compiles a declarative profile into bindings and evaluates
// them every tick against live sensor readings. All public methods are
// safe to call from any goroutine.
type Engine struct {
	io        hwmon.Io
	inventory hwmon.Inventory
	leases    *lease.Registry
	publisher telemetry.Publisher
	forceTick time.Duration

	mu             sync.Mutex
	controlEnabled bool
	profile        profile.Profile
	bindings       []*binding

	lastAppliedTemps map[int]int
	lastAppliedAt    time.Time

	// replaced in tests to control the gating clock
	now func() time.Time
}

func New(io hwmon.Io, inventory hwmon.Inventory, leases *lease.Registry, publisher telemetry.Publisher, forceTick time.Duration) *Engine {
	if leases == nil {
		leases = lease.NewRegistry()
	}
	if publisher == nil {
		publisher = telemetry.Discard{}
	}

	return &Engine{
		io:        io,
		inventory: inventory,
		leases:    leases,
		publisher: publisher,
		forceTick: forceTick,
		now:       time.Now,
	}
}

// ApplyProfile compiles the given profile into a new binding set,
// atomically replacing the previous one. It never writes hardware;
// writes happen on the next tick. Controls that do not resolve to an
// inventory entry are dropped with a log.
func (e *Engine) ApplyProfile(p profile.Profile) {
	curves := compileCurves(&p, e.inventory)

	var bindings []*binding
	for _, control := range p.Controls {
		if !control.Enabled {
			ui.Debug("Control %s is disabled, skipping", control.Name)
			continue
		}

		pwm, found := resolvePwm(e.inventory, control.PwmPath)
		if !found {
			ui.Warning("Control %s: pwm reference '%s' does not match any output, dropping", control.Name, control.PwmPath)
			continue
		}

		curve, found := curves[control.CurveRef]
		if !found {
			ui.Warning("Control %s: curve reference '%s' does not resolve, dropping", control.Name, control.CurveRef)
			continue
		}

		bindings = append(bindings, &binding{
			controlName: control.Name,
			pwm:         pwm,
			curve:       curve,
			minPercent:  util.CoerceInt(control.MinPercent, 0, 100),
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = p
	e.bindings = bindings
	// force evaluation on the next tick so the new profile takes
	// effect immediately
	e.lastAppliedAt = time.Time{}
	e.lastAppliedTemps = nil
}

// SetControlEnabled toggles whether ticks may write hardware. When
// disabled, sensors are still read and telemetry is still published.
func (e *Engine) SetControlEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controlEnabled = enabled
}

func (e *Engine) ControlEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlEnabled
}

// ActiveProfile returns a deep copy of the profile the current binding
// set was compiled from.
func (e *Engine) ActiveProfile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	var copied profile.Profile
	if err := reprint.FromTo(&e.profile, &copied); err != nil {
		return e.profile
	}
	return copied
}

// Status returns a snapshot safe to hand to other goroutines.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := Status{
		ControlEnabled: e.controlEnabled,
		ProfileName:    e.profile.Name,
	}
	for _, b := range e.bindings {
		var last *int
		if b.lastPercent != nil {
			value := *b.lastPercent
			last = &value
		}
		status.Bindings = append(status.Bindings, BindingStatus{
			Control:     b.controlName,
			Pwm:         b.pwm.PwmPath,
			Curve:       b.curve.Name(),
			MinPercent:  b.minPercent,
			LastPercent: last,
		})
	}
	return status
}

// Tick performs one evaluation cycle. deltaC is the minimum per-sensor
// temperature change that forces evaluation before the forceTick
// interval has elapsed.
func (e *Engine) Tick(deltaC float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	temps, env := e.readTemps()

	if !e.shouldEvaluate(now, temps, deltaC) {
		e.publisher.Publish(telemetry.Record{
			Time:    now,
			Applied: false,
			Temps:   tempReadings(e.inventory, temps),
		})
		return
	}

	record := telemetry.Record{
		Time:    now,
		Applied: true,
		Temps:   tempReadings(e.inventory, temps),
		Fans:    e.readFans(),
	}

	for _, b := range e.bindings {
		output := telemetry.ControlOutput{Pwm: b.pwm.PwmPath}
		b.lastPercent = nil

		if e.controlEnabled && len(env.tempC) > 0 {
			if e.leases.HeldBy(b.pwm.PwmPath, leaseOwner) {
				ui.Debug("Pwm %s is leased, skipping", b.pwm)
			} else if percent, ok := e.writeBinding(b, env); ok {
				output.Percent = &percent
				b.lastPercent = &percent
			}
		}

		record.Controls = append(record.Controls, output)
	}

	e.lastAppliedAt = now
	e.lastAppliedTemps = temps

	e.publisher.Publish(record)
}

// writeBinding evaluates one binding and drives its pwm.
func (e *Engine) writeBinding(b *binding, env *tickEnv) (int, bool) {
	percent := util.CoerceInt(b.curve.Evaluate(env), b.minPercent, 100)

	if !hwmon.SetManual(e.io, b.pwm) {
		ui.Warning("Unable to enable manual control on %s", b.pwm)
	}
	if !hwmon.SetPercent(e.io, b.pwm, percent) {
		ui.Warning("Unable to set %s to %d%%", b.pwm, percent)
		return 0, false
	}

	return percent, true
}

// shouldEvaluate is the gating decision: evaluate when the force
// interval has elapsed since the last applied tick, or when any sensor
// moved by at least deltaC since the last applied snapshot.
func (e *Engine) shouldEvaluate(now time.Time, temps map[int]int, deltaC float64) bool {
	if e.lastAppliedAt.IsZero() {
		return true
	}
	if e.forceTick > 0 && now.Sub(e.lastAppliedAt) >= e.forceTick {
		return true
	}

	deltaMilliC := deltaC * 1000
	for index, milliC := range temps {
		last, ok := e.lastAppliedTemps[index]
		if !ok {
			// a sensor that newly started reporting counts as movement
			return true
		}
		diff := float64(milliC - last)
		if diff < 0 {
			diff = -diff
		}
		if diff >= deltaMilliC {
			return true
		}
	}
	return false
}

// readTemps reads every inventory temperature, skipping sensors that
// fail. Keys are inventory indices.
func (e *Engine) readTemps() (map[int]int, *tickEnv) {
	temps := map[int]int{}
	env := &tickEnv{tempC: map[int]float64{}}

	for i, sensor := range e.inventory.Temps {
		milliC, err := e.io.ReadMilliC(sensor)
		if err != nil {
			ui.Debug("Unable to read %s: %v", sensor, err)
			continue
		}
		temps[i] = milliC

		tempC := float64(milliC) / 1000.0
		env.tempC[i] = tempC
		if tempC > env.maxTempC || len(env.tempC) == 1 {
			env.maxTempC = tempC
		}
	}

	return temps, env
}

func (e *Engine) readFans() []telemetry.FanReading {
	var fans []telemetry.FanReading
	for _, fan := range e.inventory.Fans {
		rpm, err := e.io.ReadRpm(fan)
		if err != nil {
			continue
		}
		fans = append(fans, telemetry.FanReading{Name: fan.String(), Rpm: rpm})
	}
	return fans
}

func tempReadings(inventory hwmon.Inventory, temps map[int]int) []telemetry.TempReading {
	var readings []telemetry.TempReading
	for i, sensor := range inventory.Temps {
		milliC, ok := temps[i]
		if !ok {
			continue
		}
		readings = append(readings, telemetry.TempReading{Name: sensor.String(), MilliC: milliC})
	}
	return readings
}

// resolvePwm maps a profile pwm reference to an inventory output:
// exact path match first, then exact label, then substring containment
// (first match wins, in inventory order). The substring form is kept
// for compatibility with profiles written against older daemons.
func resolvePwm(inventory hwmon.Inventory, ref string) (hwmon.PwmOutput, bool) {
	if len(ref) <= 0 {
		return hwmon.PwmOutput{}, false
	}

	for _, pwm := range inventory.Pwms {
		if pwm.PwmPath == ref {
			return pwm, true
		}
	}
	for _, pwm := range inventory.Pwms {
		if pwm.Label == ref {
			return pwm, true
		}
	}
	for _, pwm := range inventory.Pwms {
		if strings.Contains(pwm.PwmPath, ref) {
			return pwm, true
		}
	}
	return hwmon.PwmOutput{}, false
}

// resolveTempSensor maps a curve temperature reference to an inventory
// index, mirroring resolvePwm. Returns -1 when nothing matches; the
// evaluator then falls back to the hottest known reading.
func resolveTempSensor(inventory hwmon.Inventory, ref string) int {
	if len(ref) <= 0 {
		return -1
	}

	for i, sensor := range inventory.Temps {
		if sensor.InputPath == ref {
			return i
		}
	}
	for i, sensor := range inventory.Temps {
		if sensor.Label == ref {
			return i
		}
	}
	for i, sensor := range inventory.Temps {
		if strings.Contains(sensor.InputPath, ref) {
			return i
		}
	}
	return -1
}

// compileCurves builds the evaluator table for a profile. Mix curves
// are resolved recursively; references that are unknown or would form
// a cycle are skipped.
func compileCurves(p *profile.Profile, inventory hwmon.Inventory) map[string]evaluator {
	compiled := map[string]evaluator{}
	visiting := map[string]bool{}

	var compile func(name string) evaluator
	compile = func(name string) evaluator {
		if curve, ok := compiled[name]; ok {
			return curve
		}
		if visiting[name] {
			ui.Warning("Curve %s: reference cycle detected, skipping", name)
			return nil
		}

		spec := p.FindCurve(name)
		if spec == nil {
			return nil
		}

		visiting[name] = true
		defer delete(visiting, name)

		var curve evaluator
		switch spec.Type {
		case profile.KindMix:
			mix := &mixCurve{name: spec.Name, function: spec.Mix}
			for _, ref := range spec.CurveRefs {
				if child := compile(ref); child != nil {
					mix.curves = append(mix.curves, child)
				} else {
					ui.Warning("Curve %s: mix reference '%s' does not resolve, skipping", spec.Name, ref)
				}
			}
			curve = mix
		case profile.KindTrigger:
			curve = &triggerCurve{
				name:        spec.Name,
				sensorIndex: firstSensorIndex(inventory, spec.TempSensors),
				idleTempC:   spec.IdleTemperature,
				idleSpeed:   spec.IdleFanSpeed,
				loadTempC:   spec.LoadTemperature,
				loadSpeed:   spec.LoadFanSpeed,
			}
		default:
			curve = newGraphCurve(spec.Name, spec.Points, firstSensorIndex(inventory, spec.TempSensors))
		}

		compiled[name] = curve
		return curve
	}

	for i := range p.FanCurves {
		compile(p.FanCurves[i].Name)
	}
	return compiled
}

func firstSensorIndex(inventory hwmon.Inventory, refs []string) int {
	for _, ref := range refs {
		if index := resolveTempSensor(inventory, ref); index >= 0 {
			return index
		}
	}
	return -1
}
