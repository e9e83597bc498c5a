package engine

import (
	"math"
	"sort"

	"github.com/linuxfancontrol/lfcd/internal/profile"
	"github.com/linuxfancontrol/lfcd/internal/util"
)

// Temperatures of the default ramp used when a graph curve has no
// points: 20% duty at or below 40°C, 100% at or above 80°C.
const (
	defaultRampLowC      = 40.0
	defaultRampLowSpeed  = 20
	defaultRampHighC     = 80.0
	defaultRampHighSpeed = 100
)

// tickEnv is the per-tick view of the world shared by all evaluators:
// every temperature that could be read this tick, keyed by inventory
// index, plus the maximum of them as the "run hot if unsure" fallback.
type tickEnv struct {
	tempC    map[int]float64
	maxTempC float64
}

// tempFor returns the temperature an evaluator keyed to the given
// sensor index should use. An unresolved (-1) or unreadable sensor
// falls back to the hottest currently-known reading.
func (env *tickEnv) tempFor(sensorIndex int) float64 {
	if sensorIndex >= 0 {
		if value, ok := env.tempC[sensorIndex]; ok {
			return value
		}
	}
	return env.maxTempC
}

// evaluator calculates the desired duty percentage for the current tick.
type evaluator interface {
	Name() string
	Evaluate(env *tickEnv) int
}

type graphCurve struct {
	name        string
	points      []profile.CurvePoint
	sensorIndex int
}

func newGraphCurve(name string, points []profile.CurvePoint, sensorIndex int) *graphCurve {
	sorted := make([]profile.CurvePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TempC < sorted[j].TempC
	})

	return &graphCurve{
		name:        name,
		points:      sorted,
		sensorIndex: sensorIndex,
	}
}

func (c *graphCurve) Name() string {
	return c.name
}

func (c *graphCurve) Evaluate(env *tickEnv) int {
	tempC := env.tempFor(c.sensorIndex)

	if len(c.points) <= 0 {
		return defaultRamp(tempC)
	}

	first := c.points[0]
	last := c.points[len(c.points)-1]

	if tempC <= first.TempC {
		return util.CoerceInt(first.Percent, 0, 100)
	}
	if tempC >= last.TempC {
		return util.CoerceInt(last.Percent, 0, 100)
	}

	for i := 1; i < len(c.points); i++ {
		if tempC > c.points[i].TempC {
			continue
		}
		previous := c.points[i-1]
		current := c.points[i]

		// duplicate temperatures would make the segment zero-width
		if current.TempC <= previous.TempC {
			return util.CoerceInt(current.Percent, 0, 100)
		}

		ratio := util.Ratio(tempC, previous.TempC, current.TempC)
		interpolated := float64(previous.Percent) + ratio*float64(current.Percent-previous.Percent)
		return util.CoerceInt(int(math.Round(interpolated)), 0, 100)
	}

	return util.CoerceInt(last.Percent, 0, 100)
}

// defaultRamp is the fallback for graph curves without points.
func defaultRamp(tempC float64) int {
	if tempC <= defaultRampLowC {
		return defaultRampLowSpeed
	}
	if tempC >= defaultRampHighC {
		return defaultRampHighSpeed
	}
	ratio := util.Ratio(tempC, defaultRampLowC, defaultRampHighC)
	return int(math.Round(defaultRampLowSpeed + ratio*(defaultRampHighSpeed-defaultRampLowSpeed)))
}

// PreviewCurve evaluates a single curve spec at the given temperature
// without an engine or live sensors. Mix curves cannot be previewed in
// isolation and report 0.
func PreviewCurve(spec profile.FanCurveSpec, tempC float64) int {
	env := &tickEnv{tempC: map[int]float64{0: tempC}, maxTempC: tempC}

	switch spec.Type {
	case profile.KindTrigger:
		curve := &triggerCurve{
			name:        spec.Name,
			sensorIndex: 0,
			idleTempC:   spec.IdleTemperature,
			idleSpeed:   spec.IdleFanSpeed,
			loadTempC:   spec.LoadTemperature,
			loadSpeed:   spec.LoadFanSpeed,
		}
		return curve.Evaluate(env)
	case profile.KindMix:
		return 0
	default:
		return newGraphCurve(spec.Name, spec.Points, 0).Evaluate(env)
	}
}

type mixCurve struct {
	name     string
	function string
	curves   []evaluator
}

func (c *mixCurve) Name() string {
	return c.name
}

// Evaluate aggregates the referenced curves, each evaluated against
// its own declared temperature source.
func (c *mixCurve) Evaluate(env *tickEnv) int {
	if len(c.curves) <= 0 {
		return 0
	}

	var values []int
	for _, curve := range c.curves {
		values = append(values, curve.Evaluate(env))
	}

	switch c.function {
	case profile.MixMin:
		min := values[0]
		for _, v := range values {
			if v < min {
				min = v
			}
		}
		return min
	case profile.MixAvg:
		total := 0
		for _, v := range values {
			total += v
		}
		return total / len(values)
	default:
		// max is the default: prefer the louder, safer answer
		max := values[0]
		for _, v := range values {
			if v > max {
				max = v
			}
		}
		return max
	}
}

type triggerCurve struct {
	name        string
	sensorIndex int
	idleTempC   float64
	idleSpeed   int
	loadTempC   float64
	loadSpeed   int
}

func (c *triggerCurve) Name() string {
	return c.name
}

// Evaluate maps the temperature linearly between the idle and load
// points and clamps to the nearer endpoint outside of them.
func (c *triggerCurve) Evaluate(env *tickEnv) int {
	tempC := env.tempFor(c.sensorIndex)

	if tempC <= c.idleTempC {
		return util.CoerceInt(c.idleSpeed, 0, 100)
	}
	if tempC >= c.loadTempC {
		return util.CoerceInt(c.loadSpeed, 0, 100)
	}

	ratio := util.Ratio(tempC, c.idleTempC, c.loadTempC)
	interpolated := float64(c.idleSpeed) + ratio*float64(c.loadSpeed-c.idleSpeed)
	return util.CoerceInt(int(math.Round(interpolated)), 0, 100)
}
