package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfancontrol/lfcd/internal/profile"
)

func envWith(temps map[int]float64) *tickEnv {
	env := &tickEnv{tempC: temps}
	for _, t := range temps {
		if t > env.maxTempC {
			env.maxTempC = t
		}
	}
	return env
}

func TestGraphCurveInterpolation(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", []profile.CurvePoint{
		{TempC: 30, Percent: 20},
		{TempC: 60, Percent: 60},
		{TempC: 90, Percent: 100},
	}, 0)

	// WHEN
	result := curve.Evaluate(envWith(map[int]float64{0: 50}))

	// THEN
	assert.Equal(t, 47, result)
}

func TestGraphCurveClampsBelowFirstPoint(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", []profile.CurvePoint{
		{TempC: 30, Percent: 20},
		{TempC: 60, Percent: 60},
	}, 0)

	// WHEN
	result := curve.Evaluate(envWith(map[int]float64{0: 10}))

	// THEN
	assert.Equal(t, 20, result)
}

func TestGraphCurveClampsAboveLastPoint(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", []profile.CurvePoint{
		{TempC: 30, Percent: 20},
		{TempC: 60, Percent: 60},
	}, 0)

	// WHEN
	result := curve.Evaluate(envWith(map[int]float64{0: 95}))

	// THEN
	assert.Equal(t, 60, result)
}

func TestGraphCurveSortsUnorderedPoints(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", []profile.CurvePoint{
		{TempC: 90, Percent: 100},
		{TempC: 30, Percent: 20},
		{TempC: 60, Percent: 60},
	}, 0)

	// WHEN
	result := curve.Evaluate(envWith(map[int]float64{0: 60}))

	// THEN
	assert.Equal(t, 60, result)
}

func TestGraphCurveEmptyUsesDefaultRamp(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", nil, 0)

	// WHEN
	cold := curve.Evaluate(envWith(map[int]float64{0: 30}))
	mid := curve.Evaluate(envWith(map[int]float64{0: 60}))
	hot := curve.Evaluate(envWith(map[int]float64{0: 85}))

	// THEN
	assert.Equal(t, 20, cold)
	assert.Equal(t, 60, mid)
	assert.Equal(t, 100, hot)
}

func TestGraphCurveUnresolvedSensorFallsBackToHottest(t *testing.T) {
	// GIVEN
	curve := newGraphCurve("cpu", []profile.CurvePoint{
		{TempC: 0, Percent: 0},
		{TempC: 100, Percent: 100},
	}, -1)

	// WHEN
	result := curve.Evaluate(envWith(map[int]float64{0: 40, 1: 75}))

	// THEN
	assert.Equal(t, 75, result)
}

func TestGraphCurveMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 100; run++ {
		// GIVEN a random curve with non-decreasing percents
		count := 2 + rng.Intn(6)
		temps := make([]float64, count)
		for i := range temps {
			temps[i] = float64(rng.Intn(1000)) / 10.0
		}
		sort.Float64s(temps)

		points := make([]profile.CurvePoint, count)
		percent := rng.Intn(20)
		for i := range points {
			points[i] = profile.CurvePoint{TempC: temps[i], Percent: percent}
			percent += rng.Intn(15)
			if percent > 100 {
				percent = 100
			}
		}
		curve := newGraphCurve("random", points, 0)

		// WHEN evaluating at increasing temperatures
		previous := -1
		for tempC := -10.0; tempC <= 110.0; tempC += 0.7 {
			result := curve.Evaluate(envWith(map[int]float64{0: tempC}))

			// THEN the output never decreases
			assert.GreaterOrEqual(t, result, previous)
			assert.LessOrEqual(t, result, 100)
			previous = result
		}
	}
}

func TestMixCurveDefaultsToMax(t *testing.T) {
	// GIVEN two curves keyed to different sensors
	a := newGraphCurve("a", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 0)
	b := newGraphCurve("b", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 1)
	mix := &mixCurve{name: "case", curves: []evaluator{a, b}}

	// WHEN each child sees its own sensor
	result := mix.Evaluate(envWith(map[int]float64{0: 40, 1: 75}))

	// THEN the hotter one wins
	assert.Equal(t, 75, result)
}

func TestMixCurveMin(t *testing.T) {
	// GIVEN
	a := newGraphCurve("a", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 0)
	b := newGraphCurve("b", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 1)
	mix := &mixCurve{name: "quiet", function: profile.MixMin, curves: []evaluator{a, b}}

	// WHEN
	result := mix.Evaluate(envWith(map[int]float64{0: 40, 1: 75}))

	// THEN
	assert.Equal(t, 40, result)
}

func TestMixCurveAvgTruncates(t *testing.T) {
	// GIVEN children that evaluate to 40 and 75
	a := newGraphCurve("a", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 0)
	b := newGraphCurve("b", []profile.CurvePoint{{TempC: 0, Percent: 0}, {TempC: 100, Percent: 100}}, 1)
	mix := &mixCurve{name: "blend", function: profile.MixAvg, curves: []evaluator{a, b}}

	// WHEN
	result := mix.Evaluate(envWith(map[int]float64{0: 40, 1: 75}))

	// THEN 57.5 truncates to 57
	assert.Equal(t, 57, result)
}

func TestMixCurveWithoutChildrenIsZero(t *testing.T) {
	// GIVEN
	mix := &mixCurve{name: "empty"}

	// WHEN
	result := mix.Evaluate(envWith(map[int]float64{0: 90}))

	// THEN
	assert.Equal(t, 0, result)
}

func TestTriggerCurve(t *testing.T) {
	// GIVEN
	curve := &triggerCurve{
		name:        "case",
		sensorIndex: 0,
		idleTempC:   40,
		idleSpeed:   25,
		loadTempC:   70,
		loadSpeed:   85,
	}

	// WHEN / THEN
	assert.Equal(t, 25, curve.Evaluate(envWith(map[int]float64{0: 20})))
	assert.Equal(t, 25, curve.Evaluate(envWith(map[int]float64{0: 40})))
	assert.Equal(t, 55, curve.Evaluate(envWith(map[int]float64{0: 55})))
	assert.Equal(t, 85, curve.Evaluate(envWith(map[int]float64{0: 70})))
	assert.Equal(t, 85, curve.Evaluate(envWith(map[int]float64{0: 99})))
}
