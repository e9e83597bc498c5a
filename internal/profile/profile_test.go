package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlSpecEnabledDefaultsToTrue(t *testing.T) {
	// GIVEN
	data := []byte(`{"name": "cpu fan", "pwmPath": "/sys/class/hwmon/hwmon0/pwm1", "curveRef": "cpu"}`)

	// WHEN
	var control ControlSpec
	err := json.Unmarshal(data, &control)

	// THEN
	assert.NoError(t, err)
	assert.True(t, control.Enabled)
}

func TestControlSpecEnabledFalseIsKept(t *testing.T) {
	// GIVEN
	data := []byte(`{"name": "cpu fan", "pwmPath": "/sys/class/hwmon/hwmon0/pwm1", "curveRef": "cpu", "enabled": false}`)

	// WHEN
	var control ControlSpec
	err := json.Unmarshal(data, &control)

	// THEN
	assert.NoError(t, err)
	assert.False(t, control.Enabled)
}

func TestNormalizeFillsSchema(t *testing.T) {
	// GIVEN
	p := Profile{Name: "desk"}

	// WHEN
	p.Normalize()

	// THEN
	assert.Equal(t, Schema, p.Schema)
}

func TestNormalizeInfersMixFromRefs(t *testing.T) {
	// GIVEN: a typeless curve carrying two refs
	p := Profile{
		FanCurves: []FanCurveSpec{
			{Name: "case", CurveRefs: []string{"cpu", "board"}},
		},
	}

	// WHEN
	p.Normalize()

	// THEN
	curve := p.FindCurve("case")
	assert.Equal(t, KindMix, curve.Type)
	assert.Equal(t, MixMax, curve.Mix)
}

func TestNormalizeRelabelsGraphWithRefsAsMix(t *testing.T) {
	// GIVEN: a curve labelled graph but shaped like a mix
	p := Profile{
		FanCurves: []FanCurveSpec{
			{
				Name:      "case",
				Type:      KindGraph,
				CurveRefs: []string{"cpu", "board"},
			},
		},
	}

	// WHEN
	p.Normalize()

	// THEN
	curve := p.FindCurve("case")
	assert.Equal(t, KindMix, curve.Type)
	assert.Equal(t, []string{"cpu", "board"}, curve.CurveRefs)
}

func TestNormalizeRelabelsTriggerWithPointsAsGraph(t *testing.T) {
	// GIVEN: a curve labelled trigger but carrying graph points
	p := Profile{
		FanCurves: []FanCurveSpec{
			{
				Name:   "cpu",
				Type:   KindTrigger,
				Points: []CurvePoint{{TempC: 40, Percent: 30}, {TempC: 80, Percent: 100}},
			},
		},
	}

	// WHEN
	p.Normalize()

	// THEN
	curve := p.FindCurve("cpu")
	assert.Equal(t, KindGraph, curve.Type)
	assert.Len(t, curve.Points, 2)
}

func TestNormalizeStripsForeignFields(t *testing.T) {
	// GIVEN: a graph curve with leftover trigger thresholds
	p := Profile{
		FanCurves: []FanCurveSpec{
			{
				Name:            "cpu",
				Type:            KindGraph,
				Points:          []CurvePoint{{TempC: 40, Percent: 30}},
				IdleTemperature: 45,
				LoadTemperature: 75,
				CurveRefs:       []string{"board"},
			},
		},
	}

	// WHEN
	p.Normalize()

	// THEN
	curve := p.FindCurve("cpu")
	assert.Equal(t, KindGraph, curve.Type)
	assert.Zero(t, curve.IdleTemperature)
	assert.Zero(t, curve.LoadTemperature)
	assert.Nil(t, curve.CurveRefs)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	// GIVEN
	p := Profile{
		Name: "desk",
		FanCurves: []FanCurveSpec{
			{Name: "cpu", Type: KindGraph, Points: []CurvePoint{{TempC: 40, Percent: 30}}},
			{Name: "case", CurveRefs: []string{"cpu", "cpu"}},
		},
	}
	p.Normalize()
	first, err := json.Marshal(p)
	assert.NoError(t, err)

	// WHEN
	p.Normalize()
	second, err := json.Marshal(p)
	assert.NoError(t, err)

	// THEN
	assert.Equal(t, string(first), string(second))
}

func TestFindCurveUnknownName(t *testing.T) {
	// GIVEN
	p := Profile{
		FanCurves: []FanCurveSpec{{Name: "cpu", Type: KindGraph}},
	}

	// WHEN
	curve := p.FindCurve("gpu")

	// THEN
	assert.Nil(t, curve)
}
