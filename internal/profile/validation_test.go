package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTestProfile() Profile {
	p := Profile{
		Name: "desk",
		FanCurves: []FanCurveSpec{
			{
				Name:        "cpu",
				Type:        KindGraph,
				TempSensors: []string{"coretemp/temp1"},
				Points: []CurvePoint{
					{TempC: 40, Percent: 30},
					{TempC: 80, Percent: 100},
				},
			},
			{
				Name:            "board",
				Type:            KindTrigger,
				TempSensors:     []string{"acpitz/temp1"},
				IdleTemperature: 45,
				LoadTemperature: 70,
				IdleFanSpeed:    20,
				LoadFanSpeed:    80,
			},
			{
				Name:      "case",
				Type:      KindMix,
				Mix:       MixMax,
				CurveRefs: []string{"cpu", "board"},
			},
		},
		Controls: []ControlSpec{
			{Name: "cpu fan", PwmPath: "pwm1", CurveRef: "cpu", Enabled: true},
			{Name: "case fan", PwmPath: "pwm2", CurveRef: "case", Enabled: true},
		},
	}
	return p
}

func TestValidateAcceptsWellFormedProfile(t *testing.T) {
	// GIVEN
	p := validTestProfile()

	// WHEN
	err := Validate(&p)

	// THEN
	assert.NoError(t, err)
}

func TestValidateRejectsMissingCurveName(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[0].Name = ""

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestValidateRejectsDuplicateCurveNames(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[1].Name = "cpu"

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestValidateRejectsUnsupportedCurveType(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[0].Type = "spline"

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestValidateRejectsGraphPercentOutOfRange(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[0].Points[1].Percent = 140

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestValidateRejectsUnsupportedMixFunction(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[2].Mix = "median"

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported mix function")
}

func TestValidateRejectsSelfReferencingMix(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[2].CurveRefs = []string{"case", "cpu"}

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reference itself")
}

func TestValidateRejectsUnknownMixReference(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[2].CurveRefs = []string{"cpu", "gpu"}

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no curve with name 'gpu'")
}

func TestValidateRejectsMixCycle(t *testing.T) {
	// GIVEN: two mixes referencing each other
	p := Profile{
		Name: "loop",
		FanCurves: []FanCurveSpec{
			{Name: "a", Type: KindMix, Mix: MixMax, CurveRefs: []string{"b"}},
			{Name: "b", Type: KindMix, Mix: MixMax, CurveRefs: []string{"a"}},
		},
		Controls: []ControlSpec{
			{Name: "fan", PwmPath: "pwm1", CurveRef: "a", Enabled: true},
		},
	}

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateRejectsTriggerWithLoadBelowIdle(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[1].IdleTemperature = 80
	p.FanCurves[1].LoadTemperature = 60

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below idle temperature")
}

func TestValidateRejectsTriggerSpeedOutOfRange(t *testing.T) {
	// GIVEN
	p := validTestProfile()
	p.FanCurves[1].LoadFanSpeed = 101

	// WHEN
	err := Validate(&p)

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestValidateAllowsDanglingControlReference(t *testing.T) {
	// GIVEN: the engine drops unresolved controls itself
	p := validTestProfile()
	p.Controls[0].CurveRef = "ghost"

	// WHEN
	err := Validate(&p)

	// THEN
	assert.NoError(t, err)
}
