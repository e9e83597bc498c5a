package profile

import (
	"encoding/json"
)

const (
	// Schema is written to every profile file so future format
	// revisions can be told apart on load.
	Schema = "lfc.profile/1"

	KindGraph   = "graph"
	KindMix     = "mix"
	KindTrigger = "trigger"

	MixMax = "max"
	MixMin = "min"
	MixAvg = "avg"
)

// CurvePoint maps a temperature to a fan duty percentage.
type CurvePoint struct {
	TempC   float64 `json:"tempC"`
	Percent int     `json:"percent"`
}

// FanCurveSpec is one named, declarative curve of a profile.
// Exactly one of the three kinds is meaningful:
//
//	graph   -> Points + TempSensors
//	trigger -> IdleTemperature/LoadTemperature/IdleFanSpeed/LoadFanSpeed + TempSensors
//	mix     -> Mix + CurveRefs
type FanCurveSpec struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	TempSensors []string     `json:"tempSensors,omitempty"`
	Points      []CurvePoint `json:"points,omitempty"`

	Mix       string   `json:"mix,omitempty"`
	CurveRefs []string `json:"curveRefs,omitempty"`

	IdleTemperature float64 `json:"IdleTemperature,omitempty"`
	LoadTemperature float64 `json:"LoadTemperature,omitempty"`
	IdleFanSpeed    int     `json:"IdleFanSpeed,omitempty"`
	LoadFanSpeed    int     `json:"LoadFanSpeed,omitempty"`
}

// ControlSpec binds one named curve to one physical pwm output.
type ControlSpec struct {
	Name       string `json:"name"`
	PwmPath    string `json:"pwmPath"`
	CurveRef   string `json:"curveRef"`
	NickName   string `json:"nickName,omitempty"`
	Enabled    bool   `json:"enabled"`
	MinPercent int    `json:"minPercent,omitempty"`
}

// UnmarshalJSON defaults Enabled to true when the field is absent, so
// profiles written by hand don't silently disable every control.
func (c *ControlSpec) UnmarshalJSON(data []byte) error {
	type plain ControlSpec
	tmp := plain{Enabled: true}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*c = ControlSpec(tmp)
	return nil
}

// HwmonRef records which chips a profile was created against, for
// display purposes only. It is never used for resolution.
type HwmonRef struct {
	Path   string `json:"hwmonPath"`
	Name   string `json:"name"`
	Vendor string `json:"vendor,omitempty"`
}

// Profile is the full declarative fan policy. The engine receives it
// by value and never mutates or persists it.
type Profile struct {
	Schema      string         `json:"schema"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	FanCurves   []FanCurveSpec `json:"fanCurves"`
	Controls    []ControlSpec  `json:"controls"`
	Hwmons      []HwmonRef     `json:"hwmons,omitempty"`
}

// FindCurve returns the curve with the given name, or nil.
func (p *Profile) FindCurve(name string) *FanCurveSpec {
	for i := range p.FanCurves {
		if p.FanCurves[i].Name == name {
			return &p.FanCurves[i]
		}
	}
	return nil
}

// Normalize reconciles curve specs whose type does not match their
// content, e.g. a "graph" without points but with two curve refs is
// relabelled as mix. Malformed files from other tools are common
// enough that dropping them outright would be hostile.
func (p *Profile) Normalize() {
	for i := range p.FanCurves {
		normalizeCurve(&p.FanCurves[i])
	}
	if len(p.Schema) <= 0 {
		p.Schema = Schema
	}
}

func normalizeCurve(c *FanCurveSpec) {
	hasPoints := len(c.Points) > 0
	hasMixRefs := len(c.CurveRefs) >= 2
	hasThresholds := c.IdleTemperature != 0 || c.LoadTemperature != 0

	// fix obviously mislabelled types before stripping fields
	switch {
	case len(c.Type) <= 0:
		if hasMixRefs {
			c.Type = KindMix
		} else if hasThresholds && !hasPoints {
			c.Type = KindTrigger
		} else {
			c.Type = KindGraph
		}
	case c.Type == KindGraph && !hasPoints && hasMixRefs:
		c.Type = KindMix
	case c.Type == KindTrigger && hasPoints && !hasThresholds:
		c.Type = KindGraph
	}

	switch c.Type {
	case KindMix:
		// sensors come from the referenced curves
		c.Points = nil
		c.TempSensors = nil
		c.IdleTemperature, c.LoadTemperature = 0, 0
		c.IdleFanSpeed, c.LoadFanSpeed = 0, 0
		if len(c.Mix) <= 0 {
			c.Mix = MixMax
		}
	case KindTrigger:
		c.Points = nil
		c.CurveRefs = nil
	case KindGraph:
		c.IdleTemperature, c.LoadTemperature = 0, 0
		c.IdleFanSpeed, c.LoadFanSpeed = 0, 0
		c.CurveRefs = nil
	}
}
