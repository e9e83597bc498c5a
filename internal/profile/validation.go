package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/linuxfancontrol/lfcd/internal/ui"
	"github.com/looplab/tarjan"
)

// Validate checks a profile for structural problems that would make it
// unusable: duplicate curve names, unknown or cyclic mix references,
// unsupported mix functions and degenerate triggers. A control whose
// pwm or curve reference does not resolve is NOT an error here; the
// engine drops those with a log when compiling bindings.
func Validate(p *Profile) error {
	seen := map[string]bool{}
	graph := make(map[interface{}][]interface{})

	for i := range p.FanCurves {
		curve := &p.FanCurves[i]

		if len(curve.Name) <= 0 {
			return fmt.Errorf("curve #%d: missing name", i)
		}
		if seen[curve.Name] {
			return fmt.Errorf("curve %s: duplicate name", curve.Name)
		}
		seen[curve.Name] = true

		switch curve.Type {
		case KindGraph:
			if err := validateGraph(curve); err != nil {
				return err
			}
		case KindMix:
			connections, err := validateMix(p, curve)
			if err != nil {
				return err
			}
			graph[curve.Name] = connections
		case KindTrigger:
			if err := validateTrigger(curve); err != nil {
				return err
			}
		default:
			return fmt.Errorf("curve %s: unsupported type '%s', use one of: %s",
				curve.Name, curve.Type, strings.Join([]string{KindGraph, KindMix, KindTrigger}, " | "))
		}

		if !curveInUse(p, curve.Name) {
			ui.Warning("Unused curve: %s", curve.Name)
		}
	}

	return validateNoLoops(graph)
}

func validateGraph(curve *FanCurveSpec) error {
	for i, point := range curve.Points {
		if point.Percent < 0 || point.Percent > 100 {
			return fmt.Errorf("curve %s: point #%d percent out of range [0,100]: %d",
				curve.Name, i, point.Percent)
		}
	}
	return nil
}

func validateMix(p *Profile, curve *FanCurveSpec) ([]interface{}, error) {
	supported := []string{MixMax, MixMin, MixAvg}
	if !slices.Contains(supported, curve.Mix) {
		return nil, fmt.Errorf("curve %s: unsupported mix function '%s', use one of: %s",
			curve.Name, curve.Mix, strings.Join(supported, " | "))
	}

	var connections []interface{}
	for _, ref := range curve.CurveRefs {
		if ref == curve.Name {
			return nil, fmt.Errorf("curve %s: a curve cannot reference itself", curve.Name)
		}
		if p.FindCurve(ref) == nil {
			return nil, fmt.Errorf("curve %s: no curve with name '%s' found", curve.Name, ref)
		}
		connections = append(connections, ref)
	}
	return connections, nil
}

func validateTrigger(curve *FanCurveSpec) error {
	if curve.LoadTemperature < curve.IdleTemperature {
		return fmt.Errorf("curve %s: load temperature %.1f below idle temperature %.1f",
			curve.Name, curve.LoadTemperature, curve.IdleTemperature)
	}
	for _, percent := range []int{curve.IdleFanSpeed, curve.LoadFanSpeed} {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("curve %s: fan speed out of range [0,100]: %d", curve.Name, percent)
		}
	}
	return nil
}

func validateNoLoops(graph map[interface{}][]interface{}) error {
	output := tarjan.Connections(graph)
	for _, items := range output {
		if len(items) > 1 {
			return fmt.Errorf("curve dependency cycle: %v", items)
		}
	}
	return nil
}

func curveInUse(p *Profile, name string) bool {
	for _, control := range p.Controls {
		if control.CurveRef == name {
			return true
		}
	}
	for _, curve := range p.FanCurves {
		if slices.Contains(curve.CurveRefs, name) {
			return true
		}
	}
	return false
}
