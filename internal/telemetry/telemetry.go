// Package telemetry carries the engine's per-tick output to whoever
// wants to watch it: a JSON-lines stream for live consumers and an
// optional sqlite history for charting.
package telemetry

import (
	"time"
)

// TempReading is one successfully read temperature sensor.
type TempReading struct {
	Name   string `json:"name"`
	MilliC int    `json:"milliC"`
}

// FanReading is one successfully read fan tachometer.
type FanReading struct {
	Name string `json:"name"`
	Rpm  int    `json:"rpm"`
}

// ControlOutput reports what the engine wrote to one pwm this tick.
// Percent is nil when nothing was written (control disabled, gating
// skipped the tick, or the pwm was leased by detection).
type ControlOutput struct {
	Pwm     string `json:"pwm"`
	Percent *int   `json:"percent"`
}

// Record is one telemetry line. Skipped ticks publish a reduced record
// carrying temperatures only.
type Record struct {
	Time     time.Time       `json:"time"`
	Applied  bool            `json:"applied"`
	Temps    []TempReading   `json:"temps"`
	Fans     []FanReading    `json:"fans,omitempty"`
	Controls []ControlOutput `json:"controls,omitempty"`
}

// Publisher receives one record per engine tick. Implementations must
// be cheap and non-blocking; delivery is best-effort.
type Publisher interface {
	Publish(record Record)
}

// MultiPublisher fans one record out to several sinks.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(record Record) {
	for _, publisher := range m {
		publisher.Publish(record)
	}
}

// Discard drops all records. Useful default when no sink is configured.
type Discard struct{}

func (Discard) Publish(Record) {}
