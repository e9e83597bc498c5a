package lease

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireIsExclusive(t *testing.T) {
	// GIVEN
	registry := NewRegistry()

	// WHEN
	first := registry.Acquire("/sys/class/hwmon/hwmon0/pwm1", "detection")
	second := registry.Acquire("/sys/class/hwmon/hwmon0/pwm1", "engine")

	// THEN
	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, registry.Held("/sys/class/hwmon/hwmon0/pwm1"))
}

func TestAcquireIsReentrantForSameOwner(t *testing.T) {
	// GIVEN
	registry := NewRegistry()
	registry.Acquire("pwm1", "detection")

	// WHEN
	again := registry.Acquire("pwm1", "detection")

	// THEN
	assert.True(t, again)
}

func TestReleaseIgnoresForeignOwner(t *testing.T) {
	// GIVEN
	registry := NewRegistry()
	registry.Acquire("pwm1", "detection")

	// WHEN
	registry.Release("pwm1", "engine")

	// THEN
	assert.True(t, registry.Held("pwm1"))

	// WHEN
	registry.Release("pwm1", "detection")

	// THEN
	assert.False(t, registry.Held("pwm1"))
}

func TestReleaseAll(t *testing.T) {
	// GIVEN
	registry := NewRegistry()
	registry.Acquire("pwm1", "detection")
	registry.Acquire("pwm2", "detection")
	registry.Acquire("pwm3", "engine")

	// WHEN
	registry.ReleaseAll("detection")

	// THEN
	assert.False(t, registry.Held("pwm1"))
	assert.False(t, registry.Held("pwm2"))
	assert.True(t, registry.Held("pwm3"))
}

func TestHeldBy(t *testing.T) {
	// GIVEN
	registry := NewRegistry()
	registry.Acquire("pwm1", "detection")

	// THEN
	assert.True(t, registry.HeldBy("pwm1", "engine"))
	assert.False(t, registry.HeldBy("pwm1", "detection"))
	assert.False(t, registry.HeldBy("pwm2", "engine"))
}
