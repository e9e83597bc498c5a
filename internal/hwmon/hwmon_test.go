package hwmon

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentRawRoundTrip(t *testing.T) {
	// GIVEN
	maxRawValues := []int{255, 200, 100, 128}

	for _, maxRaw := range maxRawValues {
		for percent := 0; percent <= 100; percent++ {
			// WHEN
			raw := RawFromPercent(percent, maxRaw)
			result := PercentFromRaw(raw, maxRaw)

			// THEN
			assert.InDelta(t, percent, result, 1, "maxRaw %d, percent %d", maxRaw, percent)

			// AND stable under repeated application
			again := PercentFromRaw(RawFromPercent(result, maxRaw), maxRaw)
			assert.Equal(t, result, again, "maxRaw %d, percent %d", maxRaw, percent)
		}
	}
}

func TestPercentFromRawClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 0, PercentFromRaw(-5, 255))
	assert.Equal(t, 100, PercentFromRaw(300, 255))
	assert.Equal(t, 0, RawFromPercent(-1, 255))
	assert.Equal(t, 255, RawFromPercent(150, 255))
}

func TestPercentFromRawFallsBackToDefaultScale(t *testing.T) {
	// GIVEN an invalid max raw value
	maxRaw := 0

	// WHEN
	result := PercentFromRaw(255, maxRaw)

	// THEN the default 255 scale is assumed
	assert.Equal(t, 100, result)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func createFakeChip(t *testing.T, root string, name string) string {
	t.Helper()
	chipPath := filepath.Join(root, "hwmon0")
	assert.NoError(t, os.MkdirAll(chipPath, 0o755))
	writeFile(t, filepath.Join(chipPath, "name"), name+"\n")
	return chipPath
}

func TestScanGroupsNodesByChip(t *testing.T) {
	// GIVEN
	root := t.TempDir()
	chipPath := createFakeChip(t, root, "nct6798")
	writeFile(t, filepath.Join(chipPath, "temp1_input"), "42000\n")
	writeFile(t, filepath.Join(chipPath, "temp1_label"), "CPUTIN\n")
	writeFile(t, filepath.Join(chipPath, "temp2_input"), "38000\n")
	writeFile(t, filepath.Join(chipPath, "fan1_input"), "1200\n")
	writeFile(t, filepath.Join(chipPath, "pwm1"), "128\n")
	writeFile(t, filepath.Join(chipPath, "pwm1_enable"), "2\n")
	writeFile(t, filepath.Join(chipPath, "pwm2"), "255\n")

	// WHEN
	inventory := Scan(root)

	// THEN
	assert.Len(t, inventory.Chips, 1)
	assert.Equal(t, "nct6798", inventory.Chips[0].Name)

	assert.Len(t, inventory.Temps, 2)
	assert.Equal(t, "CPUTIN", inventory.Temps[0].Label)
	assert.Equal(t, "temp2", inventory.Temps[1].Label)

	assert.Len(t, inventory.Fans, 1)
	assert.Equal(t, 1, inventory.Fans[0].Index)

	assert.Len(t, inventory.Pwms, 2)
	assert.NotEmpty(t, inventory.Pwms[0].EnablePath)
	assert.Empty(t, inventory.Pwms[1].EnablePath)
	assert.Equal(t, DefaultMaxRaw, inventory.Pwms[0].MaxRaw)
}

func TestScanReadsPwmMax(t *testing.T) {
	// GIVEN
	root := t.TempDir()
	chipPath := createFakeChip(t, root, "amdgpu")
	writeFile(t, filepath.Join(chipPath, "pwm1"), "100\n")
	writeFile(t, filepath.Join(chipPath, "pwm1_max"), "200\n")

	// WHEN
	inventory := Scan(root)

	// THEN
	assert.Len(t, inventory.Pwms, 1)
	assert.Equal(t, 200, inventory.Pwms[0].MaxRaw)
}

func TestScanMissingRootYieldsEmptyInventory(t *testing.T) {
	// WHEN
	inventory := Scan("/does/not/exist")

	// THEN
	assert.Empty(t, inventory.Chips)
	assert.Empty(t, inventory.Pwms)
}

func TestSysfsIoReadFailureIsAnError(t *testing.T) {
	// GIVEN
	io := NewSysfsIo()
	sensor := TempSensor{InputPath: "/does/not/exist/temp1_input"}

	// WHEN
	_, err := io.ReadMilliC(sensor)

	// THEN
	assert.Error(t, err)
}

func TestSetPercentWritesConvertedRaw(t *testing.T) {
	// GIVEN
	root := t.TempDir()
	chipPath := createFakeChip(t, root, "nct6798")
	pwmPath := filepath.Join(chipPath, "pwm1")
	writeFile(t, pwmPath, "0\n")
	io := NewSysfsIo()
	pwm := PwmOutput{PwmPath: pwmPath, MaxRaw: 255}

	// WHEN
	ok := SetPercent(io, pwm, 50)

	// THEN
	assert.True(t, ok)
	raw, err := io.ReadRaw(pwm)
	assert.NoError(t, err)
	assert.Equal(t, RawFromPercent(50, 255), raw)
}

func TestSetManualWithoutEnableFileSucceeds(t *testing.T) {
	// GIVEN a controller that is always "on"
	pwm := PwmOutput{PwmPath: "/tmp/pwm1"}

	// WHEN
	ok := SetManual(NewSysfsIo(), pwm)

	// THEN
	assert.True(t, ok)
}

func TestRoundTripRandomized(t *testing.T) {
	// GIVEN
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		maxRaw := 50 + rng.Intn(500)
		percent := rng.Intn(101)

		// WHEN
		result := PercentFromRaw(RawFromPercent(percent, maxRaw), maxRaw)

		// THEN
		assert.InDelta(t, percent, result, 1)
	}
}
