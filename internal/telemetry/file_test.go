package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testRecord(applied bool, milliC int) Record {
	percent := 47
	return Record{
		Time:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Applied: applied,
		Temps: []TempReading{
			{Name: "coretemp/temp1", MilliC: milliC},
		},
		Fans: []FanReading{
			{Name: "nct6775/fan1", Rpm: 1200},
		},
		Controls: []ControlOutput{
			{Pwm: "nct6775/pwm1", Percent: &percent},
		},
	}
}

func TestFileSinkAppendsOneLinePerRecord(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	streamPath := filepath.Join(dir, "telemetry.jsonl")
	sink := NewFileSink(streamPath, "")
	defer sink.Close()

	// WHEN
	sink.Publish(testRecord(true, 50000))
	sink.Publish(testRecord(false, 50400))

	// THEN
	file, err := os.Open(streamPath)
	assert.NoError(t, err)
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record Record
		assert.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	assert.Len(t, records, 2)
	assert.True(t, records[0].Applied)
	assert.False(t, records[1].Applied)
}

func TestFileSinkLatestSnapshotHoldsNewestRecord(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	latestPath := filepath.Join(dir, "latest.json")
	sink := NewFileSink("", latestPath)
	defer sink.Close()

	// WHEN
	sink.Publish(testRecord(true, 50000))
	sink.Publish(testRecord(true, 62000))

	// THEN
	data, err := os.ReadFile(latestPath)
	assert.NoError(t, err)

	var record Record
	assert.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, 62000, record.Temps[0].MilliC)
}

func TestFileSinkCreatesStreamDirectory(t *testing.T) {
	// GIVEN
	streamPath := filepath.Join(t.TempDir(), "var", "log", "telemetry.jsonl")
	sink := NewFileSink(streamPath, "")
	defer sink.Close()

	// WHEN
	sink.Publish(testRecord(true, 50000))

	// THEN
	_, err := os.Stat(streamPath)
	assert.NoError(t, err)
}

func TestMultiPublisherFansOut(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	first := NewFileSink(filepath.Join(dir, "a.jsonl"), "")
	second := NewFileSink(filepath.Join(dir, "b.jsonl"), "")
	defer first.Close()
	defer second.Close()
	multi := MultiPublisher{first, second}

	// WHEN
	multi.Publish(testRecord(true, 50000))

	// THEN
	for _, name := range []string{"a.jsonl", "b.jsonl"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		assert.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}
