package configuration

import "time"

type TelemetryConfig struct {
	// Append-only JSON-lines stream of telemetry records. Empty
	// disables the stream.
	StreamPath string `json:"streamPath"`
	// Atomically replaced snapshot of the latest record. Empty
	// disables the snapshot.
	LatestPath string `json:"latestPath"`
	// Sqlite database with one row per tick. Empty disables history.
	HistoryPath string `json:"historyPath"`
	// Rows older than this are pruned from the history database.
	Retention time.Duration `json:"retention"`
}
