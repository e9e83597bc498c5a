package telemetry

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/linuxfancontrol/lfcd/internal/ui"

	_ "github.com/mattn/go-sqlite3"
)

// History stores telemetry records in a sqlite database so charting
// frontends can query past fan behavior. It is itself a Publisher.
type History struct {
	db *sql.DB
	mu sync.Mutex
}

func NewHistory(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS telemetry (
            timestamp INTEGER PRIMARY KEY,
            applied INTEGER,
            payload TEXT
        )
    `)
	return err
}

func (h *History) Publish(record Record) {
	payload, err := json.Marshal(record)
	if err != nil {
		ui.Warning("Unable to serialize telemetry record: %v", err)
		return
	}

	applied := 0
	if record.Applied {
		applied = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err = h.db.Exec(`
        INSERT INTO telemetry (timestamp, applied, payload)
        VALUES (?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            applied = excluded.applied,
            payload = excluded.payload
    `, record.Time.UnixMilli(), applied, string(payload))
	if err != nil {
		ui.Warning("Unable to store telemetry record: %v", err)
	}
}

// Latest returns the most recent record, or false if the database is empty.
func (h *History) Latest() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var payload string
	err := h.db.QueryRow(`SELECT payload FROM telemetry ORDER BY timestamp DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return Record{}, false
	}
	return record, true
}

// Prune deletes records older than the given retention period.
func (h *History) Prune(retention time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-retention).UnixMilli()
	_, err := h.db.Exec(`DELETE FROM telemetry WHERE timestamp < ?`, cutoff)
	return err
}

func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}
