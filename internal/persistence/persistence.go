package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/linuxfancontrol/lfcd/internal/detection"
	"github.com/linuxfancontrol/lfcd/internal/ui"
)

const (
	BucketDetectionResults = "detectionResults"
	BucketPwmEnable        = "pwmEnable"
)

// Persistence stores state that must survive daemon restarts: the last
// detection sweep and the pwm enable values found at startup, so an
// unclean shutdown can still be rolled back on the next run.
type Persistence interface {
	Init() error

	SaveDetectionResults(results []detection.Result) error
	LoadDetectionResults() ([]detection.Result, error)
	DeleteDetectionResults() error

	SavePwmEnableSnapshot(snapshot map[string]int) error
	LoadPwmEnableSnapshot() (map[string]int, error)
	DeletePwmEnableSnapshot() error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	return &persistence{
		dbPath: dbPath,
	}
}

func (p persistence) Init() (err error) {
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) SaveDetectionResults(results []detection.Result) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket([]byte(BucketDetectionResults))
		b, err := tx.CreateBucketIfNotExists([]byte(BucketDetectionResults))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		for _, result := range results {
			data, err := json.Marshal(result)
			if err != nil {
				return err
			}
			if err = b.Put([]byte(result.Pwm), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p persistence) LoadDetectionResults() ([]detection.Result, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var results []detection.Result
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketDetectionResults))
		if b == nil {
			return os.ErrNotExist
		}
		return b.ForEach(func(k, v []byte) error {
			var result detection.Result
			if err := json.Unmarshal(v, &result); err != nil {
				return err
			}
			results = append(results, result)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p persistence) DeleteDetectionResults() (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(BucketDetectionResults))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (p persistence) SavePwmEnableSnapshot(snapshot map[string]int) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketPwmEnable))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		for pwmPath, enable := range snapshot {
			data, err := json.Marshal(enable)
			if err != nil {
				return err
			}
			if err = b.Put([]byte(pwmPath), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p persistence) LoadPwmEnableSnapshot() (map[string]int, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	snapshot := map[string]int{}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketPwmEnable))
		if b == nil {
			return os.ErrNotExist
		}
		return b.ForEach(func(k, v []byte) error {
			var enable int
			if err := json.Unmarshal(v, &enable); err != nil {
				return err
			}
			snapshot[string(k)] = enable
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (p persistence) DeletePwmEnableSnapshot() (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(BucketPwmEnable))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}
