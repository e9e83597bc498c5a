package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/linuxfancontrol/lfcd/internal/ui"
	"github.com/linuxfancontrol/lfcd/internal/util"
)

// FileSink publishes each record as one JSON line appended to a stream
// file, and additionally keeps a "latest" snapshot file that is
// replaced atomically, so readers polling it never see a torn write.
// Either path may be empty to disable that half.
type FileSink struct {
	streamPath string
	latestPath string

	mu     sync.Mutex
	stream *os.File
}

func NewFileSink(streamPath string, latestPath string) *FileSink {
	return &FileSink{
		streamPath: streamPath,
		latestPath: latestPath,
	}
}

func (s *FileSink) Publish(record Record) {
	data, err := json.Marshal(record)
	if err != nil {
		ui.Warning("Unable to serialize telemetry record: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.streamPath) > 0 {
		if err := s.appendLine(data); err != nil {
			ui.Warning("Unable to append telemetry to %s: %v", s.streamPath, err)
		}
	}

	if len(s.latestPath) > 0 {
		if err := util.WriteTextToFileAtomic(string(data)+"\n", s.latestPath); err != nil {
			ui.Warning("Unable to write telemetry snapshot to %s: %v", s.latestPath, err)
		}
	}
}

func (s *FileSink) appendLine(data []byte) error {
	if s.stream == nil {
		if err := os.MkdirAll(filepath.Dir(s.streamPath), 0o755); err != nil {
			return err
		}
		file, err := os.OpenFile(s.streamPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		s.stream = file
	}

	_, err := s.stream.Write(append(data, '\n'))
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}
