package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/linuxfancontrol/lfcd/internal/util"
)

var ErrNotFound = errors.New("profile not found")

// Load reads and normalizes a profile from the given file.
func Load(path string) (Profile, error) {
	var p Profile

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return p, err
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing %s: %w", path, err)
	}

	p.Normalize()
	return p, nil
}

// Save writes the profile to the given file atomically, creating the
// parent directory if needed.
func Save(p Profile, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	p.Schema = Schema
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return util.WriteTextToFileAtomic(string(data)+"\n", path)
}

// PathForName maps a profile name to its file inside the profiles dir.
func PathForName(dir string, name string) string {
	return filepath.Join(dir, name+".json")
}

// List returns the names of all profiles in the given directory.
func List(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
