package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

func ReadIntFromFile(path string) (value int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	text := strings.TrimSpace(string(data))
	if len(text) <= 0 {
		return -1, fmt.Errorf("file is empty: %s", path)
	}
	return strconv.Atoi(text)
}

// ReadTextFromFile reads the first line of a file, trimmed of whitespace.
func ReadTextFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteIntToFile writes a single integer to a file path
func WriteIntToFile(value int, path string) error {
	evaluatedPath, err := filepath.EvalSymlinks(path)
	if len(evaluatedPath) > 0 && err == nil {
		path = evaluatedPath
	}
	return os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644)
}

// WriteTextToFileAtomic writes text to the given path using a temp
// file and rename, so readers never observe a partial write.
func WriteTextToFileAtomic(text string, path string) error {
	return atomic.WriteFile(path, strings.NewReader(text))
}

// FindFilesMatching finds all files in a given directory matching the given regex
func FindFilesMatching(path string, expr *regexp.Regexp) []string {
	var result []string
	entries, err := os.ReadDir(path)
	if err != nil {
		return result
	}

	for _, entry := range entries {
		if !expr.MatchString(entry.Name()) {
			continue
		}

		devicePath := filepath.Join(path, entry.Name())
		devicePath, err = filepath.EvalSymlinks(devicePath)
		if err != nil {
			continue
		}

		result = append(result, devicePath)
	}

	return result
}

func FindHwmonDevicePaths(basePath string) []string {
	if _, err := os.Stat(basePath); err != nil {
		return []string{}
	}
	regex := regexp.MustCompile("hwmon.*")
	return FindFilesMatching(basePath, regex)
}
