// Package stats keeps a small persistent record of tool usage: how many
// times each command has run and when it last did. The record is stored
// as a YAML file and is purely informational, so every failure here is
// reported to the caller but never aborts a run.
package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Record holds the usage counters persisted between runs.
type Record struct {
	// Runs counts completed invocations per command name.
	Runs map[string]int `yaml:"runs"`

	// LastRun is the wall time of the most recent invocation, RFC 3339.
	LastRun string `yaml:"lastRun"`
}

// Load reads the record at path. A missing file yields an empty record.
func Load(path string) (*Record, error) {
	rec := &Record{Runs: make(map[string]int)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading stats file: %w", err)
	}

	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("error parsing stats file: %w", err)
	}
	if rec.Runs == nil {
		rec.Runs = make(map[string]int)
	}
	return rec, nil
}

// Save writes the record to path, creating parent directories as needed.
func (r *Record) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating stats directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("error marshaling stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing stats file: %w", err)
	}
	return nil
}

// Bump loads the record at path, increments the counter for command, and
// saves it back. It returns the updated count.
func Bump(path, command string) (int, error) {
	rec, err := Load(path)
	if err != nil {
		return 0, err
	}
	rec.Runs[command]++
	rec.LastRun = time.Now().Format(time.RFC3339)
	if err := rec.Save(path); err != nil {
		return 0, err
	}
	return rec.Runs[command], nil
}
