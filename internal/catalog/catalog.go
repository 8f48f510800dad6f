// Package catalog reads and writes the JSON files that connect the pipeline
// stages: the projected stage tracks, the stop-area catalogue and the Path
// catalogue.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"trailhead-planner/internal/hiking"
)

// LoadStages reads a {"<label>": [[x, y], ...]} document.
func LoadStages(path string) (hiking.Stages, error) {
	var s hiking.Stages
	if err := readJSON(path, &s); err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	return s, nil
}

func SaveStages(path string, s hiking.Stages) error {
	return writeJSON(path, s)
}

// LoadStopAreas reads stop areas keyed by id: {"<id>": {"id":..,"name":..,"x":..,"y":..}}.
func LoadStopAreas(path string) (map[int]hiking.StopArea, error) {
	var m map[int]hiking.StopArea
	if err := readJSON(path, &m); err != nil {
		return nil, fmt.Errorf("load stop areas: %w", err)
	}
	for id, sa := range m {
		if sa.ID != id {
			return nil, fmt.Errorf("load stop areas: key %d holds stop area %d", id, sa.ID)
		}
	}
	return m, nil
}

func SaveStopAreas(path string, m map[int]hiking.StopArea) error {
	return writeJSON(path, m)
}

func LoadPaths(path string) ([]hiking.Path, error) {
	var p []hiking.Path
	if err := readJSON(path, &p); err != nil {
		return nil, fmt.Errorf("load paths: %w", err)
	}
	return p, nil
}

func SavePaths(path string, p []hiking.Path) error {
	if p == nil {
		p = []hiking.Path{}
	}
	return writeJSON(path, p)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path atomically so a reader never sees a partial catalogue.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
