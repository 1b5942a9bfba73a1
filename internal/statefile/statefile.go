// Package statefile persists a pipeline run as the two JSON documents the
// render step reads back: pca.json (mean state) and eigen.json (eigenpairs).
package statefile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/andresmejia3/eigenfaces/internal/pca"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// File names inside a state directory.
const (
	MeanFile  = "pca.json"
	EigenFile = "eigen.json"
)

// Save writes both documents for run into dir, creating it if needed.
func Save(dir string, run *pca.Run) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, MeanFile), run.State()); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, EigenFile), run.EigenResult())
}

// Load reads the documents from dir without rebuilding a Run.
func Load(dir string) (types.MeanState, types.EigenResult, error) {
	var state types.MeanState
	var eigen types.EigenResult
	if err := readJSON(filepath.Join(dir, MeanFile), &state); err != nil {
		return state, eigen, err
	}
	if err := readJSON(filepath.Join(dir, EigenFile), &eigen); err != nil {
		return state, eigen, err
	}
	return state, eigen, nil
}

// Restore loads dir and rebuilds the Run it describes.
func Restore(dir string, logger *zerolog.Logger) (*pca.Run, error) {
	state, eigen, err := Load(dir)
	if err != nil {
		return nil, err
	}
	run, err := pca.Restore(state, eigen, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return run, nil
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}
