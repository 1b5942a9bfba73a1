// Package dataset reads the plain-text face dump: grayscale S×S matrices
// separated by '-', one row per line, cells comma separated.
package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// MaxPixel is the largest accepted cell value.
const MaxPixel = 255

// maxChunk bounds a single matrix chunk in bytes; a 512×512 face fits easily.
const maxChunk = 8 * 1024 * 1024

// SplitChunks is a bufio.SplitFunc that yields the raw text between '-'
// separators. Tokens are returned untrimmed and may be blank.
func SplitChunks(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '-'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Parse reads every sample from r. All samples must be square and share the
// same side; cells must be base-10 integers in [0, MaxPixel].
func Parse(r io.Reader) ([]types.Sample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxChunk)
	sc.Split(SplitChunks)

	var samples []types.Sample
	side := 0
	for sc.Scan() {
		chunk := strings.TrimSpace(sc.Text())
		if chunk == "" {
			continue
		}
		idx := len(samples)
		s, err := parseChunk(chunk)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", idx, err)
		}
		if len(s) != len(s[0]) {
			return nil, fmt.Errorf("sample %d: %d rows of %d cells is not square", idx, len(s), len(s[0]))
		}
		if side == 0 {
			side = len(s)
		} else if len(s) != side {
			return nil, fmt.Errorf("sample %d: side %d differs from first sample's %d", idx, len(s), side)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset contains no samples")
	}
	return samples, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string) ([]types.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseChunk(chunk string) (types.Sample, error) {
	lines := strings.Split(chunk, "\n")
	s := make(types.Sample, 0, len(lines))
	width := -1
	for row, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := strings.Split(line, ",")
		if width >= 0 && len(cells) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", row, len(cells), width)
		}
		width = len(cells)
		values := make([]int, len(cells))
		for col, cell := range cells {
			v, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", row, col, err)
			}
			if v < 0 || v > MaxPixel {
				return nil, fmt.Errorf("row %d col %d: value %d outside [0,%d]", row, col, v, MaxPixel)
			}
			values[col] = v
		}
		s = append(s, values)
	}
	return s, nil
}

// Flatten lays a sample out row-major as a float vector of length S².
func Flatten(s types.Sample) []float64 {
	if len(s) == 0 {
		return nil
	}
	out := make([]float64, 0, len(s)*len(s[0]))
	for _, row := range s {
		for _, v := range row {
			out = append(out, float64(v))
		}
	}
	return out
}

// SampleMatrix stacks flattened samples into the N×D matrix fed to the
// pipeline.
func SampleMatrix(samples []types.Sample) linalg.Matrix {
	m := make(linalg.Matrix, len(samples))
	for i, s := range samples {
		m[i] = Flatten(s)
	}
	return m
}
