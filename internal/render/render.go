// Package render turns display-range matrices into grayscale PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	"github.com/andresmejia3/eigenfaces/internal/types"
)

// DefaultSize is the default canvas edge in pixels.
const DefaultSize = 256

// Gray builds a one-pixel-per-cell grayscale image. Cells outside [0,255] are
// clamped.
func Gray(s types.Sample) (*image.Gray, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("render: empty matrix")
	}
	h, w := len(s), len(s[0])
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range s {
		if len(row) != w {
			return nil, fmt.Errorf("render: row %d has %d cells, want %d", y, len(row), w)
		}
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: clamp(v)})
		}
	}
	return img, nil
}

// Scale upscales img to a size×size canvas so every cell becomes a solid
// block, like the squares of the original canvas drawing.
func Scale(img image.Image, size int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// PNG encodes s as a size×size PNG. A size <= 0 keeps one pixel per cell.
func PNG(w io.Writer, s types.Sample, size int) error {
	img, err := Gray(s)
	if err != nil {
		return err
	}
	var out image.Image = img
	if size > 0 {
		out = Scale(img, size)
	}
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("render: encoding png: %w", err)
	}
	return nil
}

// WriteFile renders s to a PNG file at path.
func WriteFile(path string, s types.Sample, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PNG(f, s, size); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
