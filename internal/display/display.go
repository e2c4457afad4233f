// Package display reports the primary display size and rescales screen
// coordinates into the injection API's normalized space.
package display

import (
	"math"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"
)

// NormalizedMax is the largest coordinate of the normalized space.
const NormalizedMax = 65535

// ErrNoDisplay is returned when no usable display size is known.
var ErrNoDisplay = errors.New("no active display")

// Display reports a display's pixel dimensions.
type Display interface {
	Size() (width, height int, err error)
}

// Screen is the display at Index as reported by the OS.
type Screen struct {
	Index int
}

// Primary returns the display at index, falling back to display 0 when the
// index is out of range at query time.
func Primary(index int) Screen {
	return Screen{Index: index}
}

// Size implements Display.
func (s Screen) Size() (int, int, error) {
	num := screenshot.NumActiveDisplays()
	if num <= 0 {
		return 0, 0, ErrNoDisplay
	}
	d := s.Index
	if d < 0 || d >= num {
		d = 0
	}
	bounds := screenshot.GetDisplayBounds(d)
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, 0, errors.Wrapf(ErrNoDisplay, "display %d has empty bounds", d)
	}
	return bounds.Dx(), bounds.Dy(), nil
}

// Fixed is a display of constant size.
type Fixed struct {
	Width  int
	Height int
}

// Size implements Display.
func (f Fixed) Size() (int, int, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return 0, 0, ErrNoDisplay
	}
	return f.Width, f.Height, nil
}

// Normalize maps (x, y) on a width x height display to
// round(65535*x/width), round(65535*y/height), clamped to [0, 65535].
func Normalize(x, y, width, height int) (nx, ny int, err error) {
	if width <= 0 || height <= 0 {
		return 0, 0, errors.Wrapf(ErrNoDisplay, "invalid size %dx%d", width, height)
	}
	return scale(x, width), scale(y, height), nil
}

// Denormalize is the inverse of Normalize, rounded to the nearest pixel.
func Denormalize(nx, ny, width, height int) (x, y int) {
	return unscale(nx, width), unscale(ny, height)
}

func scale(v, extent int) int {
	n := int(math.Round(NormalizedMax * float64(v) / float64(extent)))
	return clamp(n, 0, NormalizedMax)
}

func unscale(n, extent int) int {
	if extent <= 0 {
		return 0
	}
	v := int(math.Round(float64(n) * float64(extent) / NormalizedMax))
	return clamp(v, 0, extent)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
