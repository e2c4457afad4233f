// Package input synthesizes keyboard and mouse input. Each platform
// implements the native injector in separate files guarded by build tags.
package input

import (
	"github.com/pkg/errors"

	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

// Injector is the OS input-injection facility. Coordinates passed to MoveTo
// are in the normalized 0-65535 space of the playback display.
type Injector interface {
	KeyDown(vk types.VirtualKey) error
	KeyUp(vk types.VirtualKey) error
	MoveTo(nx, ny int) error
	LeftClick() error
}

var (
	// ErrInjection is returned when the OS refused synthetic input.
	ErrInjection = errors.New("input injection refused")
	// ErrUnsupported is returned by the native injector on platforms without one.
	ErrUnsupported = errors.New("input injection is not supported on this platform")
	// ErrUnmappedKey is returned when a virtual key has no backend name.
	ErrUnmappedKey = errors.New("no mapping for virtual key")
)

// Native returns the injector for the running platform. Backends that move
// the cursor in pixels map normalized coordinates back onto disp, the same
// display playback normalized against.
func Native(disp display.Display) Injector { return newNative(disp) }

// pixelTarget maps a normalized point onto disp.
func pixelTarget(disp display.Display, nx, ny int) (x, y int, err error) {
	w, h, err := disp.Size()
	if err != nil {
		return 0, 0, errors.Wrap(err, "display size")
	}
	x, y = display.Denormalize(nx, ny, w, h)
	return x, y, nil
}
