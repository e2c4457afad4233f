//go:build !windows && cgo

package input

import (
	"github.com/go-vgo/robotgo"
	"github.com/pkg/errors"

	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

// robotgoInjector drives X11/Quartz through robotgo. robotgo works in pixels,
// so normalized coordinates are mapped back onto the playback display.
type robotgoInjector struct {
	display display.Display
}

func newNative(disp display.Display) Injector { return robotgoInjector{display: disp} }

func (robotgoInjector) KeyDown(vk types.VirtualKey) error { return toggle(vk, "down") }

func (robotgoInjector) KeyUp(vk types.VirtualKey) error { return toggle(vk, "up") }

func (r robotgoInjector) MoveTo(nx, ny int) error {
	x, y, err := pixelTarget(r.display, nx, ny)
	if err != nil {
		return errors.Wrapf(ErrInjection, "move: %v", err)
	}
	robotgo.Move(x, y)
	return nil
}

func (robotgoInjector) LeftClick() error {
	robotgo.Click("left")
	return nil
}

func toggle(vk types.VirtualKey, dir string) error {
	name, ok := KeyName(vk)
	if !ok {
		return errors.Wrapf(ErrUnmappedKey, "0x%02X", uint16(vk))
	}
	if err := robotgo.KeyToggle(name, dir); err != nil {
		return errors.Wrapf(ErrInjection, "key %s %s: %v", name, dir, err)
	}
	return nil
}
