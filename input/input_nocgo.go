//go:build !windows && !cgo

package input

import (
	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

// Pure-Go shim when building without cgo: robotgo is unavailable, so every
// call reports ErrUnsupported.

type unsupportedInjector struct{}

func newNative(display.Display) Injector { return unsupportedInjector{} }

func (unsupportedInjector) KeyDown(types.VirtualKey) error { return ErrUnsupported }
func (unsupportedInjector) KeyUp(types.VirtualKey) error   { return ErrUnsupported }
func (unsupportedInjector) MoveTo(int, int) error          { return ErrUnsupported }
func (unsupportedInjector) LeftClick() error               { return ErrUnsupported }
