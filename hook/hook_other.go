//go:build !windows

package hook

import (
	"runtime"

	"github.com/pkg/errors"
)

// Minimal implementation for platforms without low-level hooks so the
// project remains buildable on macOS/Linux; use Simulator there.

type nativeInstaller struct{}

// Native returns the platform installer. On this platform every install fails
// with ErrUnsupported.
func Native() Installer { return nativeInstaller{} }

func (nativeInstaller) Install(kind Kind, cb Callback) (Handle, error) {
	return nil, errors.Wrapf(ErrUnsupported, "%s hook on %s", kind, runtime.GOOS)
}
