// Package listener turns low-level hook notifications into event log records
// while a recording is active.
package listener

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"inputrepeater/hook"
	"inputrepeater/internal/eventlog"
	"inputrepeater/internal/types"
)

// ErrAlreadyArmed is returned by Arm when the hooks are already installed.
var ErrAlreadyArmed = errors.New("listener already armed")

// HookInstallationError reports that the OS refused to install a hook.
type HookInstallationError struct {
	Kind hook.Kind
	Err  error
}

func (e *HookInstallationError) Error() string {
	return fmt.Sprintf("install %s hook: %v", e.Kind, e.Err)
}

func (e *HookInstallationError) Unwrap() error { return e.Err }

// Options tunes a Listener.
type Options struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

// Listener owns the keyboard and mouse hook handles.
type Listener struct {
	installer hook.Installer
	log       *eventlog.Log
	clock     func() time.Time
	logger    *zap.Logger

	recording atomic.Bool

	mu       sync.Mutex
	keyboard hook.Handle
	mouse    hook.Handle
}

// New returns a disarmed listener appending to log.
func New(installer hook.Installer, log *eventlog.Log, opts Options) *Listener {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		installer: installer,
		log:       log,
		clock:     clock,
		logger:    logger,
	}
}

// Arm installs both hooks. If either install fails nothing stays installed
// and a *HookInstallationError is returned.
func (l *Listener) Arm() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keyboard != nil || l.mouse != nil {
		return ErrAlreadyArmed
	}

	kb, err := l.installer.Install(hook.Keyboard, l.onKeyboard)
	if err != nil {
		return &HookInstallationError{Kind: hook.Keyboard, Err: err}
	}
	ms, err := l.installer.Install(hook.Mouse, l.onMouse)
	if err != nil {
		if relErr := kb.Release(); relErr != nil {
			l.logger.Warn("release keyboard hook after failed arm", zap.Error(relErr))
		}
		return &HookInstallationError{Kind: hook.Mouse, Err: err}
	}

	l.keyboard, l.mouse = kb, ms
	l.logger.Info("input hooks installed")
	return nil
}

// Disarm removes both hooks. It is a no-op when not armed. A hook that fails
// to release is kept so a later Disarm can retry it.
func (l *Listener) Disarm() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.keyboard != nil {
		if relErr := l.keyboard.Release(); relErr != nil {
			err = multierr.Append(err, errors.Wrap(relErr, "release keyboard hook"))
		} else {
			l.keyboard = nil
		}
	}
	if l.mouse != nil {
		if relErr := l.mouse.Release(); relErr != nil {
			err = multierr.Append(err, errors.Wrap(relErr, "release mouse hook"))
		} else {
			l.mouse = nil
		}
	}
	l.recording.Store(false)
	if err == nil {
		l.logger.Info("input hooks removed")
	}
	return err
}

// Armed reports whether the hooks are installed.
func (l *Listener) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keyboard != nil && l.mouse != nil
}

// SetRecording toggles capture. Hook installation is unaffected.
func (l *Listener) SetRecording(on bool) {
	l.recording.Store(on)
}

// Recording reports whether notifications are currently captured.
func (l *Listener) Recording() bool {
	return l.recording.Load()
}

// onKeyboard runs on the hook thread; it must stay O(1).
func (l *Listener) onKeyboard(n hook.Notification) {
	if n.Code < 0 || !l.recording.Load() {
		return
	}
	var down bool
	switch n.Message {
	case hook.WM_KEYDOWN, hook.WM_SYSKEYDOWN:
		down = true
	case hook.WM_KEYUP, hook.WM_SYSKEYUP:
	default:
		return
	}
	l.log.Append(types.Record{
		Event:     types.KeyEvent{Code: types.VirtualKey(n.VKCode), Down: down},
		Timestamp: l.clock(),
	})
}

// onMouse runs on the hook thread. Only left-button presses are recorded.
func (l *Listener) onMouse(n hook.Notification) {
	if n.Code < 0 || n.Message != hook.WM_LBUTTONDOWN || !l.recording.Load() {
		return
	}
	l.log.Append(types.Record{
		Event:     types.ClickEvent{X: int(n.X), Y: int(n.Y)},
		Timestamp: l.clock(),
	})
}
