// Package hook subscribes to process-wide low-level keyboard and mouse
// notifications. Each platform implements the native installer in a separate
// file guarded by build tags; Simulator delivers notifications in-process.
package hook

import "github.com/pkg/errors"

// Kind selects which low-level hook to install.
type Kind int

const (
	Keyboard Kind = iota
	Mouse
)

func (k Kind) String() string {
	switch k {
	case Keyboard:
		return "keyboard"
	case Mouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// Window messages carried in Notification.Message.
const (
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MOUSEWHEEL  = 0x020A
)

// Notification is one low-level hook delivery. Code is the hook code (events
// with Code < 0 must only be passed on), Message the window message. VKCode is
// set for keyboard notifications, X and Y (screen coordinates) for mouse ones.
type Notification struct {
	Kind    Kind
	Code    int32
	Message uint32
	VKCode  uint32
	X       int32
	Y       int32
}

// Callback observes a notification. It runs on the hook thread and must
// return promptly; the notification is forwarded to the next hook afterwards
// whatever the callback does.
type Callback func(Notification)

// Handle is an installed hook.
type Handle interface {
	// Release removes the hook. Only the first call has an effect.
	Release() error
}

// Installer installs low-level hooks.
type Installer interface {
	Install(kind Kind, cb Callback) (Handle, error)
}

var (
	// ErrUnsupported is returned when the platform has no low-level hooks.
	ErrUnsupported = errors.New("low-level input hooks are not supported on this platform")
	// ErrInstalled is returned when a hook of the same kind is already installed.
	ErrInstalled = errors.New("hook already installed")
	errNilCallback = errors.New("hook callback must not be nil")
)

// KeyNotification builds a keyboard notification for vk with message msg.
func KeyNotification(msg uint32, vk uint32) Notification {
	return Notification{Kind: Keyboard, Message: msg, VKCode: vk}
}

// MouseNotification builds a mouse notification at (x, y) with message msg.
func MouseNotification(msg uint32, x, y int32) Notification {
	return Notification{Kind: Mouse, Message: msg, X: x, Y: y}
}
