//go:build windows

package hook

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPeekMessage         = user32.NewProc("PeekMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

// Win32 constants
const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	PM_NOREMOVE    = 0x0000
)

type point struct {
	X int32
	Y int32
}

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msllHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
	Private uint32
}

// Callback slots created by NewCallback are never freed, so there is exactly
// one hook procedure per kind; it looks the active Go callback up in dispatch.
var (
	procsOnce    sync.Once
	keyboardProc uintptr
	mouseProc    uintptr

	dispatchMu sync.RWMutex
	dispatch   = map[Kind]Callback{}
)

func initProcs() {
	keyboardProc = windows.NewCallback(lowLevelProc(Keyboard))
	mouseProc = windows.NewCallback(lowLevelProc(Mouse))
}

func lowLevelProc(kind Kind) func(nCode, wParam, lParam uintptr) uintptr {
	return func(nCode, wParam, lParam uintptr) uintptr {
		n := Notification{Kind: kind, Code: int32(nCode), Message: uint32(wParam)}
		if n.Code >= 0 && lParam != 0 {
			switch kind {
			case Keyboard:
				s := (*kbdllHookStruct)(unsafe.Pointer(lParam))
				n.VKCode = s.VkCode
			case Mouse:
				s := (*msllHookStruct)(unsafe.Pointer(lParam))
				n.X, n.Y = s.Pt.X, s.Pt.Y
			}
		}

		dispatchMu.RLock()
		cb := dispatch[kind]
		dispatchMu.RUnlock()
		if cb != nil {
			cb(n)
		}

		ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
		return ret
	}
}

type nativeInstaller struct{}

// Native returns the installer backed by SetWindowsHookExW.
func Native() Installer { return nativeInstaller{} }

func (nativeInstaller) Install(kind Kind, cb Callback) (Handle, error) {
	if cb == nil {
		return nil, errNilCallback
	}
	var id uintptr
	switch kind {
	case Keyboard:
		id = WH_KEYBOARD_LL
	case Mouse:
		id = WH_MOUSE_LL
	default:
		return nil, errors.Errorf("unknown hook kind %d", int(kind))
	}
	procsOnce.Do(initProcs)

	dispatchMu.Lock()
	if _, busy := dispatch[kind]; busy {
		dispatchMu.Unlock()
		return nil, errors.Wrap(ErrInstalled, kind.String())
	}
	dispatch[kind] = cb
	dispatchMu.Unlock()

	proc := keyboardProc
	if kind == Mouse {
		proc = mouseProc
	}

	h := &nativeHandle{kind: kind, ready: make(chan error, 1), done: make(chan struct{})}
	go h.pump(id, proc)
	if err := <-h.ready; err != nil {
		<-h.done
		h.clearDispatch()
		return nil, err
	}
	return h, nil
}

// nativeHandle owns the OS thread the hook was installed on. Low-level hook
// procedures run on that thread only while it pumps messages.
type nativeHandle struct {
	kind       Kind
	threadID   uint32
	ready      chan error
	done       chan struct{}
	releaseErr error

	mu       sync.Mutex
	released bool
}

// postQuit asks the pump on threadID to exit.
var postQuit = func(threadID uint32) error {
	if ok, _, callErr := procPostThreadMessage.Call(uintptr(threadID), WM_QUIT, 0, 0); ok == 0 {
		return errors.Wrap(callErr, "PostThreadMessageW")
	}
	return nil
}

func (h *nativeHandle) pump(id, proc uintptr) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	var m msg
	// Force creation of the thread message queue so Release can post WM_QUIT.
	procPeekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, PM_NOREMOVE)
	h.threadID = windows.GetCurrentThreadId()

	module, _, _ := procGetModuleHandle.Call(0)
	hhk, _, callErr := procSetWindowsHookEx.Call(id, proc, module, 0)
	if hhk == 0 {
		h.ready <- errors.Wrapf(callErr, "SetWindowsHookExW(%d)", id)
		return
	}
	h.ready <- nil

	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 is WM_QUIT, -1 an error; both end the pump.
		if int32(ret) <= 0 {
			break
		}
	}

	if ok, _, callErr := procUnhookWindowsHookEx.Call(hhk); ok == 0 {
		h.releaseErr = errors.Wrap(callErr, "UnhookWindowsHookEx")
	}
}

// Release removes the hook. When the quit message cannot be posted the hook
// stays installed and Release may be called again.
func (h *nativeHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return h.releaseErr
	}
	if err := postQuit(h.threadID); err != nil {
		return err
	}
	<-h.done
	h.released = true
	h.clearDispatch()
	return h.releaseErr
}

func (h *nativeHandle) clearDispatch() {
	dispatchMu.Lock()
	delete(dispatch, h.kind)
	dispatchMu.Unlock()
}
