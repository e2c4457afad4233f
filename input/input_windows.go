//go:build windows

package input

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

// Win32 constants
const (
	INPUT_MOUSE    = 0
	INPUT_KEYBOARD = 1

	KEYEVENTF_KEYUP = 0x0002

	MOUSEEVENTF_MOVE     = 0x0001
	MOUSEEVENTF_LEFTDOWN = 0x0002
	MOUSEEVENTF_LEFTUP   = 0x0004
	MOUSEEVENTF_ABSOLUTE = 0x8000
)

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// INPUT is 40 bytes on 64-bit: Type, padding to align the union, then the
// union itself (MOUSEINPUT is its largest member).
type keyboardINPUT struct {
	Type uint32
	_    [4]byte
	Ki   keybdInput
	_    [8]byte
}

type mouseINPUT struct {
	Type uint32
	_    [4]byte
	Mi   mouseInput
}

type windowsInjector struct{}

// SendInput takes normalized absolute coordinates itself, so the display is
// not consulted.
func newNative(display.Display) Injector { return windowsInjector{} }

func (windowsInjector) KeyDown(vk types.VirtualKey) error {
	return sendKey(vk, 0)
}

func (windowsInjector) KeyUp(vk types.VirtualKey) error {
	return sendKey(vk, KEYEVENTF_KEYUP)
}

func (windowsInjector) MoveTo(nx, ny int) error {
	return sendMouse(mouseINPUT{
		Type: INPUT_MOUSE,
		Mi:   mouseInput{Dx: int32(nx), Dy: int32(ny), Flags: MOUSEEVENTF_MOVE | MOUSEEVENTF_ABSOLUTE},
	})
}

func (windowsInjector) LeftClick() error {
	if err := sendMouse(mouseINPUT{Type: INPUT_MOUSE, Mi: mouseInput{Flags: MOUSEEVENTF_LEFTDOWN}}); err != nil {
		return err
	}
	return sendMouse(mouseINPUT{Type: INPUT_MOUSE, Mi: mouseInput{Flags: MOUSEEVENTF_LEFTUP}})
}

func sendKey(vk types.VirtualKey, flags uint32) error {
	in := keyboardINPUT{Type: INPUT_KEYBOARD, Ki: keybdInput{Vk: uint16(vk), Flags: flags}}
	n, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n == 0 {
		return errors.Wrapf(ErrInjection, "SendInput key 0x%02X: %v", uint16(vk), callErr)
	}
	return nil
}

func sendMouse(in mouseINPUT) error {
	n, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n == 0 {
		return errors.Wrapf(ErrInjection, "SendInput mouse flags 0x%04X: %v", in.Mi.Flags, callErr)
	}
	return nil
}
