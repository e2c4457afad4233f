package input

import (
	"fmt"

	"inputrepeater/internal/types"
)

// Win32 virtual keys
const (
	VK_BACK     = 0x08
	VK_TAB      = 0x09
	VK_RETURN   = 0x0D
	VK_SHIFT    = 0x10
	VK_CONTROL  = 0x11
	VK_MENU     = 0x12 // ALT
	VK_CAPITAL  = 0x14
	VK_ESCAPE   = 0x1B
	VK_SPACE    = 0x20
	VK_PRIOR    = 0x21
	VK_NEXT     = 0x22
	VK_END      = 0x23
	VK_HOME     = 0x24
	VK_LEFT     = 0x25
	VK_UP       = 0x26
	VK_RIGHT    = 0x27
	VK_DOWN     = 0x28
	VK_SNAPSHOT = 0x2C
	VK_INSERT   = 0x2D
	VK_DELETE   = 0x2E
	VK_LWIN     = 0x5B
	VK_RWIN     = 0x5C
	VK_NUMPAD0  = 0x60
	VK_F1       = 0x70
	VK_LSHIFT   = 0xA0
	VK_RSHIFT   = 0xA1
	VK_LCONTROL = 0xA2
	VK_RCONTROL = 0xA3
	VK_LMENU    = 0xA4
	VK_RMENU    = 0xA5

	VK_OEM_1      = 0xBA // ;:
	VK_OEM_PLUS   = 0xBB // =+
	VK_OEM_COMMA  = 0xBC // ,<
	VK_OEM_MINUS  = 0xBD // -_
	VK_OEM_PERIOD = 0xBE // .>
	VK_OEM_2      = 0xBF // /?
	VK_OEM_3      = 0xC0 // `~
	VK_OEM_4      = 0xDB // [{
	VK_OEM_5      = 0xDC // \|
	VK_OEM_6      = 0xDD // ]}
	VK_OEM_7      = 0xDE // '"
)

var keyNames = map[types.VirtualKey]string{
	VK_BACK:     "backspace",
	VK_TAB:      "tab",
	VK_RETURN:   "enter",
	VK_SHIFT:    "shift",
	VK_CONTROL:  "ctrl",
	VK_MENU:     "alt",
	VK_CAPITAL:  "capslock",
	VK_ESCAPE:   "esc",
	VK_SPACE:    "space",
	VK_PRIOR:    "pageup",
	VK_NEXT:     "pagedown",
	VK_END:      "end",
	VK_HOME:     "home",
	VK_LEFT:     "left",
	VK_UP:       "up",
	VK_RIGHT:    "right",
	VK_DOWN:     "down",
	VK_SNAPSHOT: "printscreen",
	VK_INSERT:   "insert",
	VK_DELETE:   "delete",
	VK_LWIN:     "cmd",
	VK_RWIN:     "rcmd",
	VK_LSHIFT:   "lshift",
	VK_RSHIFT:   "rshift",
	VK_LCONTROL: "lctrl",
	VK_RCONTROL: "rctrl",
	VK_LMENU:    "lalt",
	VK_RMENU:    "ralt",

	VK_OEM_1:      ";",
	VK_OEM_PLUS:   "=",
	VK_OEM_COMMA:  ",",
	VK_OEM_MINUS:  "-",
	VK_OEM_PERIOD: ".",
	VK_OEM_2:      "/",
	VK_OEM_3:      "`",
	VK_OEM_4:      "[",
	VK_OEM_5:      "\\",
	VK_OEM_6:      "]",
	VK_OEM_7:      "'",
}

// KeyName maps a virtual key code to the portable key name used by the
// robotgo backend.
func KeyName(vk types.VirtualKey) (string, bool) {
	switch {
	case vk >= 'A' && vk <= 'Z':
		return string(rune('a' + (vk - 'A'))), true
	case vk >= '0' && vk <= '9':
		return string(rune(vk)), true
	case vk >= VK_NUMPAD0 && vk <= VK_NUMPAD0+9:
		return fmt.Sprintf("num%d", vk-VK_NUMPAD0), true
	case vk >= VK_F1 && vk < VK_F1+24:
		return fmt.Sprintf("f%d", vk-VK_F1+1), true
	}
	name, ok := keyNames[vk]
	return name, ok
}
