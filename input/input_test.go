package input

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

func TestKeyName(t *testing.T) {
	cases := map[types.VirtualKey]string{
		'A':            "a",
		'Z':            "z",
		'7':            "7",
		VK_RETURN:      "enter",
		VK_MENU:        "alt",
		VK_LSHIFT:      "lshift",
		VK_NUMPAD0 + 4: "num4",
		VK_F1:          "f1",
		VK_F1 + 11:     "f12",
		VK_OEM_PERIOD:  ".",
	}
	for vk, want := range cases {
		got, ok := KeyName(vk)
		require.True(t, ok, "vk 0x%02X", uint16(vk))
		assert.Equal(t, want, got)
	}

	_, ok := KeyName(0xFF)
	assert.False(t, ok)
}

func TestRecorderRecordsInOrderAndFails(t *testing.T) {
	r := NewRecorder()
	refused := errors.New("refused")
	r.FailOn(OpLeftClick, refused)

	require.NoError(t, r.KeyDown('A'))
	require.NoError(t, r.MoveTo(10, 20))
	assert.Equal(t, refused, r.LeftClick())
	require.NoError(t, r.KeyUp('A'))

	assert.Equal(t, []Call{
		{Op: OpKeyDown, Key: 'A'},
		{Op: OpMoveTo, X: 10, Y: 20},
		{Op: OpLeftClick},
		{Op: OpKeyUp, Key: 'A'},
	}, r.Calls())

	r.FailOn(OpLeftClick, nil)
	assert.NoError(t, r.LeftClick())
}

func TestNativeIsAnInjector(t *testing.T) {
	var _ Injector = Native(display.Fixed{Width: 800, Height: 600})
	var _ Injector = NewRecorder()
}

func TestPixelTargetUsesPlaybackDisplay(t *testing.T) {
	// A secondary 2560x1440 monitor: the point must land where it was
	// normalized, not on a rescaled main screen.
	secondary := display.Fixed{Width: 2560, Height: 1440}
	nx, ny, err := display.Normalize(1280, 360, 2560, 1440)
	require.NoError(t, err)

	x, y, err := pixelTarget(secondary, nx, ny)
	require.NoError(t, err)
	assert.Equal(t, 1280, x)
	assert.Equal(t, 360, y)

	x, y, err = pixelTarget(display.Fixed{Width: 1920, Height: 1080}, nx, ny)
	require.NoError(t, err)
	assert.Equal(t, 960, x)
	assert.Equal(t, 270, y)

	_, _, err = pixelTarget(display.Fixed{}, nx, ny)
	assert.ErrorIs(t, err, display.ErrNoDisplay)
}
