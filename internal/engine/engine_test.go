package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"inputrepeater/hook"
	"inputrepeater/input"
	"inputrepeater/internal/display"
	"inputrepeater/internal/listener"
	"inputrepeater/internal/playback"
	"inputrepeater/internal/types"
)

type harness struct {
	engine  *Engine
	sim     *hook.Simulator
	rec     *input.Recorder
	now     time.Time
	mu      sync.Mutex
	notices []types.Notice
	delays  []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sim: hook.NewSimulator(),
		rec: input.NewRecorder(),
		now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	h.engine = New(Options{
		Installer: h.sim,
		Injector:  h.rec,
		Display:   display.Fixed{Width: 1000, Height: 1000},
		Notifier: types.NotifierFunc(func(n types.Notice) {
			h.mu.Lock()
			h.notices = append(h.notices, n)
			h.mu.Unlock()
		}),
		Playback: playback.Options{After: h.after},
		Clock:    h.clock,
		Logger:   zaptest.NewLogger(t),
	})
	t.Cleanup(func() { _ = h.engine.Close() })
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	h.now = h.now.Add(d)
	h.mu.Unlock()
}

func (h *harness) after(d time.Duration) <-chan time.Time {
	h.mu.Lock()
	h.delays = append(h.delays, d)
	h.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (h *harness) kinds() []types.NoticeKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.NoticeKind, 0, len(h.notices))
	for _, n := range h.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (h *harness) waitPlayback(t *testing.T) {
	t.Helper()
	select {
	case <-h.engine.PlaybackDone():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestRecordTwoKeysThenPlay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())

	recording, err := h.engine.ToggleRecording()
	require.NoError(t, err)
	require.True(t, recording)

	h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A'))
	h.advance(100 * time.Millisecond)
	h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'B'))

	recording, err = h.engine.ToggleRecording()
	require.NoError(t, err)
	require.False(t, recording)
	assert.Equal(t, 2, h.engine.Status().EventCount)

	require.NoError(t, h.engine.StartPlayback(context.Background()))
	h.waitPlayback(t)

	assert.Equal(t, []input.Call{
		{Op: input.OpKeyDown, Key: 'A'},
		{Op: input.OpKeyDown, Key: 'B'},
	}, h.rec.Calls())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 650 * time.Millisecond, 650 * time.Millisecond}, h.delays)
	assert.Equal(t, []types.NoticeKind{
		types.NoticeRecordingStarted,
		types.NoticeRecordingStopped,
		types.NoticePlaybackStarted,
		types.NoticePlaybackComplete,
	}, h.kinds())
}

func TestRecordClickThenPlay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.StartRecording())
	h.sim.Deliver(hook.MouseNotification(hook.WM_MOUSEMOVE, 10, 10))
	h.sim.Deliver(hook.MouseNotification(hook.WM_LBUTTONDOWN, 500, 500))
	h.sim.Deliver(hook.MouseNotification(hook.WM_LBUTTONUP, 500, 500))
	h.engine.StopRecording()

	require.NoError(t, h.engine.StartPlayback(context.Background()))
	h.waitPlayback(t)

	calls := h.rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, input.OpMoveTo, calls[0].Op)
	assert.Contains(t, []int{32767, 32768}, calls[0].X)
	assert.Contains(t, []int{32767, 32768}, calls[0].Y)
	assert.Equal(t, input.OpLeftClick, calls[1].Op)
}

func TestReplayCountMatchesCapture(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.StartRecording())

	keys := []uint32{'H', 'E', 'L', 'L', 'O'}
	for _, k := range keys {
		h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, k))
		h.sim.Deliver(hook.KeyNotification(hook.WM_KEYUP, k))
	}
	h.engine.StopRecording()

	require.NoError(t, h.engine.StartPlayback(context.Background()))
	h.waitPlayback(t)

	calls := h.rec.Calls()
	require.Len(t, calls, 2*len(keys))
	for i, k := range keys {
		assert.Equal(t, input.Call{Op: input.OpKeyDown, Key: types.VirtualKey(k)}, calls[2*i])
		assert.Equal(t, input.Call{Op: input.OpKeyUp, Key: types.VirtualKey(k)}, calls[2*i+1])
	}
}

func TestEmptyLogPlayback(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())

	err := h.engine.StartPlayback(context.Background())
	assert.ErrorIs(t, err, playback.ErrEmptyLog)
	assert.Empty(t, h.rec.Calls())
	assert.Equal(t, []types.NoticeKind{types.NoticeEmptyLog}, h.kinds())
}

func TestStopsAreIdempotent(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.StartRecording())
	h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A'))
	h.engine.StopRecording()

	h.engine.StopRecording()
	assert.False(t, h.engine.StopPlayback())
	assert.Equal(t, 1, h.engine.Status().EventCount)
	assert.Equal(t, []types.NoticeKind{types.NoticeRecordingStarted, types.NoticeRecordingStopped}, h.kinds())
}

func TestRecordingClearsPreviousLog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())

	require.NoError(t, h.engine.StartRecording())
	h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A'))
	h.engine.StopRecording()
	first := h.engine.Status().Session

	require.NoError(t, h.engine.StartRecording())
	assert.Equal(t, 0, h.engine.Status().EventCount)
	assert.NotEqual(t, first, h.engine.Status().Session)
	h.engine.StopRecording()
}

func TestPlaybackRefusedWhileRecording(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.StartRecording())

	assert.ErrorIs(t, h.engine.StartPlayback(context.Background()), ErrRecordingActive)
}

func TestRecordingRefusedWhilePlaying(t *testing.T) {
	ticks := make(chan time.Time)
	h := newHarness(t)
	h.engine.driver = playback.New(h.rec, display.Fixed{Width: 10, Height: 10}, nil, playback.Options{
		After: func(time.Duration) <-chan time.Time { return ticks },
	})
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.StartRecording())
	h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A'))
	h.engine.StopRecording()

	require.NoError(t, h.engine.StartPlayback(context.Background()))
	_, err := h.engine.ToggleRecording()
	assert.ErrorIs(t, err, ErrPlaybackActive)
	assert.True(t, h.engine.Status().Playing)

	assert.True(t, h.engine.StopPlayback())
	h.waitPlayback(t)
	assert.False(t, h.engine.Status().Playing)
}

func TestHookFailureDisablesRecording(t *testing.T) {
	h := newHarness(t)
	h.sim.Refuse(hook.Keyboard, errors.New("access denied"))

	err := h.engine.Start()
	var hookErr *listener.HookInstallationError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, []types.NoticeKind{types.NoticeHookFailure}, h.kinds())

	_, err = h.engine.ToggleRecording()
	assert.ErrorIs(t, err, ErrRecordingUnavailable)
	assert.False(t, h.engine.Status().RecordingAvailable)
}

func TestCloseRemovesHooksOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())
	require.NoError(t, h.engine.Close())
	require.NoError(t, h.engine.Close())

	assert.False(t, h.sim.Installed(hook.Keyboard))
	assert.False(t, h.sim.Installed(hook.Mouse))
	assert.Equal(t, 1, h.sim.Releases(hook.Keyboard))
	assert.Equal(t, 1, h.sim.Releases(hook.Mouse))
	assert.False(t, h.sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A')))
}

func TestNotifierMayQueryEngine(t *testing.T) {
	var (
		eng  *Engine
		mu   sync.Mutex
		seen = map[types.NoticeKind]types.Status{}
	)
	sched := func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	sim := hook.NewSimulator()
	eng = New(Options{
		Installer: sim,
		Injector:  input.NewRecorder(),
		Display:   display.Fixed{Width: 100, Height: 100},
		Notifier: types.NotifierFunc(func(n types.Notice) {
			st := eng.Status()
			mu.Lock()
			seen[n.Kind] = st
			mu.Unlock()
		}),
		Playback: playback.Options{After: sched},
		Logger:   zaptest.NewLogger(t),
	})
	t.Cleanup(func() { _ = eng.Close() })

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.NoError(t, eng.Start())
		assert.NoError(t, eng.StartRecording())
		sim.Deliver(hook.KeyNotification(hook.WM_KEYDOWN, 'A'))
		eng.StopRecording()
		assert.NoError(t, eng.StartPlayback(context.Background()))
		<-eng.PlaybackDone()
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("engine deadlocked on a notifier that queries status")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[types.NoticeRecordingStarted].Recording)
	assert.False(t, seen[types.NoticeRecordingStopped].Recording)
	assert.Equal(t, 1, seen[types.NoticeRecordingStopped].EventCount)
	assert.True(t, seen[types.NoticePlaybackStarted].Playing)
	assert.False(t, seen[types.NoticePlaybackComplete].Playing)
}

func TestCloseRetriesStuckHook(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start())

	h.sim.FailRelease(hook.Keyboard, errors.New("unhook failed"))
	assert.Error(t, h.engine.Close())
	assert.True(t, h.sim.Installed(hook.Keyboard))

	require.NoError(t, h.engine.Close())
	assert.False(t, h.sim.Installed(hook.Keyboard))
	assert.False(t, h.sim.Installed(hook.Mouse))
	assert.Equal(t, 1, h.sim.Releases(hook.Keyboard))
}
