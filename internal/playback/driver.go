// Package playback replays a recorded event log by synthesizing input on a
// fixed schedule.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"inputrepeater/input"
	"inputrepeater/internal/display"
	"inputrepeater/internal/types"
)

const (
	// DefaultInitialDelay is the wait before the first record is replayed.
	DefaultInitialDelay = 10 * time.Millisecond
	// DefaultInterval separates every later tick, whatever the recorded gaps.
	DefaultInterval = 650 * time.Millisecond
)

var (
	// ErrEmptyLog is returned by Play when there is nothing to replay.
	ErrEmptyLog = errors.New("no recorded events")
	// ErrAlreadyPlaying is returned by Play while a playback is running.
	ErrAlreadyPlaying = errors.New("playback already running")
)

// State of the driver.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Options tunes a Driver. Zero durations select the defaults.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	// After schedules the next tick; time.After when nil.
	After  func(time.Duration) <-chan time.Time
	Clock  func() time.Time
	Logger *zap.Logger
}

// Driver replays records one per tick.
type Driver struct {
	injector     input.Injector
	display      display.Display
	notifier     types.Notifier
	initialDelay time.Duration
	interval     time.Duration
	after        func(time.Duration) <-chan time.Time
	clock        func() time.Time
	logger       *zap.Logger

	mu    sync.Mutex
	state State
	index int
	stop  chan struct{}
	done  chan struct{}
	// injecting is true from Play until the run's loop has returned.
	injecting bool
}

// New returns an idle driver.
func New(injector input.Injector, disp display.Display, notifier types.Notifier, opts Options) *Driver {
	d := &Driver{
		injector:     injector,
		display:      disp,
		notifier:     notifier,
		initialDelay: opts.InitialDelay,
		interval:     opts.Interval,
		after:        opts.After,
		clock:        opts.Clock,
		logger:       opts.Logger,
	}
	if d.initialDelay <= 0 {
		d.initialDelay = DefaultInitialDelay
	}
	if d.interval <= 0 {
		d.interval = DefaultInterval
	}
	if d.after == nil {
		d.after = time.After
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.notifier == nil {
		d.notifier = types.Notifiers(nil)
	}
	return d
}

// Play starts replaying records from the first one and returns immediately.
// An empty slice raises one empty-log notice and returns ErrEmptyLog.
func (d *Driver) Play(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		d.notify(types.NoticeEmptyLog, "No recorded events to play.", 0)
		return ErrEmptyLog
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	for {
		if d.state == Playing {
			d.mu.Unlock()
			return ErrAlreadyPlaying
		}
		// The previous run may still be raising its final notice.
		prev := d.done
		if prev == nil || closed(prev) {
			break
		}
		d.mu.Unlock()
		<-prev
		d.mu.Lock()
	}
	stop, done := make(chan struct{}), make(chan struct{})
	d.state, d.index, d.stop, d.done, d.injecting = Playing, 0, stop, done, true
	d.mu.Unlock()

	d.notify(types.NoticePlaybackStarted, "Playback started.", len(records))
	log := make([]types.Record, len(records))
	copy(log, records)
	go d.run(ctx, log, stop, done)
	return nil
}

// Stop halts a running playback and leaves the index where it is. A record
// being injected is allowed to finish; Stop returns once the run has exited.
// It reports false, and does nothing, when the driver is idle.
func (d *Driver) Stop() bool {
	d.mu.Lock()
	if d.state != Playing {
		d.mu.Unlock()
		return false
	}
	close(d.stop)
	d.state = Idle
	done := d.done
	d.mu.Unlock()

	<-done
	d.notify(types.NoticePlaybackStopped, "Playback stopped.", d.Index())
	return true
}

// State returns the current state. A run stays Playing until its goroutine
// can no longer inject input.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.injecting {
		return Playing
	}
	return d.state
}

// Index returns the position of the next record to replay.
func (d *Driver) Index() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

// Done is closed when the most recent run has exited.
func (d *Driver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return d.done
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (d *Driver) run(ctx context.Context, records []types.Record, stop, done chan struct{}) {
	defer close(done)
	final := d.loop(ctx, records, stop)

	d.mu.Lock()
	d.injecting = false
	d.mu.Unlock()
	if final != nil {
		d.notifier.Notify(*final)
	}
}

// loop replays one record per tick. It returns the notice that ends the run,
// or nil when Stop ended it.
func (d *Driver) loop(ctx context.Context, records []types.Record, stop chan struct{}) *types.Notice {
	delay := d.initialDelay
	var prev time.Time
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return d.settle(stop, types.NoticePlaybackStopped, "Playback cancelled.", d.Index())
		case <-d.after(delay):
		}
		if closed(stop) {
			return nil
		}

		i := d.Index()
		if i >= len(records) {
			return d.settle(stop, types.NoticePlaybackComplete, "Playback complete.", len(records))
		}

		rec := records[i]
		if !prev.IsZero() {
			// The recorded gap is reported but does not pace playback.
			d.logger.Debug("recorded gap ignored",
				zap.Int("index", i),
				zap.Duration("gap", rec.Timestamp.Sub(prev)),
				zap.Duration("interval", d.interval))
		}
		prev = rec.Timestamp

		d.step(rec)
		d.advance()
		delay = d.interval
	}
}

// step synthesizes one record. Failures are logged and the record skipped;
// playback carries on.
func (d *Driver) step(rec types.Record) {
	switch ev := rec.Event.(type) {
	case types.KeyEvent:
		var err error
		if ev.Down {
			err = d.injector.KeyDown(ev.Code)
		} else {
			err = d.injector.KeyUp(ev.Code)
		}
		if err != nil {
			d.logger.Warn("key injection failed", zap.Stringer("event", ev), zap.Error(err))
		}
	case types.ClickEvent:
		w, h, err := d.display.Size()
		if err != nil {
			d.logger.Warn("display size unavailable", zap.Stringer("event", ev), zap.Error(err))
			return
		}
		nx, ny, err := display.Normalize(ev.X, ev.Y, w, h)
		if err != nil {
			d.logger.Warn("coordinate rescale failed", zap.Stringer("event", ev), zap.Error(err))
			return
		}
		if err := d.injector.MoveTo(nx, ny); err != nil {
			d.logger.Warn("cursor move failed", zap.Stringer("event", ev), zap.Error(err))
			return
		}
		if err := d.injector.LeftClick(); err != nil {
			d.logger.Warn("left click failed", zap.Stringer("event", ev), zap.Error(err))
		}
	default:
		d.logger.Warn("unknown event type", zap.String("type", fmt.Sprintf("%T", rec.Event)))
	}
}

func (d *Driver) advance() {
	d.mu.Lock()
	d.index++
	d.mu.Unlock()
}

// settle moves the run owning stop back to Idle and builds its final notice.
// It returns nil when Stop got there first.
func (d *Driver) settle(stop chan struct{}, kind types.NoticeKind, msg string, count int) *types.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != stop || d.state != Playing {
		return nil
	}
	d.state = Idle
	return &types.Notice{Kind: kind, Message: msg, Count: count, Time: d.clock()}
}

func (d *Driver) notify(kind types.NoticeKind, msg string, count int) {
	d.notifier.Notify(types.Notice{Kind: kind, Message: msg, Count: count, Time: d.clock()})
}
