// Package engine is the surface the UI shell talks to: it owns the event log,
// the input listener and the playback driver, and keeps recording and
// playback mutually exclusive.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"inputrepeater/hook"
	"inputrepeater/input"
	"inputrepeater/internal/display"
	"inputrepeater/internal/eventlog"
	"inputrepeater/internal/listener"
	"inputrepeater/internal/playback"
	"inputrepeater/internal/types"
)

var (
	// ErrRecordingActive is returned when playback is requested mid-recording.
	ErrRecordingActive = errors.New("recording in progress")
	// ErrPlaybackActive is returned when recording is toggled mid-playback.
	ErrPlaybackActive = errors.New("playback in progress")
	// ErrRecordingUnavailable is returned when the hooks could not be installed.
	ErrRecordingUnavailable = errors.New("recording unavailable: input hooks are not installed")
)

// Options wires an Engine. Installer, Injector and Display are required.
// Notices are raised without any engine lock held, so a Notifier may call
// back into the engine.
type Options struct {
	Installer hook.Installer
	Injector  input.Injector
	Display   display.Display
	Notifier  types.Notifier
	Playback  playback.Options
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Engine implements toggleRecording and startPlayback for the UI shell.
type Engine struct {
	log      *eventlog.Log
	listener *listener.Listener
	driver   *playback.Driver
	notifier types.Notifier
	clock    func() time.Time
	logger   *zap.Logger

	mu        sync.Mutex
	available bool
	starting  bool
	session   string
}

// New builds an engine with hooks not yet installed.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = types.Notifiers(nil)
	}

	log := eventlog.New()
	pbOpts := opts.Playback
	if pbOpts.Logger == nil {
		pbOpts.Logger = logger.Named("playback")
	}
	if pbOpts.Clock == nil {
		pbOpts.Clock = clock
	}
	return &Engine{
		log: log,
		listener: listener.New(opts.Installer, log, listener.Options{
			Clock:  clock,
			Logger: logger.Named("listener"),
		}),
		driver:   playback.New(opts.Injector, opts.Display, notifier, pbOpts),
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Start installs the input hooks. When the OS refuses, a hook-failure notice
// is raised, recording stays disabled and the error is returned; the engine
// remains usable for status queries.
func (e *Engine) Start() error {
	if err := e.listener.Arm(); err != nil {
		e.logger.Error("input hooks unavailable, recording disabled", zap.Error(err))
		e.notify(types.Notice{Kind: types.NoticeHookFailure, Message: err.Error()})
		return err
	}
	e.mu.Lock()
	e.available = true
	e.mu.Unlock()
	return nil
}

// ToggleRecording starts a recording when none is active, otherwise stops it.
// It reports whether a recording is active afterwards.
func (e *Engine) ToggleRecording() (bool, error) {
	if e.listener.Recording() {
		e.StopRecording()
		return false, nil
	}
	if err := e.StartRecording(); err != nil {
		return false, err
	}
	return true, nil
}

// StartRecording clears the log and starts capturing.
func (e *Engine) StartRecording() error {
	e.mu.Lock()
	if !e.available {
		e.mu.Unlock()
		return ErrRecordingUnavailable
	}
	if e.starting || e.driver.State() == playback.Playing {
		e.mu.Unlock()
		return ErrPlaybackActive
	}
	if e.listener.Recording() {
		e.mu.Unlock()
		return nil
	}

	e.session = uuid.NewString()
	e.log.Reset()
	e.listener.SetRecording(true)
	session := e.session
	e.mu.Unlock()

	e.logger.Info("recording started", zap.String("session", session))
	e.notify(types.Notice{Kind: types.NoticeRecordingStarted, Message: "Recording started.", Session: session})
	return nil
}

// StopRecording stops capturing and freezes the log. It does nothing when no
// recording is active.
func (e *Engine) StopRecording() {
	e.mu.Lock()
	if !e.listener.Recording() {
		e.mu.Unlock()
		return
	}
	e.listener.SetRecording(false)
	e.log.Freeze()
	count := e.log.Len()
	session := e.session
	e.mu.Unlock()

	e.logger.Info("recording stopped", zap.String("session", session), zap.Int("events", count))
	e.notify(types.Notice{Kind: types.NoticeRecordingStopped, Message: "Recording stopped.", Session: session, Count: count})
}

// StartPlayback replays the last recording.
func (e *Engine) StartPlayback(ctx context.Context) error {
	e.mu.Lock()
	if e.listener.Recording() {
		e.mu.Unlock()
		return ErrRecordingActive
	}
	if e.starting {
		e.mu.Unlock()
		return playback.ErrAlreadyPlaying
	}
	// starting keeps StartRecording out while Play runs without e.mu held.
	e.starting = true
	records := e.log.Snapshot()
	session := e.session
	e.mu.Unlock()

	err := e.driver.Play(ctx, records)

	e.mu.Lock()
	e.starting = false
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.logger.Info("playback started", zap.String("session", session), zap.Int("events", len(records)))
	return nil
}

// StopPlayback halts a running playback. It reports false when idle.
func (e *Engine) StopPlayback() bool {
	return e.driver.Stop()
}

// PlaybackDone is closed when the most recent playback has exited.
func (e *Engine) PlaybackDone() <-chan struct{} {
	return e.driver.Done()
}

// Status is what the UI shell uses to enable its controls.
func (e *Engine) Status() types.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.Status{
		Recording:          e.listener.Recording(),
		Playing:            e.driver.State() == playback.Playing,
		EventCount:         e.log.Len(),
		RecordingAvailable: e.available,
		Session:            e.session,
	}
}

// Close stops any playback and removes the hooks. It may be called again to
// retry hooks that failed to release; once they are gone it does nothing.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.available = false
	e.mu.Unlock()

	e.driver.Stop()
	return errors.Wrap(e.listener.Disarm(), "disarm listener")
}

func (e *Engine) notify(n types.Notice) {
	if n.Time.IsZero() {
		n.Time = e.clock()
	}
	e.notifier.Notify(n)
}
