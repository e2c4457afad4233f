package types

import (
	"fmt"
	"time"
)

// VirtualKey is an OS virtual key code, independent of keyboard layout.
type VirtualKey uint16

// EventKind discriminates the Event variants.
type EventKind string

const (
	KindKeyboard EventKind = "keyboard"
	KindMouse    EventKind = "mouse"
)

// Event is a single captured action. It is implemented only by KeyEvent and
// ClickEvent.
type Event interface {
	Kind() EventKind
	isEvent()
}

// KeyEvent is a key transition.
type KeyEvent struct {
	Code VirtualKey
	Down bool
}

func (KeyEvent) Kind() EventKind { return KindKeyboard }
func (KeyEvent) isEvent()        {}

func (e KeyEvent) String() string {
	dir := "up"
	if e.Down {
		dir = "down"
	}
	return fmt.Sprintf("key 0x%02X %s", uint16(e.Code), dir)
}

// ClickEvent is a left-button press at screen coordinates.
type ClickEvent struct {
	X int
	Y int
}

func (ClickEvent) Kind() EventKind { return KindMouse }
func (ClickEvent) isEvent()        {}

func (e ClickEvent) String() string {
	return fmt.Sprintf("left click (%d,%d)", e.X, e.Y)
}

// Record is one entry of the event log.
type Record struct {
	Event     Event
	Timestamp time.Time
}

// NoticeKind names a user-visible notice.
type NoticeKind string

const (
	NoticeRecordingStarted NoticeKind = "recording_started"
	NoticeRecordingStopped NoticeKind = "recording_stopped"
	NoticePlaybackStarted  NoticeKind = "playback_started"
	NoticePlaybackComplete NoticeKind = "playback_complete"
	NoticePlaybackStopped  NoticeKind = "playback_stopped"
	NoticeEmptyLog         NoticeKind = "empty_log"
	NoticeHookFailure      NoticeKind = "hook_failure"
)

// Notice is what the UI shell shows the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Session string     `json:"session,omitempty"`
	Count   int        `json:"count"`
	Time    time.Time  `json:"time"`
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notifiers fans a notice out to several notifiers in order.
type Notifiers []Notifier

// Notify forwards n to every non-nil notifier.
func (ns Notifiers) Notify(n Notice) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Control actions accepted from the UI shell.
const (
	ActionToggleRecording = "toggle_recording"
	ActionStartPlayback   = "start_playback"
	ActionStopPlayback    = "stop_playback"
	ActionStatus          = "status"
)

// Command represents incoming control messages from the UI shell.
type Command struct {
	Action string `json:"action"`
}

// Status is what the UI shell needs to enable buttons and pick messages.
type Status struct {
	Recording          bool   `json:"recording"`
	Playing            bool   `json:"playing"`
	EventCount         int    `json:"eventCount"`
	RecordingAvailable bool   `json:"recordingAvailable"`
	Session            string `json:"session,omitempty"`
}

// Outbound message types.
const (
	MessageStatus = "status"
	MessageNotice = "notice"
	MessageError  = "error"
)

// Message is the outbound payload sent to control clients.
type Message struct {
	Type   string  `json:"type"`
	Status *Status `json:"status,omitempty"`
	Notice *Notice `json:"notice,omitempty"`
	Error  string  `json:"error,omitempty"`
}
