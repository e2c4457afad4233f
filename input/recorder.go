package input

import (
	"sync"

	"inputrepeater/internal/types"
)

// Op names a recorded injection call.
type Op string

const (
	OpKeyDown   Op = "key_down"
	OpKeyUp     Op = "key_up"
	OpMoveTo    Op = "move_to"
	OpLeftClick Op = "left_click"
)

// Call is one injection call seen by a Recorder.
type Call struct {
	Op  Op
	Key types.VirtualKey
	X   int
	Y   int
}

// Recorder is an Injector that remembers every call instead of touching the
// OS. Errors configured with FailOn are returned for matching ops; the call is
// still recorded.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	failOn map[Op]error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{failOn: make(map[Op]error)}
}

// FailOn makes calls of op return err. A nil err clears it.
func (r *Recorder) FailOn(op Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failOn, op)
		return
	}
	r.failOn[op] = err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) KeyDown(vk types.VirtualKey) error {
	return r.record(Call{Op: OpKeyDown, Key: vk})
}

func (r *Recorder) KeyUp(vk types.VirtualKey) error {
	return r.record(Call{Op: OpKeyUp, Key: vk})
}

func (r *Recorder) MoveTo(nx, ny int) error {
	return r.record(Call{Op: OpMoveTo, X: nx, Y: ny})
}

func (r *Recorder) LeftClick() error {
	return r.record(Call{Op: OpLeftClick})
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.failOn[c.Op]
}
