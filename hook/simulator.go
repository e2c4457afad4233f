package hook

import (
	"sync"

	"github.com/pkg/errors"
)

// Simulator is an in-process Installer. Deliver plays the role of the OS:
// it hands a notification to the installed callback, then forwards it down
// the chain.
type Simulator struct {
	mu        sync.Mutex
	callbacks map[Kind]Callback
	refuse    map[Kind]error
	stuck     map[Kind]error
	forwarded map[Kind]int
	releases  map[Kind]int
}

// NewSimulator returns a simulator with no hooks installed.
func NewSimulator() *Simulator {
	return &Simulator{
		callbacks: make(map[Kind]Callback),
		refuse:    make(map[Kind]error),
		stuck:     make(map[Kind]error),
		forwarded: make(map[Kind]int),
		releases:  make(map[Kind]int),
	}
}

// Refuse makes installs of kind fail with err. A nil err clears the refusal.
func (s *Simulator) Refuse(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.refuse, kind)
		return
	}
	s.refuse[kind] = err
}

// FailRelease makes the next Release of a kind hook fail with err, leaving
// the hook installed, the way a failed unhook would on the OS.
func (s *Simulator) FailRelease(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stuck[kind] = err
}

// Install implements Installer.
func (s *Simulator) Install(kind Kind, cb Callback) (Handle, error) {
	if cb == nil {
		return nil, errNilCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refuse[kind]; err != nil {
		return nil, err
	}
	if _, busy := s.callbacks[kind]; busy {
		return nil, errors.Wrap(ErrInstalled, kind.String())
	}
	s.callbacks[kind] = cb
	return &simHandle{sim: s, kind: kind}, nil
}

// Deliver dispatches n to the callback installed for n.Kind and records the
// forward to the next hook. It reports whether a callback observed n.
func (s *Simulator) Deliver(n Notification) bool {
	s.mu.Lock()
	cb := s.callbacks[n.Kind]
	s.mu.Unlock()

	if cb != nil {
		cb(n)
	}

	s.mu.Lock()
	s.forwarded[n.Kind]++
	s.mu.Unlock()
	return cb != nil
}

// Installed reports whether a hook of kind is currently installed.
func (s *Simulator) Installed(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.callbacks[kind]
	return ok
}

// Forwarded returns how many notifications of kind were passed on.
func (s *Simulator) Forwarded(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwarded[kind]
}

// Releases returns how many hooks of kind have been released.
func (s *Simulator) Releases(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases[kind]
}

type simHandle struct {
	sim      *Simulator
	kind     Kind
	released bool
}

func (h *simHandle) Release() error {
	h.sim.mu.Lock()
	defer h.sim.mu.Unlock()
	if h.released {
		return nil
	}
	if err := h.sim.stuck[h.kind]; err != nil {
		delete(h.sim.stuck, h.kind)
		return err
	}
	h.released = true
	delete(h.sim.callbacks, h.kind)
	h.sim.releases[h.kind]++
	return nil
}
