package clients

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"inputrepeater/internal/types"
)

const (
	// DefaultWriteTimeout bounds a single websocket write.
	DefaultWriteTimeout = 5 * time.Second
	// noticeQueue is how many notices may wait for delivery before new ones
	// are dropped.
	noticeQueue = 64
)

// Conn is one control connection. Writes are serialized; gorilla allows a
// single concurrent writer per connection.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps ws.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes msg as one JSON text frame.
func (c *Conn) Send(msg types.Message, timeout time.Duration) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying websocket.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// Manager tracks control connections keyed by clientID. Notices are
// delivered by a single goroutine so Notify never waits on a client.
type Manager struct {
	mu           sync.RWMutex
	clients      map[string]*Conn
	writeTimeout time.Duration
	logger       *zap.Logger

	notices   chan types.Notice
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		clients:      make(map[string]*Conn),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
		notices:      make(chan types.Notice, noticeQueue),
		quit:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	go m.deliver()
	return m
}

// SetControl registers conn for id and returns the connection it replaced, if any.
func (m *Manager) SetControl(id string, conn *Conn) (old *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok && c != conn {
		old = c
	}
	m.clients[id] = conn
	return
}

// RemoveControl forgets conn if it is still the one registered for id.
func (m *Manager) RemoveControl(id string, conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok && c == conn {
		delete(m.clients, id)
	}
}

// Len returns the number of connected clients.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ForEachClient executes fn with a snapshot of the connections.
func (m *Manager) ForEachClient(fn func(id string, conn *Conn)) {
	m.mu.RLock()
	snapshot := make(map[string]*Conn, len(m.clients))
	for id, c := range m.clients {
		snapshot[id] = c
	}
	m.mu.RUnlock()
	for id, c := range snapshot {
		fn(id, c)
	}
}

// Broadcast sends msg to every client and returns the combined write errors.
func (m *Manager) Broadcast(msg types.Message) error {
	var errs error
	m.ForEachClient(func(id string, conn *Conn) {
		if err := conn.Send(msg, m.writeTimeout); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "client %s", id))
		}
	})
	return errs
}

// Notify queues a notice for every client. It drops the notice when the
// queue is full or the manager is closed.
func (m *Manager) Notify(n types.Notice) {
	select {
	case <-m.quit:
		return
	default:
	}
	select {
	case m.notices <- n:
	default:
		m.logger.Warn("notice queue full, dropping notice", zap.String("notice", string(n.Kind)))
	}
}

func (m *Manager) deliver() {
	defer close(m.stopped)
	for {
		select {
		case n := <-m.notices:
			if err := m.Broadcast(types.Message{Type: types.MessageNotice, Notice: &n}); err != nil {
				m.logger.Warn("notice broadcast failed", zap.String("notice", string(n.Kind)), zap.Error(err))
			}
		case <-m.quit:
			return
		}
	}
}

// Close stops notice delivery. Queued notices are discarded.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.quit) })
	<-m.stopped
}
