package clients

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"inputrepeater/internal/types"
)

// pair returns the server side of a fresh websocket and the dialed client side.
func pair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-accepted:
		conn := NewConn(ws)
		t.Cleanup(func() { _ = conn.Close() })
		return conn, client
	case <-time.After(5 * time.Second):
		t.Fatal("no connection accepted")
		return nil, nil
	}
}

func TestSetControlReplacesOlderConnection(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	first, _ := pair(t)
	second, _ := pair(t)

	assert.Nil(t, m.SetControl("a", first))
	assert.Same(t, first, m.SetControl("a", second))
	assert.Nil(t, m.SetControl("a", second))
	assert.Equal(t, 1, m.Len())

	m.RemoveControl("a", first)
	assert.Equal(t, 1, m.Len())
	m.RemoveControl("a", second)
	assert.Equal(t, 0, m.Len())
}

func TestNotifyBroadcastsToEveryClient(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	connA, clientA := pair(t)
	connB, clientB := pair(t)
	m.SetControl("a", connA)
	m.SetControl("b", connB)

	m.Notify(types.Notice{Kind: types.NoticePlaybackComplete, Message: "Playback complete.", Count: 3})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg types.Message
		require.NoError(t, client.ReadJSON(&msg))
		assert.Equal(t, types.MessageNotice, msg.Type)
		require.NotNil(t, msg.Notice)
		assert.Equal(t, types.NoticePlaybackComplete, msg.Notice.Kind)
		assert.Equal(t, 3, msg.Notice.Count)
	}
}

func TestBroadcastReportsClosedConnections(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	conn, _ := pair(t)
	m.SetControl("gone", conn)
	require.NoError(t, conn.Close())

	err := m.Broadcast(types.Message{Type: types.MessageStatus, Status: &types.Status{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client gone")
}

func TestNotifyDoesNotWaitOnStalledClient(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	conn, client := pair(t)
	m.SetControl("slow", conn)

	// Holding the write lock stalls every write to this client.
	conn.mu.Lock()
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		for i := 0; i < 2*noticeQueue; i++ {
			m.Notify(types.Notice{Kind: types.NoticeRecordingStarted, Count: i})
		}
	}()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Notify blocked on a stalled client")
	}
	conn.mu.Unlock()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg types.Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, types.MessageNotice, msg.Type)
	assert.Equal(t, 0, msg.Notice.Count)
}

func TestNotifyAfterCloseIsDropped(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	m.Close()
	m.Close()
	m.Notify(types.Notice{Kind: types.NoticeEmptyLog})
}
