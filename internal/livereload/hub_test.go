package livereload

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.running
	}, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return hub, srv
}

// settle waits until the hub has taken every queued broadcast.
func settle(t *testing.T, hub *Hub) {
	t.Helper()
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, time.Millisecond)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubReplaysStatusAndBroadcasts(t *testing.T) {
	hub, srv := startHub(t)
	hub.Status(StatusWatching)
	settle(t, hub)

	conn := dial(t, srv)
	msg := readMessage(t, conn)
	assert.Equal(t, TypeStatus, msg.Type)
	assert.Equal(t, StatusWatching, msg.Status)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, 1, hub.Clients())

	hub.Status(StatusBuilding)
	hub.Reload()
	hub.AnnounceURL("http://localhost:8080/demo")

	assert.Equal(t, StatusBuilding, readMessage(t, conn).Status)
	assert.Equal(t, TypeReload, readMessage(t, conn).Type)
	msg = readMessage(t, conn)
	assert.Equal(t, TypeURL, msg.Type)
	assert.Equal(t, "http://localhost:8080/demo", msg.URL)
}

func TestHubMultipleClients(t *testing.T) {
	hub, srv := startHub(t)
	hub.Status(StatusWatching)
	settle(t, hub)

	a := dial(t, srv)
	b := dial(t, srv)
	readMessage(t, a)
	readMessage(t, b)

	hub.Status(StatusReloading)
	assert.Equal(t, StatusReloading, readMessage(t, a).Status)
	assert.Equal(t, StatusReloading, readMessage(t, b).Status)
}

func TestHubClientDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	hub.Status(StatusWatching)
	settle(t, hub)

	conn := dial(t, srv)
	readMessage(t, conn)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHubRejectsWhenNotRunning(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+Path, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+Path, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestScriptEndpoint(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + ScriptPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
}

func TestServeStopsOnCancel(t *testing.T) {
	hub := NewHub(nil, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.serveListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + ScriptPath)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
