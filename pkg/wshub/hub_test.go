package wshub

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

var upgrader = websocket.Upgrader{}

// echoServer registers every session in hub and echoes frames back through Send.
func echoServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(context.Background(), r.URL.Query().Get("id"), ws)
		_ = hub.Add(c)
		defer hub.Remove(c)

		_ = c.Listen(func(payload []byte) error {
			return c.Send(map[string]string{"echo": string(payload)})
		})
	}))
}

func dialWS(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + id
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHubEchoAndSendTo(t *testing.T) {
	hub := New(logger.New(io.Discard, "test", logger.LevelError))
	srv := echoServer(t, hub)
	defer srv.Close()

	client := dialWS(t, srv, "d1")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hi")))
	var got map[string]string
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "hi", got["echo"])

	require.NoError(t, hub.SendTo("d1", map[string]int{"n": 1}))
	var pushed map[string]int
	require.NoError(t, client.ReadJSON(&pushed))
	assert.Equal(t, 1, pushed["n"])

	assert.ErrorIs(t, hub.SendTo("nobody", "x"), ErrConnIsNotFound)
}

func TestHubReplacesSessionForSameID(t *testing.T) {
	hub := New(logger.New(io.Discard, "test", logger.LevelError))
	srv := echoServer(t, hub)
	defer srv.Close()

	first := dialWS(t, srv, "d1")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	dialWS(t, srv, "d1")

	// the first session is closed by the server
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, hub.Len())
}
