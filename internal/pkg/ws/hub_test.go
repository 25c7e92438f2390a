package ws

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// newTestServer 以 ?uid= 注册连接，registered 在每次注册后收到一个信号
func newTestServer(t *testing.T, hub *Hub) (string, <-chan struct{}) {
	t.Helper()

	registered := make(chan struct{}, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uid, _ := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		client := &Client{UserID: uid, Conn: conn}
		hub.Register(client)
		registered <- struct{}{}

		// 读到错误（客户端关闭）后注销
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(client)
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), registered
}

func dial(t *testing.T, base string, uid int64, registered <-chan struct{}) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"?uid="+strconv.FormatInt(uid, 10), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("registration timeout")
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHub_Empty(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline(123))

	// 离线用户不报错
	assert.NoError(t, hub.SendToUser(123, &Message{Type: "test"}))
	assert.NoError(t, hub.Broadcast(&Message{Type: "test"}))
}

func TestHub_SendToUser_AllConnectionsOfUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	base, registered := newTestServer(t, hub)

	tab1 := dial(t, base, 200, registered)
	tab2 := dial(t, base, 200, registered)
	other := dial(t, base, 201, registered)

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(200))

	err := hub.SendToUser(200, &Message{Type: "subscription_activated", Data: map[string]string{"plan": "pro"}})
	require.NoError(t, err)

	assert.Contains(t, readMessage(t, tab1), "subscription_activated")
	assert.Contains(t, readMessage(t, tab2), `"plan":"pro"`)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other user must not receive the message")
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	base, registered := newTestServer(t, hub)

	a := dial(t, base, 1, registered)
	b := dial(t, base, 2, registered)

	require.NoError(t, hub.Broadcast(&Message{Type: "prono_published"}))

	assert.Contains(t, readMessage(t, a), "prono_published")
	assert.Contains(t, readMessage(t, b), "prono_published")
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	base, registered := newTestServer(t, hub)

	conn := dial(t, base, 300, registered)
	require.True(t, hub.IsOnline(300))

	conn.Close()

	assert.Eventually(t, func() bool {
		return !hub.IsOnline(300)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ConnectionCount())
}
