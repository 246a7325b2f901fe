package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/app/auth"
	"github.com/MarcMroz/open-voice-chat/internal/app/orch"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/core/coretest"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url  string
	orch *orch.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := core.SystemClock()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager([]domain.Room{{ID: "lobby", Name: "Lobby"}}, clock, app.VoteSettings{}),
		Bans:     app.NewBanList(),
		Guard:    auth.NewGuard(auth.Config{}, clock),
		Policy:   app.SimplePolicy{},
		Clock:    clock,
	}
	ctrl := NewSignalWSController(o, NewRateLimiter(2, time.Minute, clock), Settings{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ip, _, _ := strings.Cut(c.Request.RemoteAddr, ":")
		if fwd := c.GetHeader("X-Test-IP"); fwd != "" {
			ip = fwd
		}
		c.Set(ClientIPKey, ip)
		ctrl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", orch: o}
}

func (s *testServer) dial(t *testing.T, ip string) *websocket.Conn {
	t.Helper()
	header := map[string][]string{"X-Test-IP": {ip}}
	ws, _, err := websocket.DefaultDialer.Dial(s.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readType reads messages until one of type typ arrives.
func readType(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, ws.ReadJSON(&msg), "waiting for %q", typ)
		if msg["type"] == typ {
			return msg
		}
	}
}

func join(t *testing.T, ws *websocket.Conn, pid, name string) map[string]any {
	t.Helper()
	require.NoError(t, ws.WriteJSON(map[string]any{
		"type":          "join-room",
		"roomId":        "lobby",
		"participantId": pid,
		"displayName":   name,
		"avatarStyle":   map[string]string{"set": "set2", "bg": "none"},
	}))
	return readType(t, ws, "joined-room")
}

func TestSignal_JoinAndPresence(t *testing.T) {
	s := newTestServer(t)
	alice := s.dial(t, "10.0.0.1")
	bob := s.dial(t, "10.0.0.2")

	assert.Equal(t, "Alice", join(t, alice, "pa", "Alice")["displayName"])
	join(t, bob, "pb", "Bob")

	connected := readType(t, alice, "user-connected")
	assert.Equal(t, "pb", connected["participantId"])
	assert.Equal(t, map[string]any{"set": "set2", "bg": "none"}, connected["avatarStyle"])

	require.NoError(t, bob.WriteJSON(map[string]any{"type": "rename-user", "name": "Robert"}))
	renamed := readType(t, alice, "user-renamed")
	assert.Equal(t, "Robert", renamed["displayName"])

	require.NoError(t, bob.Close())
	gone := readType(t, alice, "user-disconnected")
	assert.Equal(t, "pb", gone["participantId"])
}

func TestSignal_PingAndErrors(t *testing.T) {
	s := newTestServer(t)
	ws := s.dial(t, "10.0.0.1")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "ping"}))
	readType(t, ws, "pong")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
	assert.Equal(t, "BAD_PAYLOAD", readType(t, ws, "error")["code"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "request-share"}))
	assert.Equal(t, "NOT_JOINED", readType(t, ws, "error")["code"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join-room", "roomId": "attic", "participantId": "p"}))
	assert.Equal(t, "ROOM_NOT_FOUND", readType(t, ws, "error")["code"])
}

func TestSignal_ChatRateLimited(t *testing.T) {
	s := newTestServer(t)
	ws := s.dial(t, "10.0.0.1")
	join(t, ws, "pa", "Alice")

	for i := 0; i < 2; i++ {
		require.NoError(t, ws.WriteJSON(map[string]any{"type": "chat-message", "text": "hi <3"}))
		msg := readType(t, ws, "chat-message")
		assert.Equal(t, "hi &lt;3", msg["text"])
	}
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "play-reaction", "url": "/s/boo.mp3"}))
	assert.Equal(t, "RATE_LIMITED", readType(t, ws, "error")["code"])
}

func TestSignal_BannedConnectionClosed(t *testing.T) {
	s := newTestServer(t)
	s.orch.Bans.Ban("10.6.6.6", time.Minute, time.Now())
	ws := s.dial(t, "10.6.6.6")

	msg := readType(t, ws, "error")
	assert.Equal(t, "BANNED", msg["code"])

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "socket closed after the notice")
}

func TestRateLimiter_Window(t *testing.T) {
	clock := coretest.NewFakeClock(time.Unix(1_700_000_000, 0))
	rl := NewRateLimiter(2, 5*time.Second, clock)

	assert.True(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s1"))
	assert.False(t, rl.Allow("s1"))
	assert.True(t, rl.Allow("s2"), "limits are per session")

	clock.Advance(5 * time.Second)
	assert.True(t, rl.Allow("s1"))

	rl.Forget("s1")
	assert.True(t, rl.Allow("s1"))
	assert.True(t, NewRateLimiter(0, time.Second, clock).Allow("s1"), "zero limit disables")
}
