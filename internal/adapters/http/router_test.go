package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/adapters/signal"
	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/app/auth"
	"github.com/MarcMroz/open-voice-chat/internal/app/orch"
	"github.com/MarcMroz/open-voice-chat/internal/config"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	clock := core.SystemClock()
	rooms := []domain.Room{
		{ID: "lobby", Name: "Lobby"},
		{ID: "vip", Name: "VIP", Password: "secret"},
	}
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(rooms, clock, app.VoteSettings{Window: time.Second, Cooldown: time.Second}),
		Bans:     app.NewBanList(),
		Guard:    auth.NewGuard(auth.Config{}, clock),
		Policy:   app.SimplePolicy{},
		Clock:    clock,
	}
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		Secret:     "test-secret-test-secret-test-sec",
		Net:        config.NetConfig{IPHeaders: []string{"X-Forwarded-For"}},
	}
	ctrl := signal.NewSignalWSController(o, nil, signal.Settings{})
	return SetupRouter(context.Background(), cfg, o, ctrl)
}

func TestRouter_Rooms(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/rooms", "/api/rooms"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var rooms []domain.RoomInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
		assert.Equal(t, []domain.RoomInfo{
			{ID: "lobby", Name: "Lobby"},
			{ID: "vip", Name: "VIP", IsLocked: true},
		}, rooms)
		assert.NotContains(t, w.Body.String(), "secret", "credentials never leave the process")
	}
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","rooms":2,"sessions":0}`, w.Body.String())
}

func TestRouter_SessionCookie(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// A returning browser keeps its token and gets no new cookie.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Result().Cookies())
}
