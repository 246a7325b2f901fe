package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRooms(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestParseRooms(t *testing.T) {
	rooms, err := ParseRooms([]byte(`[
		{"id": "lobby", "name": "Lobby"},
		{"name": "no id"},
		{"id": "vip", "password": "pw"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []domain.Room{
		{ID: "lobby", Name: "Lobby"},
		{ID: "vip", Name: "vip", Password: "pw"},
	}, rooms)

	_, err = ParseRooms([]byte(`[]`))
	assert.ErrorIs(t, err, ErrNoRooms)
	_, err = ParseRooms([]byte(`{"id": "lobby"}`))
	assert.Error(t, err)
}

func TestLoadRooms_Sources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	writeRooms(t, path, `[{"id": "file", "name": "From file"}]`)

	t.Setenv(RoomsEnv, `[{"id": "env", "name": "From env"}]`)
	assert.Equal(t, domain.RoomID("env"), LoadRooms(path)[0].ID)

	t.Setenv(RoomsEnv, `not json`)
	assert.Equal(t, domain.RoomID("file"), LoadRooms(path)[0].ID)

	t.Setenv(RoomsEnv, "")
	writeRooms(t, path, `{broken`)
	assert.Equal(t, []domain.Room{domain.DefaultRoom()}, LoadRooms(path))

	assert.Equal(t, []domain.Room{domain.DefaultRoom()}, LoadRooms(filepath.Join(t.TempDir(), "absent.json")))
}

func TestWatchRooms_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	writeRooms(t, path, `[{"id": "a"}]`)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan []domain.Room, 4)
	done := make(chan error, 1)
	go func() { done <- WatchRooms(ctx, path, func(r []domain.Room) { got <- r }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeRooms(t, path, `[{"id": "a"}, {"id": "b"}]`)

	select {
	case rooms := <-got:
		assert.NotEmpty(t, rooms)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
