package app

import (
	"testing"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/core/coretest"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(rooms ...domain.Room) *RoomManager {
	clock := coretest.NewFakeClock(time.Unix(1_700_000_000, 0))
	return NewRoomManager(rooms, clock, VoteSettings{Window: 30 * time.Second, Cooldown: time.Minute})
}

func TestRoomManager_ListHidesCredentials(t *testing.T) {
	m := newTestManager(
		domain.Room{ID: "lobby", Name: "Lobby"},
		domain.Room{ID: "vip", Name: "VIP", Password: "hunter2"},
		domain.Room{ID: "vip", Name: "dup"},
		domain.Room{Name: "no id"},
	)

	assert.Equal(t, []domain.RoomInfo{
		{ID: "lobby", Name: "Lobby"},
		{ID: "vip", Name: "VIP", IsLocked: true},
	}, m.List())
	assert.Equal(t, 2, m.Len())
}

func TestRoomManager_StateLifecycle(t *testing.T) {
	m := newTestManager(domain.Room{ID: "lobby"}, domain.Room{ID: "old"})

	_, ok := m.State("missing")
	assert.False(t, ok)

	lobby, ok := m.State("lobby")
	require.True(t, ok)
	again, _ := m.State("lobby")
	assert.Same(t, lobby, again)

	old, _ := m.State("old")
	old.Presence.Add("A", "Alice", domain.DefaultAvatar())

	m.Replace([]domain.Room{{ID: "new"}})

	_, listed := m.Lookup("old")
	assert.False(t, listed)
	kept, ok := m.State("old")
	require.True(t, ok, "occupied room outlives its catalog entry")
	assert.Same(t, old, kept)
	_, ok = m.State("lobby")
	assert.False(t, ok, "empty dropped room is discarded")
}

func TestRoomManager_StopRoom(t *testing.T) {
	m := newTestManager(domain.Room{ID: "lobby"}, domain.Room{ID: "old"})
	lobby, _ := m.State("lobby")
	old, _ := m.State("old")
	old.Presence.Add("A", "Alice", domain.DefaultAvatar())
	_, err := old.Vote.Start("A", "Alice", func() {})
	require.NoError(t, err)

	assert.False(t, m.StopRoom("lobby"), "listed rooms stay")
	assert.False(t, m.StopRoom("missing"))

	m.Replace([]domain.Room{{ID: "lobby"}})
	assert.False(t, m.StopRoom("old"), "occupied rooms stay")

	old.Presence.Remove("A")
	assert.True(t, m.StopRoom("old"))
	_, ok := m.State("old")
	assert.False(t, ok)
	_, active := old.Vote.Current()
	assert.False(t, active, "pending vote aborted")

	again, _ := m.State("lobby")
	assert.Same(t, lobby, again)
}
