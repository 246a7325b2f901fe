package app

import (
	"sync"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomState bundles the mutable state of one room. Every access goes through
// its mutex, so events for one room are applied in arrival order while other
// rooms proceed independently.
type RoomState struct {
	sync.Mutex
	ID       domain.RoomID
	Presence *Presence
	Share    *ShareLock
	Vote     *VoteCoordinator
}

// VoteSettings configures the VoteCoordinator of every room.
type VoteSettings struct {
	Window   time.Duration
	Cooldown time.Duration
}

// RoomManager owns the room catalog and one RoomState per room in use.
// Lock order is manager before room: never call into the manager while
// holding a RoomState lock.
type RoomManager struct {
	mu      sync.RWMutex
	catalog map[domain.RoomID]domain.Room
	order   []domain.RoomID
	states  map[domain.RoomID]*RoomState

	clock core.Clock
	votes VoteSettings
}

func NewRoomManager(rooms []domain.Room, clock core.Clock, votes VoteSettings) *RoomManager {
	m := &RoomManager{
		states: make(map[domain.RoomID]*RoomState),
		clock:  clock,
		votes:  votes,
	}
	m.Replace(rooms)
	return m
}

// Replace swaps in a new catalog. Live state of rooms that remain is kept;
// state of dropped rooms is discarded once nobody is present.
func (m *RoomManager) Replace(rooms []domain.Room) {
	catalog := make(map[domain.RoomID]domain.Room, len(rooms))
	order := make([]domain.RoomID, 0, len(rooms))
	for _, r := range rooms {
		if r.ID == "" {
			continue
		}
		if _, dup := catalog[r.ID]; dup {
			log.Warn().Str("module", "app.rooms").Str("room", string(r.ID)).Msg("duplicate room id ignored")
			continue
		}
		catalog[r.ID] = r
		order = append(order, r.ID)
	}

	m.mu.Lock()
	m.catalog = catalog
	m.order = order
	var dropped []domain.RoomID
	for id := range m.states {
		if _, ok := catalog[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	m.mu.Unlock()
	log.Info().Str("module", "app.rooms").Int("rooms", len(order)).Msg("room catalog loaded")

	for _, id := range dropped {
		m.StopRoom(id)
	}
}

func (m *RoomManager) Lookup(id domain.RoomID) (domain.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.catalog[id]
	return r, ok
}

// State returns the state bundle of a catalog room, creating it on first use.
// Rooms removed from the catalog keep answering while their state lives on.
func (m *RoomManager) State(id domain.RoomID) (*RoomState, bool) {
	m.mu.RLock()
	st, ok := m.states[id]
	_, listed := m.catalog[id]
	m.mu.RUnlock()
	if ok {
		return st, true
	}
	if !listed {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.states[id]; ok {
		return st, true
	}
	st = &RoomState{
		ID:       id,
		Presence: NewPresence(),
		Share:    &ShareLock{},
		Vote:     NewVoteCoordinator(m.clock, m.votes.Window, m.votes.Cooldown),
	}
	m.states[id] = st
	return st, true
}

// List returns the public view of the catalog, in catalog order.
func (m *RoomManager) List() []domain.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.catalog[id].Info())
	}
	return out
}

func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// StopRoom discards the state of a room that is no longer in the catalog,
// aborting its pending vote. Listed and occupied rooms are left alone.
func (m *RoomManager) StopRoom(id domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, listed := m.catalog[id]; listed {
		return false
	}
	st, ok := m.states[id]
	if !ok {
		return false
	}
	st.Lock()
	defer st.Unlock()
	if st.Presence.Len() > 0 {
		return false
	}
	st.Vote.Abort()
	delete(m.states, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room state dropped")
	return true
}
