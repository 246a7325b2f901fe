package app

import (
	"context"
	"sync"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session     core.Session
	Room        domain.RoomID
	Participant domain.ParticipantID
	Media       core.MediaConnection
	Cancel      context.CancelFunc
}

func (e *sessionEntry) joined() bool { return e.Room != "" }

// Registry is the identity registry: it maps every live transport session to
// its (room, participant, ip) triple and keeps the reverse index used to find
// a session by participant.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[core.SessionID]*sessionEntry
	byParticipant map[domain.RoomID]map[domain.ParticipantID]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[core.SessionID]*sessionEntry),
		byParticipant: make(map[domain.RoomID]map[domain.ParticipantID]core.SessionID),
	}
}

// BindSignal records a freshly opened connection that has not joined a room yet.
func (r *Registry) BindSignal(sess core.Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("ip", sess.IP).Msg("bound signal")
}

// Join attaches a bound session to a room under a participant identity.
func (r *Registry) Join(sid core.SessionID, room domain.RoomID, pid domain.ParticipantID, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.ErrNotFound
	}
	if e.joined() {
		return domain.ErrDuplicateSession
	}
	if _, taken := r.byParticipant[room][pid]; taken {
		return domain.ErrParticipantTaken
	}
	e.Room = room
	e.Participant = pid
	if ip != "" {
		e.Session.IP = ip
	}
	idx, ok := r.byParticipant[room]
	if !ok {
		idx = make(map[domain.ParticipantID]core.SessionID)
		r.byParticipant[room] = idx
	}
	idx[pid] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Str("participant", string(pid)).Msg("joined room")
	return nil
}

// Resolve answers "who is this connection".
func (r *Registry) Resolve(sid core.SessionID) (domain.RoomID, domain.ParticipantID, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || !e.joined() {
		return "", "", "", domain.ErrNotFound
	}
	return e.Room, e.Participant, e.Session.IP, nil
}

func (r *Registry) FindByParticipant(room domain.RoomID, pid domain.ParticipantID) (core.SessionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byParticipant[room][pid]
	if !ok {
		return "", domain.ErrNotFound
	}
	return sid, nil
}

// Leave detaches the session from its room. It is idempotent: a second call
// reports ErrNotFound.
func (r *Registry) Leave(sid core.SessionID) (domain.RoomID, domain.ParticipantID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || !e.joined() {
		return "", "", domain.ErrNotFound
	}
	room, pid := e.Room, e.Participant
	if idx := r.byParticipant[room]; idx[pid] == sid {
		delete(idx, pid)
		if len(idx) == 0 {
			delete(r.byParticipant, room)
		}
	}
	e.Room, e.Participant = "", ""
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return room, pid, nil
}

// Unbind forgets the session entirely. Callers Leave first.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) GetSession(sid core.SessionID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return core.Session{}, false
}

// RoomOf returns the room and participant of a joined session.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, domain.ParticipantID, bool) {
	room, pid, _, err := r.Resolve(sid)
	return room, pid, err == nil
}

// SetMedia attaches a media connection and returns the one it replaced.
func (r *Registry) SetMedia(sid core.SessionID, mc core.MediaConnection) (core.MediaConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	old := e.Media
	e.Media = mc
	return old, true
}

func (r *Registry) Media(sid core.SessionID) (core.MediaConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Media == nil {
		return nil, false
	}
	return e.Media, true
}

// TakeMedia detaches and returns the session's media connection.
func (r *Registry) TakeMedia(sid core.SessionID) (core.MediaConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Media == nil {
		return nil, false
	}
	mc := e.Media
	e.Media = nil
	return mc, true
}

type regSnap struct {
	SID         core.SessionID
	Participant domain.ParticipantID
	Session     core.Session
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.byParticipant[room]
	out := make([]regSnap, 0, len(idx))
	for pid, sid := range idx {
		if e, ok := r.sessions[sid]; ok {
			out = append(out, regSnap{SID: sid, Participant: pid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
