package orch

import (
	"context"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

const defaultDisplayName = "Guest"

type JoinRequest struct {
	RoomID        domain.RoomID
	ParticipantID domain.ParticipantID
	DisplayName   string
	Password      string
	Avatar        domain.AvatarStyle
}

// Join admits a session into a room: ban check, room lookup, password check,
// then registration in the identity registry and presence store.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, req JoinRequest) error {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.ErrNotFound
	}
	// A removal vote may have concluded after this connection was admitted.
	if left, banned := o.Bans.Remaining(sess.IP, o.Clock.Now()); banned {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("ip", sess.IP).Msg("banned address tried to join")
		o.disconnectLater(sid, o.settings().BanNoticeGrace)
		return &domain.BannedError{Remaining: left}
	}

	room, ok := o.Rooms.Lookup(req.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if req.ParticipantID == "" || len(req.ParticipantID) > domain.MaxParticipantIDLen {
		return domain.ErrBadPayload
	}
	name := domain.TruncateDisplayName(req.DisplayName)
	if name == "" {
		name = defaultDisplayName
	}

	if err := o.Guard.Authenticate(ctx, room, sess.IP, req.Password); err != nil {
		return err
	}

	st, ok := o.Rooms.State(room.ID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	st.Lock()
	defer st.Unlock()

	if err := o.Registry.Join(sid, room.ID, req.ParticipantID, sess.IP); err != nil {
		return err
	}
	final, style := st.Presence.Add(req.ParticipantID, name, req.Avatar)

	o.sendTo(sess, room.ID, msgExistingUsers{Type: TypeExistingUsers, Users: st.Presence.Names()})
	o.sendTo(sess, room.ID, msgExistingAvatars{Type: TypeExistingAvatars, Avatars: st.Presence.Avatars()})
	o.broadcast(room.ID, sid, msgAvatar{
		Type:          TypeUserConnected,
		ParticipantID: req.ParticipantID,
		DisplayName:   final,
		AvatarStyle:   style,
	})
	o.sendTo(sess, room.ID, msgJoined{Type: TypeJoinedRoom, RoomID: room.ID, DisplayName: final})
	if holder, sharing := st.Share.Holder(); sharing {
		o.sendTo(sess, room.ID, msgParticipant{Type: TypeShareStarted, ParticipantID: holder})
	}

	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.ID)).
		Str("participant", string(req.ParticipantID)).Str("name", final).Msg("joined")
	return nil
}

// Leave takes the session out of its room but keeps the connection open.
func (o *Orchestrator) Leave(sid core.SessionID) error {
	room, ok := o.leaveRoom(sid)
	if !ok {
		return domain.ErrNotJoined
	}
	o.cleanupMedia(sid, room)
	o.send(sid, "", msgType{Type: TypeLeftRoom})
	return nil
}

// leaveRoom removes the session from the identity registry, presence and the
// share lock, and tells the rest of the room. Safe to call more than once.
// The last member out of a room dropped from the catalog discards its state.
func (o *Orchestrator) leaveRoom(sid core.SessionID) (domain.RoomID, bool) {
	room, ok := o.removeMember(sid)
	if ok {
		o.Rooms.StopRoom(room)
	}
	return room, ok
}

func (o *Orchestrator) removeMember(sid core.SessionID) (domain.RoomID, bool) {
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", false
	}
	st, ok := o.Rooms.State(room)
	if !ok {
		if _, _, err := o.Registry.Leave(sid); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("leave raced")
			return "", false
		}
		return room, true
	}
	st.Lock()
	defer st.Unlock()

	room, pid, err := o.Registry.Leave(sid)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("leave raced")
		return "", false
	}
	st.Presence.Remove(pid)
	if st.Share.Release(pid) {
		o.broadcast(room, sid, msgType{Type: TypeShareEnded})
	}
	o.broadcast(room, sid, msgParticipant{Type: TypeUserDisconnected, ParticipantID: pid})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Str("participant", string(pid)).Msg("left")
	return room, true
}

func (o *Orchestrator) Rename(sid core.SessionID, name string) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	final, err := st.Presence.Rename(pid, name)
	if err != nil {
		return err
	}
	o.broadcast(st.ID, "", msgParticipant{Type: TypeUserRenamed, ParticipantID: pid, DisplayName: final})
	return nil
}

// ChangeAvatar stores a new avatar style. Invalid styles are rejected with
// domain.ErrInvalidAvatar and nothing is broadcast.
func (o *Orchestrator) ChangeAvatar(sid core.SessionID, style domain.AvatarStyle) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	style, err = st.Presence.SetAvatar(pid, style)
	if err != nil {
		return err
	}
	o.broadcast(st.ID, "", msgAvatar{Type: TypeUserAvatarChanged, ParticipantID: pid, AvatarStyle: style})
	return nil
}

func (o *Orchestrator) WhoAmI(sid core.SessionID) {
	resp := msgWhoAmI{Type: TypeWhoAmI, SessionID: sid}
	if st, pid, err := o.joined(sid); err == nil {
		st.Lock()
		name, _ := st.Presence.Name(pid)
		st.Unlock()
		resp.RoomID, resp.ParticipantID, resp.DisplayName = st.ID, pid, name
	}
	o.send(sid, resp.RoomID, resp)
}
