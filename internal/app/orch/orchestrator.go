package orch

import (
	"context"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/app/auth"
	"github.com/MarcMroz/open-voice-chat/internal/app/sfu"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBanDuration    = 5 * time.Minute
	DefaultKickGrace      = 200 * time.Millisecond
	DefaultBanNoticeGrace = time.Second
)

type Settings struct {
	// BanDuration is how long a participant removed by vote stays banned.
	BanDuration time.Duration
	// KickGrace separates the removal notice from closing the connection.
	KickGrace time.Duration
	// BanNoticeGrace separates the ban notice on connect from closing.
	BanNoticeGrace time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.BanDuration <= 0 {
		s.BanDuration = DefaultBanDuration
	}
	if s.KickGrace <= 0 {
		s.KickGrace = DefaultKickGrace
	}
	if s.BanNoticeGrace <= 0 {
		s.BanNoticeGrace = DefaultBanNoticeGrace
	}
	return s
}

// Orchestrator is the room coordinator. It sequences join, leave, rename,
// share and vote events per room and emits the resulting notifications.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Bans     *app.BanList
	Guard    *auth.Guard
	Policy   app.Policy
	Relays   *sfu.RelayManager
	Clock    core.Clock
	Settings Settings
}

func (o *Orchestrator) settings() Settings { return o.Settings.withDefaults() }

// Connect admits a new transport connection. A banned address is told so
// and disconnected after BanNoticeGrace.
func (o *Orchestrator) Connect(sess core.Session, cancel context.CancelFunc) error {
	if left, banned := o.Bans.Remaining(sess.IP, o.Clock.Now()); banned {
		err := &domain.BannedError{Remaining: left}
		log.Warn().Str("module", "orch").Str("sid", string(sess.ID)).Str("ip", sess.IP).Msg("blocked banned connection")
		o.sendTo(sess, "", ErrorMessage(err))
		o.Clock.AfterFunc(o.settings().BanNoticeGrace, func() {
			sess.Signal.Close()
			if cancel != nil {
				cancel()
			}
		})
		return err
	}
	o.Registry.BindSignal(sess, cancel)
	return nil
}

// OnDisconnect runs the cleanup for a closed transport connection. It does
// not wait for anything still in flight for the session.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	room, _ := o.leaveRoom(sid)
	o.cleanupMedia(sid, room)
	o.Registry.Unbind(sid)
}

// SendError reports a failed request to the requesting session only.
func (o *Orchestrator) SendError(sid core.SessionID, err error) {
	if sess, ok := o.Registry.GetSession(sid); ok {
		o.sendTo(sess, "", ErrorMessage(err))
	}
}

// Sessions is the number of live connections.
func (o *Orchestrator) Sessions() int { return o.Registry.Count() }

// disconnectLater closes the session's transport after d. The transport's
// read loop then drives OnDisconnect.
func (o *Orchestrator) disconnectLater(sid core.SessionID, d time.Duration) {
	o.Clock.AfterFunc(d, func() {
		sess, ok := o.Registry.GetSession(sid)
		if !ok {
			log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("disconnect: session already gone")
			return
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("ip", sess.IP).Msg("forcing disconnect")
		sess.Signal.Close()
		o.Registry.Cancel(sid)
	})
}

// joined resolves a session to its room state. The state is returned
// unlocked.
func (o *Orchestrator) joined(sid core.SessionID) (*app.RoomState, domain.ParticipantID, error) {
	room, pid, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, "", domain.ErrNotJoined
	}
	st, ok := o.Rooms.State(room)
	if !ok {
		return nil, "", domain.ErrRoomNotFound
	}
	return st, pid, nil
}

func (o *Orchestrator) send(sid core.SessionID, room domain.RoomID, v any) {
	if sess, ok := o.Registry.GetSession(sid); ok {
		o.sendTo(sess, room, v)
	}
}

func (o *Orchestrator) sendTo(sess core.Session, room domain.RoomID, v any) {
	frame, ok := encode(v)
	if !ok {
		return
	}
	o.deliver(sess, room, frame)
}

// broadcast sends v to every member of room except the given session.
// Called with the room locked, so per-room order is preserved.
func (o *Orchestrator) broadcast(room domain.RoomID, except core.SessionID, v any) {
	frame, ok := encode(v)
	if !ok {
		return
	}
	sent := 0
	for _, m := range o.Registry.MembersOfRoom(room) {
		if m.SID == except {
			continue
		}
		if o.deliver(m.Session, room, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "orch").Str("room", string(room)).Int("sent_to", sent).Msg("broadcast")
}

func (o *Orchestrator) deliver(sess core.Session, room domain.RoomID, frame core.Frame) bool {
	if sess.Signal == nil {
		return false
	}
	err := sess.Signal.TrySend(frame)
	if err == nil {
		return true
	}
	log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("send failed")
	if o.Policy == nil {
		return false
	}
	switch o.Policy.OnBackPressure(room, sess.ID) {
	case app.KickMember:
		o.disconnectLater(sess.ID, 0)
	case app.DropFrame, app.NoAction:
	}
	return false
}
