package orch

import (
	"context"

	"github.com/MarcMroz/open-voice-chat/internal/app/sfu"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// AttachMedia makes mc the session's media connection. A connection it
// replaces is closed.
func (o *Orchestrator) AttachMedia(sid core.SessionID, mc core.MediaConnection) error {
	if _, _, ok := o.Registry.RoomOf(sid); !ok {
		return domain.ErrNotJoined
	}
	old, ok := o.Registry.SetMedia(sid, mc)
	if !ok {
		return domain.ErrNotFound
	}
	if old != nil && old != mc {
		if o.Relays != nil {
			o.Relays.StopSession(sid)
		}
		old.Close()
	}
	return nil
}

func (o *Orchestrator) BindMediaHandlers(mc core.MediaConnection, sid core.SessionID) {
	mc.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		o.OnTrack(trackCtx, sid, track)
	})
	mc.OnClosed(func() { o.OnMediaDisconnect(sid, mc) })
}

// OnMediaDisconnect cleans up after a closed peer connection. Callbacks from
// a connection that has since been replaced are ignored.
func (o *Orchestrator) OnMediaDisconnect(sid core.SessionID, mc core.MediaConnection) {
	cur, ok := o.Registry.Media(sid)
	if !ok || cur != mc {
		return
	}
	room, _, _ := o.Registry.RoomOf(sid)
	o.cleanupMedia(sid, room)
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID, room domain.RoomID) {
	if o.Relays != nil {
		o.Relays.StopSession(sid)
		if room != "" {
			for _, m := range o.Registry.MembersOfRoom(room) {
				o.Relays.Unsubscribe(m.SID, sid)
			}
		}
	}
	if mc, ok := o.Registry.TakeMedia(sid); ok {
		mc.Close()
	}
}

// OnTrack is called when a new remote track appears for a session. Audio is
// relayed to the room; video only while the sender holds the screen share.
func (o *Orchestrator) OnTrack(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) {
	if o.Relays == nil {
		return
	}
	if _, ok := o.Registry.Media(sid); !ok {
		return
	}
	room, pid, ok := o.Registry.RoomOf(sid)
	if !ok {
		log.Info().Str("module", "sfu").Str("sid", string(sid)).Msg("OnTrack: no room for sid")
		return
	}
	if track.Kind() == webrtc.RTPCodecTypeVideo && !o.holdsShare(room, pid) {
		log.Warn().Str("module", "sfu").Str("sid", string(sid)).Msg("video track without share lock, not relayed")
		return
	}

	key := sfu.Key{SID: sid, Kind: track.Kind()}
	o.Relays.StartRelay(ctx, key, track)

	for _, m := range o.Registry.MembersOfRoom(room) {
		if m.SID == sid {
			continue
		}
		mc, ok := o.Registry.Media(m.SID)
		if !ok {
			continue
		}
		if err := o.Relays.Subscribe(key, m.SID, mc); err != nil {
			log.Error().Err(err).Str("module", "sfu").Str("src", string(sid)).Str("dst", string(m.SID)).Msg("subscribe")
			continue
		}
		o.renegotiate(m.SID, room, mc)
	}
}

// OnMediaReady subscribes a freshly negotiated session to every relay
// already running in its room.
func (o *Orchestrator) OnMediaReady(sid core.SessionID) {
	if o.Relays == nil {
		return
	}
	room, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	mc, ok := o.Registry.Media(sid)
	if !ok {
		return
	}

	added := 0
	for _, m := range o.Registry.MembersOfRoom(room) {
		if m.SID == sid {
			continue
		}
		for _, key := range o.Relays.Sources(m.SID) {
			if err := o.Relays.Subscribe(key, sid, mc); err != nil {
				log.Error().Err(err).Str("module", "sfu").Str("src", string(m.SID)).Str("dst", string(sid)).Msg("subscribe")
				continue
			}
			added++
		}
	}
	if added > 0 {
		o.renegotiate(sid, room, mc)
	}
}

// AnswerOffer applies a client offer on the session's media connection.
func (o *Orchestrator) AnswerOffer(sid core.SessionID, mc core.MediaConnection, sdp string) (string, error) {
	answer, err := mc.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
	if err != nil {
		return "", err
	}
	return answer.SDP, nil
}

// ApplyAnswer completes a server-initiated renegotiation.
func (o *Orchestrator) ApplyAnswer(sid core.SessionID, sdp string) error {
	mc, ok := o.Registry.Media(sid)
	if !ok {
		return domain.ErrNotFound
	}
	return mc.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

// AddCandidate applies a remote ICE candidate.
func (o *Orchestrator) AddCandidate(sid core.SessionID, cand webrtc.ICECandidateInit) error {
	mc, ok := o.Registry.Media(sid)
	if !ok {
		return domain.ErrNotFound
	}
	return mc.AddICECandidate(cand)
}

func (o *Orchestrator) renegotiate(sid core.SessionID, room domain.RoomID, mc core.MediaConnection) {
	offer, err := mc.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "sfu").Str("sid", string(sid)).Msg("create offer")
		return
	}
	o.send(sid, room, msgSDP{Type: TypeOffer, SDP: offer.SDP})
}

func (o *Orchestrator) holdsShare(room domain.RoomID, pid domain.ParticipantID) bool {
	st, ok := o.Rooms.State(room)
	if !ok {
		return false
	}
	st.Lock()
	defer st.Unlock()
	holder, ok := st.Share.Holder()
	return ok && holder == pid
}
