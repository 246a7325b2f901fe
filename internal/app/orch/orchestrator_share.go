package orch

import (
	"github.com/MarcMroz/open-voice-chat/internal/app/sfu"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// RequestShare grants the room's screen share to the caller unless someone
// else holds it. The current holder asking again is approved again.
func (o *Orchestrator) RequestShare(sid core.SessionID) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	if !st.Share.Request(pid) {
		holder, _ := st.Share.Holder()
		log.Info().Str("module", "orch").Str("room", string(st.ID)).Str("participant", string(pid)).Str("holder", string(holder)).Msg("share denied")
		o.send(sid, st.ID, msgType{Type: TypeShareDenied})
		return nil
	}
	o.send(sid, st.ID, msgType{Type: TypeShareApproved})
	o.broadcast(st.ID, "", msgParticipant{Type: TypeShareStarted, ParticipantID: pid})
	return nil
}

// StopShare releases the share lock. Only the holder's first call has an
// effect; any other call is a silent no-op.
func (o *Orchestrator) StopShare(sid core.SessionID) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	released := st.Share.Release(pid)
	if released {
		o.broadcast(st.ID, "", msgType{Type: TypeShareEnded})
	}
	st.Unlock()

	if released {
		o.stopShareRelay(sid)
	}
	return nil
}

func (o *Orchestrator) stopShareRelay(sid core.SessionID) {
	if o.Relays == nil {
		return
	}
	if o.Relays.StopRelay(sfu.Key{SID: sid, Kind: webrtc.RTPCodecTypeVideo}) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("stopped screen relay")
	}
}
