package orch

import (
	"fmt"

	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// StartVote opens a vote to remove target from the caller's room.
func (o *Orchestrator) StartVote(sid core.SessionID, target domain.ParticipantID) error {
	st, _, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	name, ok := st.Presence.Name(target)
	if !ok {
		return domain.ErrNotFound
	}
	tally, err := st.Vote.Start(target, name, func() { o.concludeVote(st) })
	if err != nil {
		return err
	}
	o.broadcast(st.ID, "", msgVoteStarted{Type: TypeVoteStarted, Tally: tally})
	return nil
}

// SubmitVote records the caller's ballot. Ballots that do not count are
// dropped without a reply.
func (o *Orchestrator) SubmitVote(sid core.SessionID, yes bool) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	tally, ok := st.Vote.Submit(pid, yes)
	if !ok {
		log.Debug().Str("module", "orch").Str("room", string(st.ID)).Str("participant", string(pid)).Msg("ballot ignored")
		return nil
	}
	o.broadcast(st.ID, "", msgVoteUpdated{Type: TypeVoteUpdated, TargetID: tally.TargetID, Yes: tally.Yes, No: tally.No})
	return nil
}

// concludeVote runs when the vote window closes.
func (o *Orchestrator) concludeVote(st *app.RoomState) {
	st.Lock()
	defer st.Unlock()

	out, ok := st.Vote.Conclude()
	if !ok {
		return
	}
	now := o.Clock.Now()
	o.broadcast(st.ID, "", msgType{Type: TypeVoteEnded})

	if !out.Removed {
		text := fmt.Sprintf("Vote failed. %s stays. (Yes: %d, No: %d)", out.TargetName, out.Yes, out.No)
		o.broadcast(st.ID, "", chatMessage(SystemUser, text, now))
		return
	}

	text := fmt.Sprintf("%s was removed by majority vote.", out.TargetName)
	o.broadcast(st.ID, "", chatMessage(SystemUser, text, now))
	o.broadcast(st.ID, "", msgParticipant{Type: TypeKickUser, ParticipantID: out.TargetID})

	sid, err := o.Registry.FindByParticipant(st.ID, out.TargetID)
	if err != nil {
		log.Warn().Str("module", "orch").Str("room", string(st.ID)).Str("participant", string(out.TargetID)).Msg("removed participant already gone")
		return
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	s := o.settings()
	until := o.Bans.Ban(sess.IP, s.BanDuration, now)
	log.Warn().Str("module", "orch").Str("room", string(st.ID)).Str("participant", string(out.TargetID)).
		Str("ip", sess.IP).Time("until", until).Msg("banned after vote")

	o.sendTo(sess, st.ID, ErrorMessage(domain.ErrKicked))
	o.disconnectLater(sid, s.KickGrace)
}
