package signal

import (
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
)

func (ctl *SignalWSController) handlePing(sid core.SessionID) {
	ctl.sendJSON(sid, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *SignalWSController) handleStartVote(sid core.SessionID, data []byte) {
	var p struct {
		TargetID domain.ParticipantID `json:"targetId"`
	}
	if !ctl.decode(sid, data, &p) {
		return
	}
	ctl.reply(sid, ctl.Orch.StartVote(sid, p.TargetID))
}

func (ctl *SignalWSController) handleSubmitVote(sid core.SessionID, data []byte) {
	var p struct {
		Vote bool `json:"vote"`
	}
	if !ctl.decode(sid, data, &p) {
		return
	}
	ctl.reply(sid, ctl.Orch.SubmitVote(sid, p.Vote))
}

func (ctl *SignalWSController) handleChat(sid core.SessionID, data []byte) {
	var p struct {
		Text string `json:"text"`
	}
	if !ctl.decode(sid, data, &p) || p.Text == "" {
		return
	}
	if !ctl.allow(sid) {
		return
	}
	ctl.reply(sid, ctl.Orch.Chat(sid, p.Text))
}

func (ctl *SignalWSController) handleReaction(sid core.SessionID, data []byte) {
	var p struct {
		URL string `json:"url"`
	}
	if !ctl.decode(sid, data, &p) || p.URL == "" {
		return
	}
	if !ctl.allow(sid) {
		return
	}
	ctl.reply(sid, ctl.Orch.Reaction(sid, p.URL))
}

func (ctl *SignalWSController) allow(sid core.SessionID) bool {
	if ctl.Limiter == nil || ctl.Limiter.Allow(sid) {
		return true
	}
	ctl.reply(sid, domain.ErrRateLimited)
	return false
}
