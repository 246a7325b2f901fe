package signal

import (
	"context"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type candidatePayload struct {
	Type          string  `json:"type"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

func (ctl *SignalWSController) sendCandidate(sid core.SessionID, ci webrtc.ICECandidateInit) {
	ctl.sendJSON(sid, candidatePayload{
		Type:          "candidate",
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

// handleOffer answers a client offer. The first offer opens the session's
// peer connection; later ones renegotiate it.
func (ctl *SignalWSController) handleOffer(ctx context.Context, sid core.SessionID, data []byte) {
	var p sdpPayload
	if !ctl.decode(sid, data, &p) {
		return
	}

	if mc, ok := ctl.Orch.Registry.Media(sid); ok && !mc.IsClosed() {
		answer, err := ctl.Orch.AnswerOffer(sid, mc, p.SDP)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("webrtc renegotiate")
			return
		}
		ctl.sendJSON(sid, sdpPayload{Type: "answer", SDP: answer})
		return
	}

	mc, err := ctl.NewMedia(sid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("webrtc new pc")
		return
	}
	mc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		ctl.sendCandidate(sid, ci)
	})
	ctl.Orch.BindMediaHandlers(mc, sid)

	if err := mc.Start(ctx); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("webrtc start")
		mc.Close()
		return
	}
	if err := ctl.Orch.AttachMedia(sid, mc); err != nil {
		mc.Close()
		ctl.reply(sid, err)
		return
	}

	answer, err := ctl.Orch.AnswerOffer(sid, mc, p.SDP)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("webrtc apply offer")
		mc.Close()
		return
	}
	ctl.sendJSON(sid, sdpPayload{Type: "answer", SDP: answer})
	ctl.Orch.OnMediaReady(sid)
}

func (ctl *SignalWSController) handleAnswer(sid core.SessionID, data []byte) {
	var p sdpPayload
	if !ctl.decode(sid, data, &p) {
		return
	}
	if err := ctl.Orch.ApplyAnswer(sid, p.SDP); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("webrtc apply answer")
	}
}

func (ctl *SignalWSController) handleCandidate(sid core.SessionID, data []byte) {
	var p candidatePayload
	if !ctl.decode(sid, data, &p) {
		return
	}
	cand := webrtc.ICECandidateInit{
		Candidate:     p.Candidate,
		SDPMid:        p.SDPMid,
		SDPMLineIndex: p.SDPMLineIndex,
	}
	if err := ctl.Orch.AddCandidate(sid, cand); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("add ice candidate")
	}
}
