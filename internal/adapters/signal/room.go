package signal

import (
	"context"

	"github.com/MarcMroz/open-voice-chat/internal/app/orch"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, data []byte) {
	var p struct {
		RoomID        domain.RoomID        `json:"roomId"`
		ParticipantID domain.ParticipantID `json:"participantId"`
		DisplayName   string               `json:"displayName"`
		Password      string               `json:"password"`
		AvatarStyle   domain.AvatarStyle   `json:"avatarStyle"`
	}
	if !ctl.decode(sid, data, &p) {
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.RoomID)).Msg("join")
	err := ctl.Orch.Join(ctx, sid, orch.JoinRequest{
		RoomID:        p.RoomID,
		ParticipantID: p.ParticipantID,
		DisplayName:   p.DisplayName,
		Password:      p.Password,
		Avatar:        p.AvatarStyle,
	})
	ctl.reply(sid, err)
}
