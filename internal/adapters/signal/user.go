package signal

import (
	"errors"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(sid core.SessionID, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(sid, data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	ctl.reply(sid, ctl.Orch.Rename(sid, p.Name))
}

func (ctl *SignalWSController) handleAvatar(sid core.SessionID, data []byte) {
	var p struct {
		Style domain.AvatarStyle `json:"style"`
	}
	if !ctl.decode(sid, data, &p) {
		return
	}
	err := ctl.Orch.ChangeAvatar(sid, p.Style)
	if errors.Is(err, domain.ErrInvalidAvatar) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("invalid avatar ignored")
		return
	}
	ctl.reply(sid, err)
}
