package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.settings.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.settings.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.OnDisconnect(sid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(sid)
		}
	}()

	pongWait := ctl.settings.pongWait()
	c.conn.SetReadLimit(ctl.settings.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(ctx, sid, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.reply(sid, domain.ErrBadPayload)
		return
	}

	switch env.Type {
	case "join-room":
		ctl.handleJoin(ctx, sid, data)
	case "leave-room":
		ctl.reply(sid, ctl.Orch.Leave(sid))
	case "rename-user":
		ctl.handleRename(sid, data)
	case "avatar-changed":
		ctl.handleAvatar(sid, data)
	case "whoami":
		ctl.Orch.WhoAmI(sid)
	case "ping":
		ctl.handlePing(sid)
	case "request-share":
		ctl.reply(sid, ctl.Orch.RequestShare(sid))
	case "stop-share":
		ctl.reply(sid, ctl.Orch.StopShare(sid))
	case "start-vote":
		ctl.handleStartVote(sid, data)
	case "submit-vote":
		ctl.handleSubmitVote(sid, data)
	case "chat-message":
		ctl.handleChat(sid, data)
	case "play-reaction":
		ctl.handleReaction(sid, data)
	case "offer":
		ctl.handleOffer(ctx, sid, data)
	case "answer":
		ctl.handleAnswer(sid, data)
	case "candidate":
		ctl.handleCandidate(sid, data)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
}

// decode unmarshals a payload and reports a malformed one to the sender.
func (ctl *SignalWSController) decode(sid core.SessionID, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad payload")
		ctl.reply(sid, domain.ErrBadPayload)
		return false
	}
	return true
}

func (ctl *SignalWSController) reply(sid core.SessionID, err error) {
	if err != nil {
		ctl.Orch.SendError(sid, err)
	}
}

func (ctl *SignalWSController) sendJSON(sid core.SessionID, v any) {
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := sess.Signal.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("sendJSON")
	}
}
