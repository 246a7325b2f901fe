package orch

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event types.
const (
	TypeExistingUsers     = "existing-users"
	TypeExistingAvatars   = "existing-users-avatars"
	TypeJoinedRoom        = "joined-room"
	TypeUserConnected     = "user-connected"
	TypeUserDisconnected  = "user-disconnected"
	TypeUserRenamed       = "user-renamed"
	TypeUserAvatarChanged = "user-avatar-changed"
	TypeShareApproved     = "share-approved"
	TypeShareDenied       = "share-denied"
	TypeShareStarted      = "share-started"
	TypeShareEnded        = "share-ended"
	TypeVoteStarted       = "vote-started"
	TypeVoteUpdated       = "vote-updated"
	TypeVoteEnded         = "vote-ended"
	TypeKickUser          = "kick-user"
	TypeChatMessage       = "chat-message"
	TypeReactionPlayed    = "reaction-played"
	TypeLeftRoom          = "left-room"
	TypeWhoAmI            = "whoami"
	TypeOffer             = "offer"
	TypeError             = "error"
)

// SystemUser authors chat notices emitted by the server.
const SystemUser = "System"

type msgType struct {
	Type string `json:"type"`
}

type msgError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type msgExistingUsers struct {
	Type  string                          `json:"type"`
	Users map[domain.ParticipantID]string `json:"users"`
}

type msgExistingAvatars struct {
	Type    string                                      `json:"type"`
	Avatars map[domain.ParticipantID]domain.AvatarStyle `json:"avatars"`
}

type msgJoined struct {
	Type        string        `json:"type"`
	RoomID      domain.RoomID `json:"roomId"`
	DisplayName string        `json:"displayName"`
}

type msgParticipant struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	DisplayName   string               `json:"displayName,omitempty"`
}

type msgAvatar struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	AvatarStyle   domain.AvatarStyle   `json:"avatarStyle"`
	DisplayName   string               `json:"displayName,omitempty"`
}

type msgVoteStarted struct {
	Type string `json:"type"`
	app.Tally
}

type msgVoteUpdated struct {
	Type     string               `json:"type"`
	TargetID domain.ParticipantID `json:"targetId"`
	Yes      int                  `json:"yes"`
	No       int                  `json:"no"`
}

type msgChat struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
}

type msgReaction struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	URL       string `json:"url"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
}

type msgWhoAmI struct {
	Type          string               `json:"type"`
	SessionID     core.SessionID       `json:"sessionId"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	DisplayName   string               `json:"displayName,omitempty"`
}

type msgSDP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ErrorMessage is the payload sent to a single session when its request fails.
func ErrorMessage(err error) any {
	return msgError{Type: TypeError, Code: domain.Code(err), Message: err.Error()}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func chatMessage(user, text string, now time.Time) msgChat {
	return msgChat{
		Type:      TypeChatMessage,
		User:      user,
		Text:      htmlEscaper.Replace(text),
		Time:      now.Format("15:04"),
		Timestamp: now.UnixMilli(),
	}
}

func encode(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound message")
		return nil, false
	}
	return b, true
}
