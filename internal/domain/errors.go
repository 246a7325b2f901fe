package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidPassword   = errors.New("invalid password")
	ErrRateLimited       = errors.New("too many failed attempts")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateSession  = errors.New("session already joined a room")
	ErrParticipantTaken  = errors.New("participant already present in room")
	ErrNotJoined         = errors.New("session has not joined a room")
	ErrVoteActive        = errors.New("a vote is already in progress")
	ErrVoteCooldown      = errors.New("vote cooldown in effect")
	ErrInvalidAvatar     = errors.New("invalid avatar style")
	ErrEmptyName         = errors.New("name empty")
	ErrNameTooLong       = errors.New("name too long")
	ErrBanned            = errors.New("banned")
	ErrInvalidCredential = errors.New("invalid credential descriptor")
	ErrBadPayload        = errors.New("bad payload")
	ErrKicked            = errors.New("removed from the room by vote")
)

// CooldownError reports how long until a new vote may start.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wait %ds before starting a new vote", ceilUnit(e.Remaining, time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrVoteCooldown }

// BannedError reports how long until a banned address may reconnect.
type BannedError struct {
	Remaining time.Duration
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("you were removed from this room, try again in %d minute(s)", ceilUnit(e.Remaining, time.Minute))
}

func (e *BannedError) Is(target error) bool { return target == ErrBanned }

// Code maps an error to the code sent to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPassword):
		return "INVALID_PASSWORD"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrDuplicateSession):
		return "ALREADY_JOINED"
	case errors.Is(err, ErrParticipantTaken):
		return "PARTICIPANT_TAKEN"
	case errors.Is(err, ErrNotJoined):
		return "NOT_JOINED"
	case errors.Is(err, ErrVoteActive):
		return "VOTE_ACTIVE"
	case errors.Is(err, ErrVoteCooldown):
		return "VOTE_COOLDOWN"
	case errors.Is(err, ErrInvalidAvatar):
		return "INVALID_AVATAR"
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrNameTooLong):
		return "INVALID_NAME"
	case errors.Is(err, ErrBanned):
		return "BANNED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrBadPayload):
		return "BAD_PAYLOAD"
	case errors.Is(err, ErrKicked):
		return "KICKED"
	default:
		return "INTERNAL"
	}
}

func ceilUnit(d, unit time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(d) / float64(unit)))
}
