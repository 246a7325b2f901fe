package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownError_Is(t *testing.T) {
	err := fmt.Errorf("start vote: %w", &CooldownError{Remaining: 1500 * time.Millisecond})
	assert.ErrorIs(t, err, ErrVoteCooldown)
	assert.Equal(t, "VOTE_COOLDOWN", Code(err))
	assert.Contains(t, err.Error(), "2s")
}

func TestBannedError_RoundsMinutesUp(t *testing.T) {
	err := &BannedError{Remaining: 61 * time.Second}
	assert.True(t, errors.Is(err, ErrBanned))
	assert.Contains(t, err.Error(), "2 minute")
}

func TestCode(t *testing.T) {
	cases := map[error]string{
		ErrInvalidPassword: "INVALID_PASSWORD",
		ErrRateLimited:     "RATE_LIMITED",
		ErrRoomNotFound:    "ROOM_NOT_FOUND",
		ErrVoteActive:      "VOTE_ACTIVE",
		ErrEmptyName:       "INVALID_NAME",
		errors.New("boom"): "INTERNAL",
	}
	for err, code := range cases {
		assert.Equal(t, code, Code(err), err.Error())
	}
}

func TestAvatarStyle_Normalize(t *testing.T) {
	assert.Equal(t, AvatarStyle{Set: "set3", Background: "none"}, AvatarStyle{Set: "set3", Background: "none"}.Normalize())
	assert.Equal(t, DefaultAvatar(), AvatarStyle{Set: "set9", Background: "pink"}.Normalize())
	assert.Equal(t, AvatarStyle{Set: "set2", Background: "bg1"}, AvatarStyle{Set: "set2"}.Normalize())
	assert.False(t, AvatarStyle{Set: "set2"}.Valid())
	assert.True(t, AvatarStyle{Set: "set5", Background: "bg2"}.Valid())
}

func TestCleanDisplayName(t *testing.T) {
	name, err := CleanDisplayName("  Guest ")
	assert.NoError(t, err)
	assert.Equal(t, "Guest", name)

	_, err = CleanDisplayName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = CleanDisplayName(string(make([]byte, MaxDisplayNameLen+1)))
	assert.Error(t, err)
}

func TestTruncateDisplayName(t *testing.T) {
	assert.Equal(t, "Guest", TruncateDisplayName("  Guest "))
	assert.Empty(t, TruncateDisplayName("   "))

	long := strings.Repeat("a", 50)
	assert.Equal(t, long[:MaxDisplayNameLen], TruncateDisplayName(long))

	// The cut backs off to the start of a multi-byte rune.
	accented := strings.Repeat("a", MaxDisplayNameLen-1) + "é"
	assert.Equal(t, strings.Repeat("a", MaxDisplayNameLen-1), TruncateDisplayName(accented))
}

func TestRoom_Info(t *testing.T) {
	assert.False(t, DefaultRoom().Info().IsLocked)
	assert.True(t, Room{ID: "a", PasswordHash: "pbkdf2$1$00$00"}.Info().IsLocked)
	assert.True(t, Room{ID: "b", Password: "x"}.Locked())
}
