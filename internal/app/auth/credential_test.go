package auth

import (
	"strings"
	"testing"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIterations = 1000

func TestHashPassword_RoundTrip(t *testing.T) {
	desc, err := HashPassword("hunter2", testIterations, KeyLength)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(desc, "pbkdf2$1000$"))

	h, err := ParseHash(desc, testIterations, KeyLength)
	require.NoError(t, err)
	assert.Len(t, h.Salt, DefaultSaltLength)
	assert.Equal(t, desc, h.String())
	assert.True(t, h.Verify("hunter2"))
	assert.False(t, h.Verify("hunter3"))
	assert.False(t, h.Verify(""))
}

func TestParseHash_Rejects(t *testing.T) {
	good, err := HashPassword("x", testIterations, KeyLength)
	require.NoError(t, err)
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"too few fields":  "pbkdf2$1000$abcd",
		"wrong algorithm": "bcrypt$" + strings.Join(parts[1:], "$"),
		"low iterations":  strings.Join([]string{parts[0], "999", parts[2], parts[3]}, "$"),
		"bad iterations":  strings.Join([]string{parts[0], "lots", parts[2], parts[3]}, "$"),
		"non-hex salt":    strings.Join([]string{parts[0], parts[1], "zz", parts[3]}, "$"),
		"non-hex hash":    strings.Join([]string{parts[0], parts[1], parts[2], "xyz0"}, "$"),
		"short hash":      strings.Join([]string{parts[0], parts[1], parts[2], parts[3][:62]}, "$"),
		"empty salt":      strings.Join([]string{parts[0], parts[1], "", parts[3]}, "$"),
		"odd length salt": strings.Join([]string{parts[0], parts[1], "abc", parts[3]}, "$"),
	}
	for name, desc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHash(desc, testIterations, KeyLength)
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		})
	}
}

func TestParseHash_DefaultMinimum(t *testing.T) {
	desc, err := HashPassword("x", testIterations, KeyLength)
	require.NoError(t, err)
	_, err = ParseHash(desc, MinIterations, KeyLength)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestEqualPlain(t *testing.T) {
	assert.True(t, EqualPlain("secret", "secret"))
	assert.False(t, EqualPlain("secret", "secreT"))
	assert.False(t, EqualPlain("secret", "secret!"))
	assert.False(t, EqualPlain("secret", ""))
}
