package app

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suffixed = regexp.MustCompile(`^Guest_\d+$`)

func TestPresence_AddCollisionGetsSuffix(t *testing.T) {
	p := NewPresence()

	a, _ := p.Add("A", "Guest", domain.DefaultAvatar())
	b, _ := p.Add("B", "Guest", domain.DefaultAvatar())

	assert.Equal(t, "Guest", a)
	assert.Regexp(t, suffixed, b)
	name, _ := p.Name("A")
	assert.Equal(t, "Guest", name)
}

func TestPresence_SuffixRetriesUntilFree(t *testing.T) {
	p := NewPresence()
	rolls := []int{7, 7, 12}
	p.intn = func(n int) int {
		assert.Equal(t, nameSuffixRange, n)
		r := rolls[0]
		rolls = rolls[1:]
		return r
	}

	p.Add("A", "Guest", domain.DefaultAvatar())
	p.Add("B", "Guest", domain.DefaultAvatar())
	c, _ := p.Add("C", "Guest", domain.DefaultAvatar())

	assert.Equal(t, "Guest_12", c)
}

func TestPresence_SuffixFallsBackWhenRandomExhausted(t *testing.T) {
	p := NewPresence()
	p.intn = func(int) int { return 0 }

	p.Add("A", "Guest", domain.DefaultAvatar())
	p.Add("B", "Guest", domain.DefaultAvatar())
	c, _ := p.Add("C", "Guest", domain.DefaultAvatar())

	assert.Equal(t, "Guest_999", c)
}

func TestPresence_RenameExcludesSelf(t *testing.T) {
	p := NewPresence()
	p.Add("A", "Alice", domain.DefaultAvatar())
	p.Add("B", "Bob", domain.DefaultAvatar())

	got, err := p.Rename("A", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)

	got, err = p.Rename("A", " Bob ")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Bob_\d+$`), got)
}

func TestPresence_RenameRejects(t *testing.T) {
	p := NewPresence()
	p.Add("A", "Alice", domain.DefaultAvatar())

	_, err := p.Rename("A", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = p.Rename("Z", "Zed")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPresence_NamesStayUnique(t *testing.T) {
	p := NewPresence()
	for i := 0; i < 50; i++ {
		p.Add(domain.ParticipantID(fmt.Sprintf("p%d", i)), "Guest", domain.DefaultAvatar())
	}
	p.Rename("p0", "Guest")
	p.Rename("p1", "Guest")
	seen := map[string]bool{}
	for _, n := range p.Names() {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
	assert.Equal(t, 50, p.Len())
}

func TestPresence_Avatar(t *testing.T) {
	p := NewPresence()
	_, style := p.Add("A", "Alice", domain.AvatarStyle{Set: "nope", Background: "bg2"})
	assert.Equal(t, domain.AvatarStyle{Set: "set1", Background: "bg2"}, style)

	_, err := p.SetAvatar("A", domain.AvatarStyle{Set: "set4", Background: "bg9"})
	assert.ErrorIs(t, err, domain.ErrInvalidAvatar)
	cur, _ := p.Avatar("A")
	assert.Equal(t, style, cur)

	got, err := p.SetAvatar("A", domain.AvatarStyle{Set: "set4", Background: "none"})
	require.NoError(t, err)
	assert.Equal(t, domain.AvatarStyle{Set: "set4", Background: "none"}, got)
}

func TestPresence_Remove(t *testing.T) {
	p := NewPresence()
	p.Add("A", "Alice", domain.DefaultAvatar())

	assert.True(t, p.Remove("A"))
	assert.False(t, p.Remove("A"))
	assert.False(t, p.Has("A"))
	_, ok := p.Avatar("A")
	assert.False(t, ok)
}
