package app

import (
	"fmt"
	"maps"
	"math/rand"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
)

const (
	nameSuffixRange   = 999
	maxRandomSuffixes = 1000
)

// Presence holds the display metadata of everyone currently in one room.
// It is not safe for concurrent use; the owning RoomState serializes access.
type Presence struct {
	names   map[domain.ParticipantID]string
	avatars map[domain.ParticipantID]domain.AvatarStyle
	intn    func(n int) int
}

func NewPresence() *Presence {
	return &Presence{
		names:   make(map[domain.ParticipantID]string),
		avatars: make(map[domain.ParticipantID]domain.AvatarStyle),
		intn:    rand.Intn,
	}
}

// Add records a participant under a room-unique variant of name. An invalid
// avatar style is replaced by the default.
func (p *Presence) Add(pid domain.ParticipantID, name string, style domain.AvatarStyle) (string, domain.AvatarStyle) {
	final := p.AssignUniqueName(name, pid)
	style = style.Normalize()
	p.names[pid] = final
	p.avatars[pid] = style
	return final, style
}

// Rename changes the display name of a present participant.
func (p *Presence) Rename(pid domain.ParticipantID, name string) (string, error) {
	if _, ok := p.names[pid]; !ok {
		return "", domain.ErrNotFound
	}
	clean, err := domain.CleanDisplayName(name)
	if err != nil {
		return "", err
	}
	final := p.AssignUniqueName(clean, pid)
	p.names[pid] = final
	return final, nil
}

func (p *Presence) SetAvatar(pid domain.ParticipantID, style domain.AvatarStyle) (domain.AvatarStyle, error) {
	if _, ok := p.names[pid]; !ok {
		return domain.AvatarStyle{}, domain.ErrNotFound
	}
	if !style.Valid() {
		return domain.AvatarStyle{}, domain.ErrInvalidAvatar
	}
	style = domain.AvatarStyle{Set: style.Set, Background: style.Background}
	p.avatars[pid] = style
	return style, nil
}

func (p *Presence) Remove(pid domain.ParticipantID) bool {
	if _, ok := p.names[pid]; !ok {
		return false
	}
	delete(p.names, pid)
	delete(p.avatars, pid)
	return true
}

// AssignUniqueName returns requested, or requested with a random "_n" suffix
// if another participant (not exclude) already uses it.
func (p *Presence) AssignUniqueName(requested string, exclude domain.ParticipantID) string {
	name := requested
	for i := 0; p.nameTaken(name, exclude); i++ {
		if i < maxRandomSuffixes {
			name = fmt.Sprintf("%s_%d", requested, p.intn(nameSuffixRange))
			continue
		}
		name = fmt.Sprintf("%s_%d", requested, nameSuffixRange+i-maxRandomSuffixes)
	}
	return name
}

func (p *Presence) nameTaken(name string, exclude domain.ParticipantID) bool {
	for pid, n := range p.names {
		if pid != exclude && n == name {
			return true
		}
	}
	return false
}

func (p *Presence) Name(pid domain.ParticipantID) (string, bool) {
	n, ok := p.names[pid]
	return n, ok
}

func (p *Presence) Avatar(pid domain.ParticipantID) (domain.AvatarStyle, bool) {
	s, ok := p.avatars[pid]
	return s, ok
}

func (p *Presence) Has(pid domain.ParticipantID) bool {
	_, ok := p.names[pid]
	return ok
}

func (p *Presence) Len() int { return len(p.names) }

func (p *Presence) Names() map[domain.ParticipantID]string {
	return maps.Clone(p.names)
}

func (p *Presence) Avatars() map[domain.ParticipantID]domain.AvatarStyle {
	return maps.Clone(p.avatars)
}
