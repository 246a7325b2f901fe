// Package domain holds the entities, limits and errors shared by every layer.
package domain

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	MaxParticipantIDLen = 64
	MaxDisplayNameLen   = 36
)

type ParticipantID string

var (
	AvatarSets        = []string{"set1", "set2", "set3", "set4", "set5"}
	AvatarBackgrounds = []string{"none", "bg1", "bg2"}
)

// AvatarStyle is the look of a participant's avatar tile.
type AvatarStyle struct {
	Set        string `json:"set"`
	Background string `json:"bg"`
}

func DefaultAvatar() AvatarStyle {
	return AvatarStyle{Set: "set1", Background: "bg1"}
}

func (s AvatarStyle) Valid() bool {
	return slices.Contains(AvatarSets, s.Set) && slices.Contains(AvatarBackgrounds, s.Background)
}

// Normalize replaces each unknown field with its default.
func (s AvatarStyle) Normalize() AvatarStyle {
	d := DefaultAvatar()
	if slices.Contains(AvatarSets, s.Set) {
		d.Set = s.Set
	}
	if slices.Contains(AvatarBackgrounds, s.Background) {
		d.Background = s.Background
	}
	return d
}

// CleanDisplayName trims the name and checks its bounds.
func CleanDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", ErrEmptyName
	}
	if len(name) > MaxDisplayNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// TruncateDisplayName trims the name and cuts it to MaxDisplayNameLen bytes
// without splitting a rune. Joins accept any nickname this way; renames go
// through CleanDisplayName.
func TruncateDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) <= MaxDisplayNameLen {
		return name
	}
	cut := MaxDisplayNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}
