package app

import (
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a session whose outbound queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, sid core.SessionID) BackpressureAction
}

// SimplePolicy disconnects every slow consumer.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, core.SessionID) BackpressureAction {
	return KickMember
}
