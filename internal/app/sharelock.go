package app

import "github.com/MarcMroz/open-voice-chat/internal/domain"

// ShareLock is the single-holder screen-share lock of one room.
type ShareLock struct {
	holder domain.ParticipantID
}

// Request grants the lock if it is free or already held by pid.
func (l *ShareLock) Request(pid domain.ParticipantID) bool {
	if l.holder != "" && l.holder != pid {
		return false
	}
	l.holder = pid
	return true
}

// Release frees the lock if pid holds it. A release by anyone else is a no-op.
func (l *ShareLock) Release(pid domain.ParticipantID) bool {
	if l.holder == "" || l.holder != pid {
		return false
	}
	l.holder = ""
	return true
}

func (l *ShareLock) Holder() (domain.ParticipantID, bool) {
	return l.holder, l.holder != ""
}
