package core

import "time"

// Timer is a scheduled callback. Stop reports whether the call was prevented.
type Timer interface {
	Stop() bool
}

// Clock is the time source for every deadline the coordinator keeps:
// vote windows, cooldowns, bans, auth blocks and delayed disconnects.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
