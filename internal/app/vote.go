package app

import (
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultVoteWindow   = 30 * time.Second
	DefaultVoteCooldown = 60 * time.Second
)

// Tally is the public state of a vote.
type Tally struct {
	TargetID   domain.ParticipantID `json:"targetId"`
	TargetName string               `json:"targetName"`
	Yes        int                  `json:"yes"`
	No         int                  `json:"no"`
}

// Outcome is the result of a concluded vote.
type Outcome struct {
	Tally
	Removed bool
}

type vote struct {
	tally  Tally
	voters map[domain.ParticipantID]struct{}
	active bool
	ends   time.Time
}

// VoteCoordinator runs the vote-to-remove state machine of one room:
// Idle -> Active on Start, Active -> Idle when the deadline fires. A cooldown
// recorded at conclusion blocks the next Start. Callers serialize access.
type VoteCoordinator struct {
	clock    core.Clock
	window   time.Duration
	cooldown time.Duration

	current       *vote
	cooldownUntil time.Time
	timer         core.Timer
}

func NewVoteCoordinator(clock core.Clock, window, cooldown time.Duration) *VoteCoordinator {
	if window <= 0 {
		window = DefaultVoteWindow
	}
	if cooldown < 0 {
		cooldown = DefaultVoteCooldown
	}
	return &VoteCoordinator{clock: clock, window: window, cooldown: cooldown}
}

// Start opens a vote against target. The target is counted as one "no".
// onDeadline fires once after the window; it must re-enter the room's
// serialized path and call Conclude.
func (v *VoteCoordinator) Start(target domain.ParticipantID, targetName string, onDeadline func()) (Tally, error) {
	now := v.clock.Now()
	if now.Before(v.cooldownUntil) {
		return Tally{}, &domain.CooldownError{Remaining: v.cooldownUntil.Sub(now)}
	}
	if v.current != nil && v.current.active {
		return Tally{}, domain.ErrVoteActive
	}
	v.current = &vote{
		tally:  Tally{TargetID: target, TargetName: targetName, Yes: 0, No: 1},
		voters: make(map[domain.ParticipantID]struct{}),
		active: true,
		ends:   now.Add(v.window),
	}
	v.timer = v.clock.AfterFunc(v.window, onDeadline)
	log.Info().Str("module", "app.vote").Str("target", string(target)).Dur("window", v.window).Msg("vote started")
	return v.current.tally, nil
}

// Submit records one ballot. It reports false, changing nothing, when no vote
// is active, the voter is the target, or the voter already voted.
func (v *VoteCoordinator) Submit(voter domain.ParticipantID, yes bool) (Tally, bool) {
	cur := v.current
	if cur == nil || !cur.active || voter == cur.tally.TargetID {
		return Tally{}, false
	}
	if _, dup := cur.voters[voter]; dup {
		return Tally{}, false
	}
	cur.voters[voter] = struct{}{}
	if yes {
		cur.tally.Yes++
	} else {
		cur.tally.No++
	}
	return cur.tally, true
}

// Conclude ends the active vote, starts the cooldown and deletes the vote.
// Removal happens only on a strict majority of yes over no.
func (v *VoteCoordinator) Conclude() (Outcome, bool) {
	cur := v.current
	if cur == nil || !cur.active {
		return Outcome{}, false
	}
	cur.active = false
	v.cooldownUntil = v.clock.Now().Add(v.cooldown)
	v.current = nil
	v.timer = nil
	out := Outcome{Tally: cur.tally, Removed: cur.tally.Yes > cur.tally.No}
	log.Info().Str("module", "app.vote").
		Str("target", string(out.TargetID)).
		Int("yes", out.Yes).Int("no", out.No).
		Bool("removed", out.Removed).
		Msg("vote concluded")
	return out, true
}

// Current returns the tally of the active vote.
func (v *VoteCoordinator) Current() (Tally, bool) {
	if v.current == nil || !v.current.active {
		return Tally{}, false
	}
	return v.current.tally, true
}

// Ballots is the number of participants who voted, excluding the target.
func (v *VoteCoordinator) Ballots() int {
	if v.current == nil {
		return 0
	}
	return len(v.current.voters)
}

func (v *VoteCoordinator) CooldownRemaining() time.Duration {
	now := v.clock.Now()
	if !now.Before(v.cooldownUntil) {
		return 0
	}
	return v.cooldownUntil.Sub(now)
}

// Abort stops the deadline timer and drops the vote without an outcome.
// Used only when the room itself is discarded.
func (v *VoteCoordinator) Abort() {
	if v.timer != nil {
		v.timer.Stop()
	}
	v.current = nil
	v.timer = nil
}
