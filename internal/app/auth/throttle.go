package auth

import (
	"sync"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts      = 5
	DefaultBlockWindow      = 5 * time.Minute
	DefaultFailureRetention = 24 * time.Hour
)

type ThrottleConfig struct {
	MaxAttempts int
	BlockWindow time.Duration
	Retention   time.Duration
}

type failureState struct {
	count        int
	inflight     int
	blockedUntil time.Time
	lastAttempt  time.Time
}

// Throttle counts failed password attempts per room and source ip and blocks
// the pair for BlockWindow once MaxAttempts is reached.
type Throttle struct {
	mu    sync.Mutex
	cfg   ThrottleConfig
	rooms map[domain.RoomID]map[string]*failureState
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BlockWindow <= 0 {
		cfg.BlockWindow = DefaultBlockWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultFailureRetention
	}
	return &Throttle{cfg: cfg, rooms: make(map[domain.RoomID]map[string]*failureState)}
}

// Check reserves an attempt slot for the pair and reports the remaining block
// time, if any. Attempts still being verified count against MaxAttempts, so
// concurrent guesses cannot outrun the block. A granted slot must be settled
// with Fail, Succeed or Release. Stale entries of the room are purged on the way.
func (t *Throttle) Check(room domain.RoomID, ip string, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(room, ip, now)
	st.lastAttempt = now
	if now.Before(st.blockedUntil) {
		return st.blockedUntil.Sub(now), true
	}
	if st.count+st.inflight >= t.cfg.MaxAttempts {
		return 0, true
	}
	st.inflight++
	return 0, false
}

// Release returns a slot whose attempt was abandoned before a verdict.
func (t *Throttle) Release(room domain.RoomID, ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.rooms[room][ip]; ok {
		st.settle()
	}
}

func (st *failureState) settle() {
	if st.inflight > 0 {
		st.inflight--
	}
}

// Fail counts one failure and starts a block when the threshold is reached.
func (t *Throttle) Fail(room domain.RoomID, ip string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(room, ip, now)
	st.settle()
	st.lastAttempt = now
	st.count++
	if st.count >= t.cfg.MaxAttempts {
		st.blockedUntil = now.Add(t.cfg.BlockWindow)
		st.count = 0
		log.Warn().Str("module", "auth.throttle").Str("room", string(room)).Str("ip", ip).
			Time("until", st.blockedUntil).Msg("password attempts blocked")
	}
}

func (t *Throttle) Succeed(room domain.RoomID, ip string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(room, ip, now)
	st.settle()
	st.lastAttempt = now
	st.count = 0
	st.blockedUntil = time.Time{}
}

// Failures returns the current failure count, for diagnostics and tests.
func (t *Throttle) Failures(room domain.RoomID, ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.rooms[room][ip]; ok {
		return st.count
	}
	return 0
}

func (t *Throttle) state(room domain.RoomID, ip string, now time.Time) *failureState {
	byIP, ok := t.rooms[room]
	if !ok {
		byIP = make(map[string]*failureState)
		t.rooms[room] = byIP
	}
	for k, st := range byIP {
		if st.inflight == 0 && now.Sub(st.lastAttempt) > t.cfg.Retention && !now.Before(st.blockedUntil) {
			delete(byIP, k)
		}
	}
	st, ok := byIP[ip]
	if !ok {
		st = &failureState{lastAttempt: now}
		byIP[ip] = st
	}
	return st
}
