package auth

import (
	"context"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Throttle      ThrottleConfig
	MinIterations int
	KeyLength     int
	Workers       int
}

// Guard is the room entry check: throttle first, then the password.
type Guard struct {
	throttle *Throttle
	pool     *Pool
	clock    core.Clock

	minIterations int
	keyLength     int
}

func NewGuard(cfg Config, clock core.Clock) *Guard {
	if cfg.MinIterations <= 0 {
		cfg.MinIterations = MinIterations
	}
	if cfg.KeyLength <= 0 {
		cfg.KeyLength = KeyLength
	}
	return &Guard{
		throttle:      NewThrottle(cfg.Throttle),
		pool:          NewPool(cfg.Workers),
		clock:         clock,
		minIterations: cfg.MinIterations,
		keyLength:     cfg.KeyLength,
	}
}

func (g *Guard) Throttle() *Throttle { return g.throttle }

// Authenticate checks password for room on behalf of ip. It returns nil,
// domain.ErrRateLimited or domain.ErrInvalidPassword. Hashed credentials are
// derived on the worker pool; the caller blocks but holds no room lock.
//
// The block check runs before any hashing. Derivation still takes longer than
// a plaintext compare, so hashed and plaintext rooms are distinguishable by
// timing.
func (g *Guard) Authenticate(ctx context.Context, room domain.Room, ip, password string) error {
	if !room.Locked() {
		return nil
	}
	if left, blocked := g.throttle.Check(room.ID, ip, g.clock.Now()); blocked {
		log.Warn().Str("module", "auth.guard").Str("room", string(room.ID)).Str("ip", ip).Dur("left", left).Msg("rate limited")
		return domain.ErrRateLimited
	}

	ok, err := g.verify(ctx, room, password)
	if err != nil {
		g.throttle.Release(room.ID, ip)
		return err
	}
	now := g.clock.Now()
	if !ok {
		g.throttle.Fail(room.ID, ip, now)
		log.Warn().Str("module", "auth.guard").Str("room", string(room.ID)).Str("ip", ip).Msg("invalid password")
		return domain.ErrInvalidPassword
	}
	g.throttle.Succeed(room.ID, ip, now)
	return nil
}

func (g *Guard) verify(ctx context.Context, room domain.Room, password string) (bool, error) {
	if room.PasswordHash == "" {
		return EqualPlain(room.Password, password), nil
	}
	h, err := ParseHash(room.PasswordHash, g.minIterations, g.keyLength)
	if err != nil {
		log.Error().Err(err).Str("module", "auth.guard").Str("room", string(room.ID)).Msg("room credential rejected")
		return false, nil
	}
	var ok bool
	start := time.Now()
	if err := g.pool.Do(ctx, func() { ok = h.Verify(password) }); err != nil {
		return false, err
	}
	log.Debug().Str("module", "auth.guard").Dur("took", time.Since(start)).Msg("key derived")
	return ok, nil
}
