package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BanList maps a source IP to the time its ban expires. Expired entries are
// left in place until overwritten; they never match.
type BanList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewBanList() *BanList {
	return &BanList{entries: make(map[string]time.Time)}
}

// Ban inserts or overwrites the entry for ip and returns its expiry.
func (b *BanList) Ban(ip string, d time.Duration, now time.Time) time.Time {
	until := now.Add(d)
	b.mu.Lock()
	b.entries[ip] = until
	b.mu.Unlock()
	log.Warn().Str("module", "app.banlist").Str("ip", ip).Time("until", until).Msg("ip banned")
	return until
}

func (b *BanList) IsBanned(ip string, now time.Time) bool {
	_, ok := b.Remaining(ip, now)
	return ok
}

// Remaining returns how long the ban on ip still lasts.
func (b *BanList) Remaining(ip string, now time.Time) (time.Duration, bool) {
	b.mu.RLock()
	until, ok := b.entries[ip]
	b.mu.RUnlock()
	if !ok || !now.Before(until) {
		return 0, false
	}
	return until.Sub(now), true
}
