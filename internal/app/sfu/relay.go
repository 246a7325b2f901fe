package sfu

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Key identifies a relay: one source track kind per session.
type Key struct {
	SID  core.SessionID
	Kind webrtc.RTPCodecType
}

// Relay fans the packets of one remote track out to the room.
type Relay struct {
	Key Key
	Src *webrtc.TrackRemote

	mu   sync.RWMutex
	subs map[core.SessionID]*Subscription

	forwarded atomic.Uint64
	cancel    context.CancelFunc
}

func NewRelay(key Key, src *webrtc.TrackRemote, cancel context.CancelFunc) *Relay {
	return &Relay{
		Key:    key,
		Src:    src,
		subs:   make(map[core.SessionID]*Subscription),
		cancel: cancel,
	}
}

func (r *Relay) run(ctx context.Context, logger *zerolog.Logger) {
	defer r.detachAll()
	for ctx.Err() == nil {
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Uint64("forwarded", r.forwarded.Load()).Msg("relay source ended")
			return
		}
		r.fanOut(pkt, logger)
	}
	logger.Info().Uint64("forwarded", r.forwarded.Load()).Msg("relay stopped")
}

func (r *Relay) fanOut(pkt *rtp.Packet, logger *zerolog.Logger) {
	var stale []core.SessionID
	r.mu.RLock()
	for dst, sub := range r.subs {
		if sub.Detached() {
			stale = append(stale, dst)
			continue
		}
		if err := sub.Track.WriteRTP(pkt); err != nil {
			logger.Warn().Err(err).Str("dst_sid", string(dst)).Msg("write RTP failed, dropping subscriber")
			sub.Detach()
			stale = append(stale, dst)
		}
	}
	r.mu.RUnlock()
	r.forwarded.Add(1)

	if len(stale) > 0 {
		r.prune(stale)
	}
}

// prune removes subscriptions that are still detached.
func (r *Relay) prune(ids []core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if sub, ok := r.subs[id]; ok && sub.Detached() {
			delete(r.subs, id)
		}
	}
}

func (r *Relay) detachAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		sub.Detach()
	}
}

// Attach registers dst's subscription, detaching one it replaces.
func (r *Relay) Attach(dst core.SessionID, sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.subs[dst]; ok && old != sub {
		old.Detach()
	}
	r.subs[dst] = sub
}

func (r *Relay) subscription(dst core.SessionID) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[dst]
	return sub, ok
}

// Subscribers returns the sessions currently receiving this relay.
func (r *Relay) Subscribers() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.subs))
	for sid, sub := range r.subs {
		if !sub.Detached() {
			out = append(out, sid)
		}
	}
	return out
}
