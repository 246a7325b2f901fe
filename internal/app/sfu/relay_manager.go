package sfu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoRelay = errors.New("no relay for source")

type RelayManager struct {
	mu     sync.RWMutex
	relays map[Key]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[Key]*Relay),
	}
}

// StartRelay creates a Relay for the source track and starts its loop,
// replacing any relay already registered under key.
func (m *RelayManager) StartRelay(ctx context.Context, key Key, track *webrtc.TrackRemote) *Relay {
	logger := log.With().
		Str("module", "relay").
		Str("sid", string(key.SID)).
		Str("kind", key.Kind.String()).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(key, track, cancel)

	m.mu.Lock()
	if old, ok := m.relays[key]; ok {
		logger.Info().Msg("replacing existing relay")
		old.cancel()
		old.detachAll()
	}
	m.relays[key] = relay
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	go relay.run(relayCtx, &logger)
	return relay
}

// Subscribe adds a local copy of the src relay's track to the subscriber's
// peer connection.
func (m *RelayManager) Subscribe(src Key, dst core.SessionID, mc core.MediaConnection) error {
	m.mu.RLock()
	relay, ok := m.relays[src]
	m.mu.RUnlock()
	if !ok {
		return ErrNoRelay
	}
	if sub, ok := relay.subscription(dst); ok && !sub.Detached() {
		return nil
	}
	remote := relay.Src
	local, err := webrtc.NewTrackLocalStaticRTP(remote.Codec().RTPCodecCapability, remote.ID(), string(src.SID))
	if err != nil {
		return fmt.Errorf("new local track: %w", err)
	}
	sender, err := mc.AddLocalTrack(local)
	if err != nil {
		return fmt.Errorf("add local track: %w", err)
	}
	relay.Attach(dst, NewSubscription(local, sender))
	log.Debug().Str("module", "relay").Str("src", string(src.SID)).Str("dst", string(dst)).Str("kind", src.Kind.String()).Msg("subscribed")
	return nil
}

// Unsubscribe detaches dst from every relay sourced by src.
func (m *RelayManager) Unsubscribe(src, dst core.SessionID) {
	for _, relay := range m.relaysOf(src) {
		if sub, ok := relay.subscription(dst); ok {
			sub.Detach()
		}
	}
}

// StopRelay stops one relay and removes it from the manager.
func (m *RelayManager) StopRelay(key Key) bool {
	m.mu.Lock()
	relay, ok := m.relays[key]
	if ok {
		delete(m.relays, key)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	relay.cancel()
	relay.detachAll()
	return true
}

// StopSession stops every relay sourced by sid.
func (m *RelayManager) StopSession(sid core.SessionID) {
	for _, relay := range m.relaysOf(sid) {
		m.StopRelay(relay.Key)
	}
}

// Sources returns the relays currently sourced by sid.
func (m *RelayManager) Sources(sid core.SessionID) []Key {
	relays := m.relaysOf(sid)
	out := make([]Key, 0, len(relays))
	for _, r := range relays {
		out = append(out, r.Key)
	}
	return out
}

func (m *RelayManager) HasRelay(key Key) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.relays[key]
	return ok
}

func (m *RelayManager) relaysOf(sid core.SessionID) []*Relay {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Relay
	for k, r := range m.relays {
		if k.SID == sid {
			out = append(out, r)
		}
	}
	return out
}
