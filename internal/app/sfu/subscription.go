package sfu

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// Subscription is one receiver's local copy of a relayed track. Once
// detached it is never written again and the relay drops it on the next
// packet.
type Subscription struct {
	Track    *webrtc.TrackLocalStaticRTP
	Sender   *webrtc.RTPSender
	detached atomic.Bool
}

func NewSubscription(track *webrtc.TrackLocalStaticRTP, sender *webrtc.RTPSender) *Subscription {
	return &Subscription{Track: track, Sender: sender}
}

func (s *Subscription) Detach() { s.detached.Store(true) }

func (s *Subscription) Detached() bool { return s.detached.Load() }
