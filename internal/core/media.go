package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is a session's peer connection. The coordinator treats it
// as an external collaborator: it negotiates through it and wires relayed
// tracks into it, nothing more.
type MediaConnection interface {
	// Start installs the peer callbacks; remote tracks live until ctx ends.
	Start(ctx context.Context) error
	Close()
	IsClosed() bool

	// Client-initiated negotiation.
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// Server-initiated renegotiation after tracks were added.
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error

	AddLocalTrack(*webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error)

	OnICECandidate(func(webrtc.ICECandidateInit))
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnClosed runs once, after the connection failed or was closed.
	OnClosed(func())
}
