package rtc

import (
	"context"
	"sync/atomic"

	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection is a core.MediaConnection backed by one pion PeerConnection.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	onICE    func(webrtc.ICECandidateInit)
	onTrack  func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed func()

	closed   atomic.Bool
	notified atomic.Bool
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

// Config builds a peer configuration from ICE server URLs.
func Config(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
}

func NewWebRTCConnection(cfg webrtc.Configuration, sid core.SessionID) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &WebRTCConnection{
		pc:     pc,
		logger: log.With().Str("module", "webrtc").Str("sid", string(sid)).Logger(),
	}, nil
}

func (c *WebRTCConnection) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.pc.OnICEConnectionStateChange(c.iceStateChanged)
	c.pc.OnConnectionStateChange(c.peerStateChanged)
	c.pc.OnICECandidate(c.localCandidate)
	c.pc.OnTrack(c.remoteTrack)
	return nil
}

func (c *WebRTCConnection) iceStateChanged(s webrtc.ICEConnectionState) {
	c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	if s == webrtc.ICEConnectionStateFailed || s == webrtc.ICEConnectionStateClosed {
		c.cancel()
	}
}

func (c *WebRTCConnection) peerStateChanged(s webrtc.PeerConnectionState) {
	c.logger.Info().Str("peer_connection_state", s.String()).Msg("peer state")
	// Close notifies on its own path.
	if c.closed.Load() {
		return
	}
	if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
		c.notifyClosed()
	}
}

func (c *WebRTCConnection) localCandidate(cand *webrtc.ICECandidate) {
	// nil marks the end of gathering.
	if cand != nil && c.onICE != nil {
		c.onICE(cand.ToJSON())
	}
}

func (c *WebRTCConnection) remoteTrack(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	c.logger.Info().
		Str("kind", track.Kind().String()).
		Str("track_id", track.ID()).
		Str("stream_id", track.StreamID()).
		Msg("remote track")
	if c.onTrack != nil {
		c.onTrack(c.ctx, track, receiver)
	}
}

// ApplyOfferAndCreateAnswer answers with every local candidate inlined.
func (c *WebRTCConnection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	gathered := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gathered
	return c.pc.LocalDescription(), nil
}

// CreateAndSetOffer returns right away; candidates trickle via OnICECandidate.
func (c *WebRTCConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) AddLocalTrack(track *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error) {
	return c.pc.AddTrack(track)
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }

func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onTrack = fn
}

func (c *WebRTCConnection) OnClosed(fn func()) { c.onClosed = fn }

func (c *WebRTCConnection) IsClosed() bool { return c.closed.Load() }

// Close is idempotent. The OnClosed callback runs at most once whichever
// way the connection ends.
func (c *WebRTCConnection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
	} else {
		c.logger.Info().Msg("closed")
	}
	c.notifyClosed()
}

func (c *WebRTCConnection) notifyClosed() {
	if c.notified.CompareAndSwap(false, true) && c.onClosed != nil {
		c.onClosed()
	}
}
