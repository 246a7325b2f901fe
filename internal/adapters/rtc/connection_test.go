package rtc

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	assert.Empty(t, Config(nil).ICEServers)
	cfg := Config([]string{"stun:example.org:3478"})
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:example.org:3478"}, cfg.ICEServers[0].URLs)
}

func TestWebRTCConnection_CloseOnce(t *testing.T) {
	c, err := NewWebRTCConnection(webrtc.Configuration{}, "s1")
	require.NoError(t, err)
	calls := 0
	c.OnClosed(func() { calls++ })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, c.Start(ctx))

	assert.False(t, c.IsClosed())
	c.Close()
	c.Close()
	assert.True(t, c.IsClosed())
	assert.Equal(t, 1, calls)
}

func TestWebRTCConnection_OfferAnswer(t *testing.T) {
	server, err := NewWebRTCConnection(webrtc.Configuration{}, "server")
	require.NoError(t, err)
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, server.Start(ctx))

	client, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer client.Close()
	_, err = client.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio)
	require.NoError(t, err)

	offer, err := client.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, client.SetLocalDescription(offer))

	answer, err := server.ApplyOfferAndCreateAnswer(offer)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.NotEmpty(t, answer.SDP)
}
