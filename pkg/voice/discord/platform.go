// Package discord implements voice channel capture on top of the Discord
// gateway using github.com/bwmarrin/discordgo. Incoming Opus streams are
// decoded per speaker and handed to a capture sink as raw PCM.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/calliope-bot/calliope/pkg/voice"
)

// Compile-time interface assertion.
var _ voice.Platform = (*Platform)(nil)

// Platform joins Discord voice channels and exposes them as
// [voice.Connection] values.
type Platform struct {
	session   *discordgo.Session
	keepalive bool
}

// Option configures a Platform.
type Option func(*Platform)

// WithKeepalive makes every connection periodically send Opus silence frames
// so Discord does not tear down idle voice streams.
func WithKeepalive() Option {
	return func(p *Platform) {
		p.keepalive = true
	}
}

// NewPlatform creates a Platform using the given gateway session. The session
// must already be open before Connect is used.
func NewPlatform(session *discordgo.Session, opts ...Option) *Platform {
	p := &Platform{session: session}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect joins the given voice channel unmuted and undeafened and returns a
// capture connection for it. The voice connection is torn down again if
// post-join setup fails.
func (p *Platform) Connect(ctx context.Context, communityID, channelID string) (voice.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := p.session.ChannelVoiceJoin(communityID, channelID, false, false)
	if err != nil {
		return nil, fmt.Errorf("joining voice channel %q: %w", channelID, err)
	}

	conn, err := newConnection(vc, communityID, p.keepalive)
	if err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("setting up capture for channel %q: %w", channelID, err)
	}
	return conn, nil
}

// HasLiveConnection reports whether the gateway session still holds a voice
// connection for the guild. Used to detect connections that survived a
// crashed or lost recording session.
func (p *Platform) HasLiveConnection(communityID string) bool {
	p.session.RLock()
	defer p.session.RUnlock()
	_, ok := p.session.VoiceConnections[communityID]
	return ok
}
