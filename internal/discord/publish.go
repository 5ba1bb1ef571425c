package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/calliope-bot/calliope/internal/recorder"
	"github.com/calliope-bot/calliope/internal/resilience"
)

// ChannelPublisher delivers finished transcripts to a guild text channel
// as attached text files, keeping long transcripts out of the message
// body. A circuit breaker sheds sends while the channel keeps rejecting
// them, so stuck deliveries do not pile up finalization work.
type ChannelPublisher struct {
	session *discordgo.Session
	breaker *resilience.CircuitBreaker
}

func NewChannelPublisher(session *discordgo.Session) *ChannelPublisher {
	return &ChannelPublisher{
		session: session,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "discord-publish"}),
	}
}

var _ recorder.Publisher = (*ChannelPublisher)(nil)

// PublishTranscript uploads the transcript as a .txt attachment with a
// short announcement message.
func (p *ChannelPublisher) PublishTranscript(ctx context.Context, channelID string, t recorder.Transcript) error {
	name := transcriptFileName(t)
	body := transcriptBody(t)
	message := fmt.Sprintf("Transcript of **%s** is ready.", t.ChannelName)

	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := p.session.ChannelFileSendWithMessage(channelID, message, name, strings.NewReader(body),
			discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: send transcript to %s: %w", channelID, err)
	}
	return nil
}

// PublishFailure posts a plain explanation of why no transcript was
// produced.
func (p *ChannelPublisher) PublishFailure(ctx context.Context, channelID string, message string) error {
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := p.session.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: send failure notice to %s: %w", channelID, err)
	}
	return nil
}

func transcriptFileName(t recorder.Transcript) string {
	return "transcription_" + t.StartedAt.Format("20060102_150405") + ".txt"
}

func transcriptBody(t recorder.Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recording started: %s\n", t.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Voice channel: %s\n", t.ChannelName)
	fmt.Fprintf(&b, "Participants: %d\n", t.Speakers)
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	b.WriteString(t.Text)
	b.WriteString("\n")
	return b.String()
}
