// Package discord wires the bot to the Discord gateway: slash command
// registration and dispatch, voice-state event fan-out, and transcript
// publishing.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Bot owns the gateway session for all guilds the application is in.
// Commands are registered globally on [Bot.Run] and removed on [Bot.Close].
type Bot struct {
	session *discordgo.Session
	router  *CommandRouter

	mu         sync.Mutex
	registered []*discordgo.ApplicationCommand
	closeOnce  sync.Once
	closeErr   error
}

// NewBot creates a gateway session with the intents the recorder needs.
// The session is not opened until [Bot.Run].
func NewBot(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
	session.StateEnabled = true

	b := &Bot{
		session: session,
		router:  NewCommandRouter(),
	}
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})
	return b, nil
}

// Session exposes the underlying gateway session so callers can build
// voice connections and state lookups on top of it.
func (b *Bot) Session() *discordgo.Session { return b.session }

// Router returns the command router used for slash command dispatch.
func (b *Bot) Router() *CommandRouter { return b.router }

// Run opens the gateway connection, registers all routed commands
// globally, and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	slog.Info("discord: gateway connected", "user", b.session.State.User.Username)

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID, "", b.router.ApplicationCommands())
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	b.mu.Lock()
	b.registered = registered
	b.mu.Unlock()
	slog.Info("discord: commands registered", "count", len(registered))

	<-ctx.Done()
	return ctx.Err()
}

// Close deletes the registered commands and shuts down the session.
// Safe to call more than once.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		registered := b.registered
		b.registered = nil
		b.mu.Unlock()
		for _, cmd := range registered {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID); err != nil {
				slog.Warn("discord: delete command", "command", cmd.Name, "error", err)
			}
		}
		b.closeErr = b.session.Close()
	})
	return b.closeErr
}
