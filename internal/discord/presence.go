package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/calliope-bot/calliope/internal/recorder"
)

// PresenceHandler receives voice-state transitions translated into
// platform-neutral events. Implemented by the recording orchestrator.
type PresenceHandler interface {
	HandlePresence(ev recorder.PresenceEvent)
}

// BindPresence subscribes h to the session's voice-state updates.
func BindPresence(s *discordgo.Session, h PresenceHandler) {
	s.AddHandler(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		h.HandlePresence(presenceEvent(s, v))
	})
}

func presenceEvent(s *discordgo.Session, v *discordgo.VoiceStateUpdate) recorder.PresenceEvent {
	ev := recorder.PresenceEvent{
		CommunityID:    v.GuildID,
		UserID:         v.UserID,
		Bot:            isBot(s, v),
		AfterChannelID: v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		ev.BeforeChannelID = v.BeforeUpdate.ChannelID
	}
	return ev
}

func isBot(s *discordgo.Session, v *discordgo.VoiceStateUpdate) bool {
	if v.Member != nil && v.Member.User != nil {
		return v.Member.User.Bot
	}
	if member, err := s.State.Member(v.GuildID, v.UserID); err == nil && member.User != nil {
		return member.User.Bot
	}
	return s.State.User != nil && v.UserID == s.State.User.ID
}
