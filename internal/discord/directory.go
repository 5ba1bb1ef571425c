package discord

import (
	"github.com/bwmarrin/discordgo"
)

// StateDirectory answers channel and occupancy queries from the gateway
// state cache. It backs the recorder's start/stop decisions, so every
// read reflects the live cache rather than a snapshot.
type StateDirectory struct {
	session *discordgo.Session
}

func NewStateDirectory(session *discordgo.Session) *StateDirectory {
	return &StateDirectory{session: session}
}

// VoiceChannelsInCategory lists the IDs of all voice channels under the
// given category. Returns nil when the guild is unknown.
func (d *StateDirectory) VoiceChannelsInCategory(communityID, categoryID string) []string {
	guild, err := d.session.State.Guild(communityID)
	if err != nil {
		return nil
	}
	var ids []string
	for _, ch := range guild.Channels {
		if ch.Type == discordgo.ChannelTypeGuildVoice && ch.ParentID == categoryID {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

// NonBotOccupants counts human members currently connected to the
// channel.
func (d *StateDirectory) NonBotOccupants(communityID, channelID string) int {
	guild, err := d.session.State.Guild(communityID)
	if err != nil {
		return 0
	}
	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if d.isBotUser(communityID, vs) {
			continue
		}
		count++
	}
	return count
}

// ChannelName resolves a channel ID to its display name, falling back to
// the ID itself when the channel is not cached.
func (d *StateDirectory) ChannelName(communityID, channelID string) string {
	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		return channelID
	}
	return ch.Name
}

func (d *StateDirectory) isBotUser(communityID string, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	if member, err := d.session.State.Member(communityID, vs.UserID); err == nil && member.User != nil {
		return member.User.Bot
	}
	return d.session.State.User != nil && vs.UserID == d.session.State.User.ID
}
