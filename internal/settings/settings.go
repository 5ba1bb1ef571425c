// Package settings persists per-guild bot configuration: which voice channel
// category is watched for activity and which text channel receives
// transcripts.
package settings

import "context"

// GuildSettings holds the per-guild configuration.
type GuildSettings struct {
	// VoiceCategoryID is the channel category whose voice channels trigger
	// automatic recording. Empty means auto-recording is disabled.
	VoiceCategoryID string `json:"voice_category_id"`

	// ResultChannelID is the text channel transcripts are posted to. Empty
	// means transcripts cannot be delivered.
	ResultChannelID string `json:"text_channel_id"`
}

// Configured reports whether both channels are set.
func (s GuildSettings) Configured() bool {
	return s.VoiceCategoryID != "" && s.ResultChannelID != ""
}

// Store persists guild settings. Implementations are safe for concurrent
// use.
type Store interface {
	// Get returns the settings for a guild. The boolean is false when no
	// settings have been stored for the guild.
	Get(ctx context.Context, guildID string) (GuildSettings, bool, error)

	// SetVoiceCategory updates the watched voice category for a guild,
	// creating the settings entry if needed.
	SetVoiceCategory(ctx context.Context, guildID, categoryID string) error

	// SetResultChannel updates the transcript channel for a guild, creating
	// the settings entry if needed.
	SetResultChannel(ctx context.Context, guildID, channelID string) error

	// Clear removes all settings for a guild. Clearing a guild without
	// settings is not an error.
	Clear(ctx context.Context, guildID string) error
}
