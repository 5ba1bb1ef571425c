package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/calliope-bot/calliope/internal/recorder"
	"github.com/calliope-bot/calliope/internal/settings"
)

// Recorder is the subset of the orchestrator the slash commands need.
type Recorder interface {
	SessionState(communityID string) recorder.State
	RequestManualStop(communityID string)
}

const commandTimeout = 10 * time.Second

// RecorderCommands implements the guild-facing slash commands for
// configuring and controlling the recorder.
type RecorderCommands struct {
	store     settings.Store
	rec       Recorder
	directory recorder.ChannelDirectory
}

// NewRecorderCommands registers the recorder command set on the router.
func NewRecorderCommands(router *CommandRouter, store settings.Store, rec Recorder, directory recorder.ChannelDirectory) *RecorderCommands {
	c := &RecorderCommands{store: store, rec: rec, directory: directory}
	router.RegisterCommand(c.setVoiceCategoryDefinition(), c.handleSetVoiceCategory)
	router.RegisterCommand(c.setResultChannelDefinition(), c.handleSetResultChannel)
	router.RegisterCommand(c.showSettingsDefinition(), c.handleShowSettings)
	router.RegisterCommand(c.unsetSettingsDefinition(), c.handleUnsetSettings)
	router.RegisterCommand(c.stopDefinition(), c.handleStop)
	return c
}

func (c *RecorderCommands) setVoiceCategoryDefinition() *discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	return &discordgo.ApplicationCommand{
		Name:                     "set-voice-category",
		Description:              "Choose the channel category whose voice channels are recorded",
		DefaultMemberPermissions: &manage,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "category",
				Description: "Category containing the voice channels to watch",
				Required:    true,
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildCategory,
				},
			},
		},
	}
}

func (c *RecorderCommands) handleSetVoiceCategory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermission(i) {
		RespondError(s, i, "You need the Manage Server permission to change recorder settings.")
		return
	}
	category := i.ApplicationCommandData().Options[0].ChannelValue(s)
	if category == nil {
		RespondError(s, i, "Could not resolve that category.")
		return
	}
	if len(c.directory.VoiceChannelsInCategory(i.GuildID, category.ID)) == 0 {
		RespondError(s, i, fmt.Sprintf("Category **%s** has no voice channels. Pick a category that contains at least one.", category.Name))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.store.SetVoiceCategory(ctx, i.GuildID, category.ID); err != nil {
		RespondError(s, i, "Failed to save the setting. Please try again.")
		return
	}
	RespondEphemeral(s, i, fmt.Sprintf("✅ Voice channels under **%s** will now be recorded.", category.Name))
}

func (c *RecorderCommands) setResultChannelDefinition() *discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	return &discordgo.ApplicationCommand{
		Name:                     "set-result-channel",
		Description:              "Choose the text channel where transcripts are posted",
		DefaultMemberPermissions: &manage,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "Text channel for finished transcripts",
				Required:    true,
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
				},
			},
		},
	}
}

func (c *RecorderCommands) handleSetResultChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermission(i) {
		RespondError(s, i, "You need the Manage Server permission to change recorder settings.")
		return
	}
	channel := i.ApplicationCommandData().Options[0].ChannelValue(s)
	if channel == nil {
		RespondError(s, i, "Could not resolve that channel.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.store.SetResultChannel(ctx, i.GuildID, channel.ID); err != nil {
		RespondError(s, i, "Failed to save the setting. Please try again.")
		return
	}
	RespondEphemeral(s, i, fmt.Sprintf("✅ Transcripts will be posted in <#%s>.", channel.ID))
}

func (c *RecorderCommands) showSettingsDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "show-settings",
		Description: "Show the recorder configuration and session state for this server",
	}
}

func (c *RecorderCommands) handleShowSettings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	cfg, found, err := c.store.Get(ctx, i.GuildID)
	if err != nil {
		RespondError(s, i, "Failed to load the settings. Please try again.")
		return
	}

	categoryValue := "not set"
	if cfg.VoiceCategoryID != "" {
		categoryValue = c.directory.ChannelName(i.GuildID, cfg.VoiceCategoryID)
	}
	channelValue := "not set"
	if cfg.ResultChannelID != "" {
		channelValue = "<#" + cfg.ResultChannelID + ">"
	}
	status := "not configured"
	if found && cfg.Configured() {
		status = "active"
	}

	RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "Recorder settings",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: status, Inline: true},
			{Name: "Session", Value: c.rec.SessionState(i.GuildID).String(), Inline: true},
			{Name: "Voice category", Value: categoryValue},
			{Name: "Result channel", Value: channelValue},
		},
	})
}

func (c *RecorderCommands) unsetSettingsDefinition() *discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	return &discordgo.ApplicationCommand{
		Name:                     "unset-settings",
		Description:              "Remove the recorder configuration for this server",
		DefaultMemberPermissions: &manage,
	}
}

func (c *RecorderCommands) handleUnsetSettings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermission(i) {
		RespondError(s, i, "You need the Manage Server permission to change recorder settings.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.store.Clear(ctx, i.GuildID); err != nil {
		RespondError(s, i, "Failed to clear the settings. Please try again.")
		return
	}
	RespondEphemeral(s, i, "✅ Recorder settings removed. Recording is disabled until reconfigured.")
}

func (c *RecorderCommands) stopDefinition() *discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	return &discordgo.ApplicationCommand{
		Name:                     "stop",
		Description:              "Stop the current recording and produce the transcript now",
		DefaultMemberPermissions: &manage,
	}
}

func (c *RecorderCommands) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !hasManagePermission(i) {
		RespondError(s, i, "You need the Manage Server permission to stop a recording.")
		return
	}
	if c.rec.SessionState(i.GuildID) != recorder.StateRecording {
		RespondEphemeral(s, i, "No recording is in progress.")
		return
	}
	c.rec.RequestManualStop(i.GuildID)
	RespondEphemeral(s, i, "⏹️ Recording stopped. The transcript will be posted when processing finishes.")
}

func hasManagePermission(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&(discordgo.PermissionManageServer|discordgo.PermissionAdministrator) != 0
}
