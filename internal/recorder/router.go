package recorder

// PresenceEvent is one voice presence change delivered by the chat platform.
type PresenceEvent struct {
	CommunityID string
	UserID      string

	// Bot marks events caused by bot accounts, which never trigger
	// recording decisions.
	Bot bool

	// BeforeChannelID is the voice channel the user was in before the
	// change; empty when they were in none.
	BeforeChannelID string

	// AfterChannelID is the voice channel the user is in after the change;
	// empty when they left voice entirely.
	AfterChannelID string
}

// ChannelDirectory answers questions about the community's current channel
// layout and occupancy. Implementations read live platform state, so
// decisions reflect current occupancy rather than the event's snapshot.
type ChannelDirectory interface {
	// VoiceChannelsInCategory lists the voice channel IDs grouped under the
	// given category.
	VoiceChannelsInCategory(communityID, categoryID string) []string

	// NonBotOccupants returns the number of non-bot users currently in the
	// channel.
	NonBotOccupants(communityID, channelID string) int

	// ChannelName returns the display name of a channel, or an empty string
	// if unknown.
	ChannelName(communityID, channelID string) string
}

// decision is the outcome of routing one presence event.
type decision int

const (
	decideNone decision = iota
	decideStart
	decideStop
)

// decide maps a presence event to a session decision for the community.
// A start is requested when someone enters a watched channel from outside
// the category; a stop when someone leaves a watched channel and the whole
// category is now empty of non-bot users.
func decide(ev PresenceEvent, categoryID string, dir ChannelDirectory) (decision, string) {
	if ev.Bot || categoryID == "" {
		return decideNone, ""
	}

	channels := dir.VoiceChannelsInCategory(ev.CommunityID, categoryID)
	inCategory := func(channelID string) bool {
		if channelID == "" {
			return false
		}
		for _, id := range channels {
			if id == channelID {
				return true
			}
		}
		return false
	}

	beforeIn := inCategory(ev.BeforeChannelID)
	afterIn := inCategory(ev.AfterChannelID)

	if afterIn && !beforeIn {
		return decideStart, ev.AfterChannelID
	}

	if beforeIn && !afterIn {
		for _, id := range channels {
			if dir.NonBotOccupants(ev.CommunityID, id) > 0 {
				return decideNone, ""
			}
		}
		return decideStop, ""
	}

	return decideNone, ""
}
