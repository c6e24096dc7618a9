package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// PresenceRouter receives voice presence changes per guild.
type PresenceRouter interface {
	HandlePresenceChange(guildID snowflake.ID)
	HandleConnectionDestroyed(guildID snowflake.ID)
}

// EventHandlers handles Discord gateway events for playback.
type EventHandlers struct {
	botID  snowflake.ID
	router PresenceRouter
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(botID snowflake.ID, router PresenceRouter) *EventHandlers {
	return &EventHandlers{
		botID:  botID,
		router: router,
	}
}

// HandleVoiceStateUpdate re-evaluates presence whenever anyone in the guild joins,
// leaves or moves between voice channels. The state cache is already updated.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// The bot was disconnected, by a moderator or by Discord.
	if event.UserID == h.botID.String() && event.ChannelID == "" {
		h.router.HandleConnectionDestroyed(guildID)
		return
	}

	h.router.HandlePresenceChange(guildID)
}
