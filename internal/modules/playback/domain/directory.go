package domain

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
)

// ChannelKind is the capability of a guild channel.
type ChannelKind int

const (
	ChannelKindOther ChannelKind = iota
	ChannelKindText
	ChannelKindVoice
)

// Guild is a resolved guild.
type Guild struct {
	ID   snowflake.ID
	Name string
}

// Channel is a resolved guild channel.
type Channel struct {
	ID      snowflake.ID
	GuildID snowflake.ID
	Name    string
	Kind    ChannelKind
}

// IsVoice reports whether audio can be streamed into the channel.
func (c *Channel) IsVoice() bool {
	return c.Kind == ChannelKindVoice
}

// IsText reports whether messages can be sent to the channel.
func (c *Channel) IsText() bool {
	return c.Kind == ChannelKindText
}

// User is a resolved guild member.
type User struct {
	ID          snowflake.ID
	DisplayName string
	AvatarURL   string
	Bot         bool
}

// Directory resolves chat platform entities for a guild.
// Lookups return false when the entity does not exist or is not cached.
type Directory interface {
	ResolveGuild(guildID snowflake.ID) (*Guild, bool)
	ResolveChannel(guildID, channelID snowflake.ID) (*Channel, bool)
	ResolveUser(guildID, userID snowflake.ID) (*User, bool)

	// BotVoiceChannel returns the voice channel the bot is connected to.
	BotVoiceChannel(guildID snowflake.ID) (snowflake.ID, bool)

	// UserVoiceChannel returns the voice channel a user is connected to.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool)

	// VoiceMembers returns the users connected to a voice channel, the bot included.
	VoiceMembers(guildID, channelID snowflake.ID) []User
}

// IsChannelPopulated reports whether a voice channel has a listener other than the bot.
// Bots never count as listeners, so a channel holding only the bot is unpopulated.
func IsChannelPopulated(dir Directory, guildID, channelID snowflake.ID) bool {
	return lo.ContainsBy(dir.VoiceMembers(guildID, channelID), func(u User) bool {
		return !u.Bot
	})
}
