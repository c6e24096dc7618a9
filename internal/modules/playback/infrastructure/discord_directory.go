package infrastructure

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// DiscordDirectory resolves guild entities from the discordgo state cache.
// Members missing from the cache are fetched from the API.
type DiscordDirectory struct {
	session *discordgo.Session
}

// NewDiscordDirectory creates a new DiscordDirectory.
func NewDiscordDirectory(session *discordgo.Session) *DiscordDirectory {
	return &DiscordDirectory{session: session}
}

// ResolveGuild returns the guild if the bot is a member of it.
func (d *DiscordDirectory) ResolveGuild(guildID snowflake.ID) (*domain.Guild, bool) {
	guild, err := d.session.State.Guild(guildID.String())
	if err != nil {
		return nil, false
	}
	return &domain.Guild{ID: guildID, Name: guild.Name}, true
}

// ResolveChannel returns the channel if it exists in the guild.
func (d *DiscordDirectory) ResolveChannel(guildID, channelID snowflake.ID) (*domain.Channel, bool) {
	channel, err := d.session.State.Channel(channelID.String())
	if err != nil || channel.GuildID != guildID.String() {
		return nil, false
	}

	return &domain.Channel{
		ID:      channelID,
		GuildID: guildID,
		Name:    channel.Name,
		Kind:    channelKind(channel.Type),
	}, true
}

func channelKind(t discordgo.ChannelType) domain.ChannelKind {
	switch t {
	// Stage channels need speaker permissions and are not supported.
	case discordgo.ChannelTypeGuildVoice:
		return domain.ChannelKindVoice
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return domain.ChannelKindText
	default:
		return domain.ChannelKindOther
	}
}

// ResolveUser returns a member of the guild.
func (d *DiscordDirectory) ResolveUser(guildID, userID snowflake.ID) (*domain.User, bool) {
	member, err := d.session.State.Member(guildID.String(), userID.String())
	if err != nil {
		member, err = d.session.GuildMember(guildID.String(), userID.String())
		if err != nil {
			slog.Debug("failed to fetch guild member", "guild", guildID, "user", userID, "error", err)
			return nil, false
		}
	}
	if member.User == nil {
		return nil, false
	}
	return toUser(userID, member), true
}

func toUser(userID snowflake.ID, member *discordgo.Member) *domain.User {
	return &domain.User{
		ID:          userID,
		DisplayName: getDisplayName(member),
		AvatarURL:   member.User.AvatarURL(""),
		Bot:         member.User.Bot,
	}
}

// getDisplayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func getDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// BotVoiceChannel returns the voice channel the bot is connected to.
func (d *DiscordDirectory) BotVoiceChannel(guildID snowflake.ID) (snowflake.ID, bool) {
	if d.session.State.User == nil {
		return 0, false
	}
	botID, err := snowflake.Parse(d.session.State.User.ID)
	if err != nil {
		return 0, false
	}
	return d.UserVoiceChannel(guildID, botID)
}

// UserVoiceChannel returns the voice channel a user is connected to.
func (d *DiscordDirectory) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	for _, vs := range d.voiceStates(guildID) {
		if vs.UserID != userID.String() || vs.ChannelID == "" {
			continue
		}
		channelID, err := snowflake.Parse(vs.ChannelID)
		if err != nil {
			return 0, false
		}
		return channelID, true
	}
	return 0, false
}

// VoiceMembers returns the users connected to a voice channel, the bot included.
func (d *DiscordDirectory) VoiceMembers(guildID, channelID snowflake.ID) []domain.User {
	var users []domain.User
	for _, vs := range d.voiceStates(guildID) {
		if vs.ChannelID != channelID.String() {
			continue
		}
		userID, err := snowflake.Parse(vs.UserID)
		if err != nil {
			continue
		}

		member := vs.Member
		if member == nil || member.User == nil {
			member, err = d.session.State.Member(guildID.String(), vs.UserID)
		}
		if err != nil || member == nil || member.User == nil {
			// Unknown members count as listeners.
			users = append(users, domain.User{ID: userID})
			continue
		}
		users = append(users, *toUser(userID, member))
	}
	return users
}

// voiceStates copies the cached voice states of a guild.
func (d *DiscordDirectory) voiceStates(guildID snowflake.ID) []discordgo.VoiceState {
	guild, err := d.session.State.Guild(guildID.String())
	if err != nil {
		return nil
	}

	d.session.State.RLock()
	defer d.session.State.RUnlock()

	states := make([]discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		states = append(states, *vs)
	}
	return states
}

// Ensure DiscordDirectory implements domain.Directory.
var _ domain.Directory = (*DiscordDirectory)(nil)
