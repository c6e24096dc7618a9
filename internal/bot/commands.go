package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// DeployCommands registers the commands of every loaded module without starting
// the bot. An empty guildID registers them globally.
func (b *Bot) DeployCommands(guildID string) error {
	session, appID, err := b.restSession()
	if err != nil {
		return err
	}
	return registerCommands(session, appID, guildID, b.collectCommands())
}

// ClearCommands removes every registered command. An empty guildID clears the
// global commands.
func (b *Bot) ClearCommands(guildID string) error {
	session, appID, err := b.restSession()
	if err != nil {
		return err
	}

	_, err = session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{})
	if err != nil {
		return fmt.Errorf("failed to clear commands: %w", err)
	}
	slog.Info("cleared commands", "guild", guildID)
	return nil
}

// restSession returns a session for REST calls only, along with the application ID.
func (b *Bot) restSession() (*discordgo.Session, string, error) {
	session, err := discordgo.New("Bot " + b.config.DiscordToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Discord session: %w", err)
	}

	user, err := session.User("@me")
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return session, user.ID, nil
}

// registerCommands replaces the registered commands with commands.
func registerCommands(
	session *discordgo.Session,
	appID, guildID string,
	commands []*discordgo.ApplicationCommand,
) error {
	registered, err := session.ApplicationCommandBulkOverwrite(appID, guildID, commands)
	if err != nil {
		return fmt.Errorf("failed to overwrite commands: %w", err)
	}
	for _, cmd := range registered {
		slog.Debug("registered command", "command", cmd.Name, "guild", guildID)
	}
	slog.Info("registered commands", "count", len(registered), "guild", guildID)
	return nil
}
