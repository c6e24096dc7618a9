package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// ContractSettings are the persisted settings of a guild contract.
type ContractSettings struct {
	GuildID       snowflake.ID  `json:"guildId"`
	HomeChannelID *snowflake.ID `json:"homeChannelId,omitempty"`
}

// SettingsStore persists contract settings across restarts.
type SettingsStore interface {
	// Save creates or replaces the settings of a guild.
	Save(ctx context.Context, settings ContractSettings) error

	// LoadAll returns the settings of every known guild.
	LoadAll(ctx context.Context) ([]ContractSettings, error)
}
