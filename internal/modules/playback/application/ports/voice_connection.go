package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// VoiceConnection defines the interface for voice channel connection management.
type VoiceConnection interface {
	// JoinChannel connects to a voice channel and returns once the connection is usable.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects from the voice channel and releases the connection.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}

// PlayerProvider hands out the audio player of a guild.
type PlayerProvider interface {
	Player(guildID snowflake.ID) domain.Player
}
