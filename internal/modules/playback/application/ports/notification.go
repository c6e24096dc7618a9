package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// NotificationSender sends status messages to a guild's home channel.
// Delivery is best-effort; callers log failures and carry on.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel.
	SendNowPlaying(ctx context.Context, channelID snowflake.ID, info *NowPlayingInfo) error

	// SendNotice sends an informational message to the channel.
	SendNotice(ctx context.Context, channelID snowflake.ID, message string) error

	// SendError sends an error message embed to the channel.
	SendError(ctx context.Context, channelID snowflake.ID, message string) error
}
