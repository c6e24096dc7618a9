package contract

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// homeChannel returns the home channel, unsetting it if it no longer resolves to a
// text channel.
func (c *Contract) homeChannel() (snowflake.ID, bool) {
	if c.homeID == nil {
		return 0, false
	}

	channel, ok := c.deps.Directory.ResolveChannel(c.guildID, *c.homeID)
	if ok && channel.IsText() {
		return channel.ID, true
	}

	c.logger.Warn("home channel no longer resolves, unsetting it", "channel", *c.homeID)
	c.homeID = nil
	if err := c.persist(); err != nil {
		c.logger.Warn("failed to persist settings", "error", err)
	}
	return 0, false
}

func (c *Contract) persist() error {
	ctx, cancel := c.operationContext()
	defer cancel()

	err := c.deps.Settings.Save(ctx, ports.ContractSettings{
		GuildID:       c.guildID,
		HomeChannelID: c.homeID,
	})
	if err != nil {
		return fmt.Errorf("failed to save contract settings: %w", err)
	}
	return nil
}

func (c *Contract) send(fn func(ctx context.Context, channelID snowflake.ID) error) {
	channelID, ok := c.homeChannel()
	if !ok {
		return
	}

	ctx, cancel := c.operationContext()
	defer cancel()
	if err := fn(ctx, channelID); err != nil {
		c.logger.Warn("failed to send status message", "error", err, "channel", channelID)
	}
}

func (c *Contract) notice(message string) {
	c.send(func(ctx context.Context, channelID snowflake.ID) error {
		return c.deps.Notifier.SendNotice(ctx, channelID, message)
	})
}

func (c *Contract) report(message string) {
	c.send(func(ctx context.Context, channelID snowflake.ID) error {
		return c.deps.Notifier.SendError(ctx, channelID, message)
	})
}

func (c *Contract) sendNowPlaying(r domain.Request) {
	if r == nil {
		return
	}
	info := c.nowPlayingInfo(r)
	c.send(func(ctx context.Context, channelID snowflake.ID) error {
		return c.deps.Notifier.SendNowPlaying(ctx, channelID, info)
	})
}

func (c *Contract) nowPlayingInfo(r domain.Request) *ports.NowPlayingInfo {
	metadata := r.Metadata()
	info := &ports.NowPlayingInfo{
		Title:        metadata.Title,
		Creator:      metadata.Creator,
		Length:       metadata.FormattedLength(),
		ResourceURL:  metadata.ResourceURL,
		ThumbnailURL: metadata.ThumbnailURL,
		SourceName:   metadata.SourceName,
		Live:         metadata.Live,
		Start:        r.Start(),
		End:          r.End(),
		RequesterID:  r.UserID(),
		Position:     c.queue.Len() - 1,
	}
	if user, ok := c.deps.Directory.ResolveUser(c.guildID, r.UserID()); ok {
		info.RequesterName = user.DisplayName
		info.RequesterAvatarURL = user.AvatarURL
	}
	return info
}
