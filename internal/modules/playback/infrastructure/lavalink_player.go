package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// guildPlayer is the Lavalink player of one guild.
type guildPlayer struct {
	link    disgolink.Client
	guildID snowflake.ID
}

var _ domain.Player = (*guildPlayer)(nil)

func toLavalinkDuration(d time.Duration) lavalink.Duration {
	return lavalink.Duration(d.Milliseconds())
}

// Play starts track from its start bound, replacing whatever was playing.
func (p *guildPlayer) Play(ctx context.Context, track domain.PlayableTrack) error {
	opts := []lavalink.PlayerUpdateOpt{
		lavalink.WithEncodedTrack(track.Identifier),
		lavalink.WithPaused(false),
		lavalink.WithPosition(toLavalinkDuration(track.Start)),
	}
	if track.End > 0 {
		opts = append(opts, lavalink.WithEndTime(toLavalinkDuration(track.End)))
	}

	if err := p.link.Player(p.guildID).Update(ctx, opts...); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// Pause pauses the current playback.
func (p *guildPlayer) Pause(ctx context.Context) error {
	if err := p.link.Player(p.guildID).Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// Resume resumes the current playback.
func (p *guildPlayer) Resume(ctx context.Context) error {
	if err := p.link.Player(p.guildID).Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// Stop stops the current playback. A guild without a player has nothing to stop.
func (p *guildPlayer) Stop(ctx context.Context) error {
	player := p.link.ExistingPlayer(p.guildID)
	if player == nil {
		return nil
	}
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}
