package contract

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// AddResult is the outcome of Add.
type AddResult struct {
	Position int         // Index the request was inserted at
	Mode     domain.Mode // Mode after the insertion
}

// SkipResult is the outcome of Skip.
type SkipResult struct {
	Previous domain.Request   // Request that was in flight
	Skipped  []domain.Request // Requests discarded on the way, excluding Previous
	Current  domain.Request   // New request in flight, or nil
}

// Playing reports whether a request is playing after the skip.
func (r SkipResult) Playing() bool {
	return r.Current != nil
}

// Add inserts r at index, clamped into the queue bounds. A negative index appends.
// When r is the only request it is played right away.
func (c *Contract) Add(ctx context.Context, r domain.Request, index int) (AddResult, error) {
	if !r.Ready() {
		return AddResult{}, ErrRequestNotReady
	}
	if r.GuildID() != c.guildID {
		return AddResult{}, ErrForeignRequest
	}

	return call(ctx, c, func() (AddResult, error) {
		if index < 0 {
			index = c.queue.Len()
		}
		// The head stays in flight.
		if c.inFlight() {
			index = max(index, 1)
		}

		var result AddResult
		result.Position = c.queue.Insert(index, r)
		c.logger.Info("request added",
			"request", r.ID(),
			"title", r.Metadata().Title,
			"position", result.Position,
		)

		if c.queue.Len() == 1 {
			if err := c.play(); err != nil {
				c.drain()
			}
		}
		result.Mode = c.mode
		return result, nil
	})
}

// Remove removes the request at index. Removing the request in flight skips it.
func (c *Contract) Remove(ctx context.Context, index int) (domain.Request, error) {
	return call(ctx, c, func() (domain.Request, error) {
		r, ok := c.queue.At(index)
		if !ok {
			return nil, ErrInvalidPosition
		}

		if index == 0 && c.inFlight() {
			c.skip(1)
			return r, nil
		}
		c.queue.RemoveAt(index)
		return r, nil
	})
}

// Skip discards the request in flight plus at least count-1 further requests, then
// every following request whose channel has nobody listening, and plays the next one.
func (c *Contract) Skip(ctx context.Context, count int) (SkipResult, error) {
	count = max(count, 1)

	return call(ctx, c, func() (SkipResult, error) {
		if !c.inFlight() {
			return SkipResult{}, ErrNotPlaying
		}

		result := SkipResult{Previous: c.queue.Head()}
		result.Skipped = c.skip(count)
		if c.inFlight() {
			result.Current = c.queue.Head()
		}
		return result, nil
	})
}

// Move joins the voice channel channelID and retargets the request in flight to it.
func (c *Contract) Move(ctx context.Context, channelID snowflake.ID) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		if err := c.move(channelID); err != nil {
			return struct{}{}, err
		}

		switch {
		case c.inFlight():
			if err := c.queue.Head().SetChannelID(channelID); err != nil {
				c.logger.Warn("failed to retarget request", "error", err, "channel", channelID)
			}
		case c.mode == domain.ModeIdle:
			c.wait()
		}
		c.standbyToggle()
		return struct{}{}, nil
	})
	return err
}

// Pause pauses the request in flight. Only accepted while playing.
func (c *Contract) Pause(ctx context.Context) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		if !c.mode.CanPause() {
			return struct{}{}, ErrNotPlaying
		}

		head := c.queue.Head()
		opCtx, cancel := c.operationContext()
		defer cancel()

		if err := head.Pause(opCtx); err != nil {
			err = withTimeout(err)
			c.logger.Error("failed to pause request", "error", err, "request", head.ID())
			c.report(fmt.Sprintf("Could not pause **%s**.", head.Metadata().Title))
			return struct{}{}, fmt.Errorf("failed to pause request: %w", err)
		}

		c.setMode(domain.ModePaused)
		c.cancelTimer()
		return struct{}{}, nil
	})
	return err
}

// Resume resumes the paused request. If it cannot be resumed it is skipped.
func (c *Contract) Resume(ctx context.Context) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		if !c.mode.CanResume() {
			return struct{}{}, ErrNotPaused
		}

		if err := c.play(); err != nil {
			c.skip(1)
			return struct{}{}, fmt.Errorf("failed to resume request: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// Stop clears the queue and leaves the voice channel.
func (c *Contract) Stop(ctx context.Context) error {
	return c.do(ctx, c.idle)
}

// SetHomeID sets the text channel status messages are sent to. A nil id unsets it.
func (c *Contract) SetHomeID(ctx context.Context, channelID *snowflake.ID) error {
	if channelID != nil {
		channel, ok := c.deps.Directory.ResolveChannel(c.guildID, *channelID)
		if !ok {
			return domain.ErrUnresolvedChannel
		}
		if !channel.IsText() {
			return domain.ErrNonTextChannel
		}
	}

	_, err := call(ctx, c, func() (struct{}, error) {
		c.homeID = channelID
		if err := c.persist(); err != nil {
			return struct{}{}, err
		}
		if c.mode == domain.ModePlaying {
			c.sendNowPlaying(c.queue.Head())
		}
		return struct{}{}, nil
	})
	return err
}

// OnPlayerFinished advances the queue when the request in flight ends on its own.
func (c *Contract) OnPlayerFinished(identifier string) {
	c.post(func() {
		if !c.isInFlight(identifier) {
			c.logger.Debug("ignoring stale player finished event", "identifier", identifier)
			return
		}
		c.transition()
	})
}

// OnPlayerError reports a failure of the request in flight and skips it.
func (c *Contract) OnPlayerError(identifier, message string) {
	c.post(func() {
		if !c.isInFlight(identifier) {
			c.logger.Debug("ignoring stale player error event", "identifier", identifier)
			return
		}

		head := c.queue.Head()
		c.logger.Error("player error", "request", head.ID(), "message", message)
		c.report(fmt.Sprintf("Playback of **%s** failed: %s", head.Metadata().Title, message))
		c.skip(1)
	})
}

// OnConnectionError reports a voice connection failure and drops the request in flight.
func (c *Contract) OnConnectionError(message string) {
	c.post(func() {
		c.logger.Error("voice connection error", "message", message, "mode", c.mode)
		c.report(fmt.Sprintf("Voice connection error: %s", message))
		c.transition()
	})
}

// OnConnectionDestroyed resets the contract after the bot lost its voice connection.
func (c *Contract) OnConnectionDestroyed() {
	c.post(func() {
		if c.mode != domain.ModeIdle {
			c.logger.Warn("voice connection destroyed", "mode", c.mode)
		}
		c.idle()
	})
}

// OnPresenceChanged re-evaluates standby after members joined or left a voice channel.
func (c *Contract) OnPresenceChanged() {
	c.post(c.standbyToggle)
}
