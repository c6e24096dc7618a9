package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

func (c *Contract) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.timeouts.Operation)
}

// withTimeout marks deadline errors as domain.ErrTimeout.
func withTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}

func (c *Contract) botChannel() (snowflake.ID, bool) {
	return c.deps.Directory.BotVoiceChannel(c.guildID)
}

func (c *Contract) isValid(r domain.Request) bool {
	return domain.IsChannelPopulated(c.deps.Directory, c.guildID, r.ChannelID())
}

// inFlight reports whether the head of the queue is the request being played.
// A contract on standby after waiting has an empty queue and nothing in flight.
func (c *Contract) inFlight() bool {
	return c.mode.Active() && !c.queue.IsEmpty()
}

// isInFlight reports whether identifier belongs to the started request at the head.
func (c *Contract) isInFlight(identifier string) bool {
	return c.inFlight() && c.queue.Head().Started() &&
		c.queue.Head().Metadata().Identifier == identifier
}

func (c *Contract) setMode(mode domain.Mode) {
	if mode == c.mode {
		return
	}

	c.logger.Info("mode changed", "from", c.mode, "to", mode)
	modeTransitions.WithLabelValues(c.mode.String(), mode.String()).Inc()

	c.prevMode = c.mode
	c.mode = mode

	if c.timer != nil && c.timerMode != mode {
		c.cancelTimer()
	}
}

// armTimer replaces the pending timer with one that idles the contract after d,
// provided it is still in mode by then.
func (c *Contract) armTimer(d time.Duration, mode domain.Mode) {
	c.cancelTimer()

	gen := c.timerGen
	c.timerMode = mode
	c.timer = c.deps.Clock.AfterFunc(d, func() {
		c.post(func() {
			if c.timerGen != gen || c.mode != mode {
				return
			}
			c.logger.Info("timer expired", "mode", mode, "after", d)
			c.idle()
		})
	})
}

func (c *Contract) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// move joins channelID unless the bot already sits there.
func (c *Contract) move(channelID snowflake.ID) error {
	channel, ok := c.deps.Directory.ResolveChannel(c.guildID, channelID)
	if !ok {
		return domain.ErrUnresolvedChannel
	}
	if !channel.IsVoice() {
		return domain.ErrNonVoiceChannel
	}

	if current, ok := c.botChannel(); ok && current == channelID {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.timeouts.Join)
	defer cancel()

	if err := c.deps.Voice.JoinChannel(ctx, c.guildID, channelID); err != nil {
		return fmt.Errorf("failed to join voice channel: %w", withTimeout(err))
	}

	c.logger.Info("joined voice channel", "channel", channelID)
	return nil
}

// play joins the channel of the head and starts it, or resumes it if it was started
// before. Failures are reported.
func (c *Contract) play() error {
	head := c.queue.Head()
	if head == nil {
		return nil
	}

	if err := c.move(head.ChannelID()); err != nil {
		playFailures.Inc()
		c.logger.Error("failed to join voice channel", "error", err, "channel", head.ChannelID())
		c.report("Could not join the voice channel.")
		return err
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	var err error
	switch {
	case !head.Started():
		err = head.Play(ctx, c.deps.Player)
	case head.Paused():
		if err = head.Resume(ctx); err != nil {
			c.logger.Warn("failed to resume request, restarting", "error", err, "request", head.ID())
			err = head.Play(ctx, c.deps.Player)
		}
	}
	if err != nil {
		err = withTimeout(err)
		playFailures.Inc()
		c.logger.Error("failed to play request", "error", err, "request", head.ID())
		c.report(fmt.Sprintf("Could not play **%s**.", head.Metadata().Title))
		return fmt.Errorf("failed to play request: %w", err)
	}

	c.cancelTimer()
	c.setMode(domain.ModePlaying)
	c.sendNowPlaying(head)

	if channelID, ok := c.botChannel(); ok && !domain.IsChannelPopulated(c.deps.Directory, c.guildID, channelID) {
		c.startStandby()
	}
	return nil
}

// transition drops the request in flight and plays the next one.
func (c *Contract) transition() {
	if !c.inFlight() {
		return
	}

	finished := c.queue.Shift()
	c.logger.Debug("request finished", "request", finished.ID())

	if c.queue.IsEmpty() {
		c.drain()
		return
	}
	if err := c.play(); err != nil {
		c.skip(1)
	}
}

func (c *Contract) skipTo(minRequests int) []domain.Request {
	skipped := c.queue.SkipTo(minRequests, c.inFlight(), c.isValid)
	if len(skipped) > 0 {
		skippedRequests.Add(float64(len(skipped)))
		c.logger.Info("requests skipped", "count", len(skipped))
	}
	return skipped
}

func (c *Contract) skip(minRequests int) []domain.Request {
	skipped := c.skipTo(minRequests)
	c.transition()
	return skipped
}

// drain settles an exhausted queue.
func (c *Contract) drain() {
	_, connected := c.botChannel()
	if domain.AfterQueueDrained(connected) == domain.ModeWaiting {
		c.wait()
		return
	}
	c.idle()
}

func (c *Contract) standbyToggle() {
	channelID, connected := c.botChannel()
	populated := connected && domain.IsChannelPopulated(c.deps.Directory, c.guildID, channelID)

	switch domain.DecidePresence(c.mode, connected, populated) {
	case domain.PresenceIdle:
		c.idle()
	case domain.PresenceStartStandby:
		c.startStandby()
	case domain.PresenceEndStandby:
		c.endStandby()
	}
}

// startStandby pauses the request in flight, if any, and idles the contract after
// the standby timeout.
func (c *Contract) startStandby() {
	switch c.mode {
	case domain.ModePlaying, domain.ModePaused, domain.ModeWaiting:
	default:
		return
	}

	wasPlaying := c.mode == domain.ModePlaying
	c.setMode(domain.ModeStandby)

	if head := c.queue.Head(); wasPlaying && head != nil {
		ctx, cancel := c.operationContext()
		defer cancel()
		if err := head.Pause(ctx); err != nil {
			c.logger.Warn("failed to pause request for standby", "error", withTimeout(err), "request", head.ID())
		}
	}

	c.armTimer(c.timeouts.Standby, domain.ModeStandby)
}

func (c *Contract) endStandby() {
	if c.mode != domain.ModeStandby {
		return
	}

	switch domain.StandbyExitFor(c.prevMode) {
	case domain.ExitPlay:
		if c.queue.IsEmpty() {
			c.drain()
			return
		}
		if channelID, ok := c.botChannel(); ok {
			if err := c.queue.Head().SetChannelID(channelID); err != nil {
				c.logger.Warn("failed to retarget request", "error", err, "channel", channelID)
			}
		}
		if err := c.play(); err != nil {
			c.skip(1)
		}
	case domain.ExitPause:
		c.cancelTimer()
		c.setMode(domain.ModePaused)
		c.notice("Playback is paused. Use `/resume` to continue.")
	case domain.ExitWait:
		c.wait()
	default:
		c.idle()
	}
}

// wait empties the queue and idles the contract after the waiting timeout.
func (c *Contract) wait() {
	wasInFlight := c.inFlight()
	c.queue.Clear()

	if wasInFlight {
		c.stopPlayer()
	}
	if c.mode != domain.ModeWaiting {
		c.setMode(domain.ModeWaiting)
		c.armTimer(c.timeouts.Waiting, domain.ModeWaiting)
	}
}

// idle empties the queue, stops the player and leaves the voice channel.
func (c *Contract) idle() {
	c.cancelTimer()
	c.queue.Clear()

	if c.mode == domain.ModeIdle {
		return
	}
	c.setMode(domain.ModeIdle)
	c.stopPlayer()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeouts.Join)
	defer cancel()
	if err := c.deps.Voice.LeaveChannel(ctx, c.guildID); err != nil {
		c.logger.Warn("failed to leave voice channel", "error", err)
	}
}

func (c *Contract) stopPlayer() {
	ctx, cancel := c.operationContext()
	defer cancel()
	if err := c.deps.Player.Stop(ctx); err != nil {
		c.logger.Warn("failed to stop player", "error", err)
	}
}
