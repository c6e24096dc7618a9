package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// RequestParams are the user-supplied fields of a request.
type RequestParams struct {
	Input     string
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	Start     time.Duration
	End       time.Duration // Zero means no end bound
}

// RequestBase holds the state shared by every request kind.
// Concrete requests embed it and provide Kind and Init.
type RequestBase struct {
	id        RequestID
	input     string
	guildID   snowflake.ID
	userID    snowflake.ID
	start     time.Duration
	end       time.Duration
	directory Directory

	mu        sync.RWMutex
	channelID snowflake.ID
	ready     bool
	started   bool
	paused    bool
	metadata  Metadata
	player    Player
}

// NewRequestBase validates params against the directory and returns a request base.
// A zero end bound plays to the end of the track.
func NewRequestBase(dir Directory, params RequestParams) (*RequestBase, error) {
	input := strings.TrimSpace(params.Input)
	if input == "" {
		return nil, &BadRequestError{Reason: BadRequestInvalid, Input: params.Input}
	}

	if _, ok := dir.ResolveUser(params.GuildID, params.UserID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedUser, params.UserID)
	}
	if err := validateVoiceChannel(dir, params.GuildID, params.ChannelID); err != nil {
		return nil, err
	}

	start, end := params.Start, params.End
	if start < 0 || end < 0 {
		return nil, &DurationError{Start: start, End: end, Reason: "bounds must not be negative"}
	}
	if end > 0 && start > end {
		return nil, &DurationError{Start: start, End: end, Reason: "start must not be after end"}
	}

	return &RequestBase{
		id:        NewRequestID(),
		input:     input,
		guildID:   params.GuildID,
		channelID: params.ChannelID,
		userID:    params.UserID,
		start:     start,
		end:       end,
		directory: dir,
	}, nil
}

func validateVoiceChannel(dir Directory, guildID, channelID snowflake.ID) error {
	channel, ok := dir.ResolveChannel(guildID, channelID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnresolvedChannel, channelID)
	}
	if !channel.IsVoice() {
		return fmt.Errorf("%w: %s", ErrNonVoiceChannel, channelID)
	}
	return nil
}

func (r *RequestBase) ID() RequestID         { return r.id }
func (r *RequestBase) Input() string         { return r.input }
func (r *RequestBase) GuildID() snowflake.ID { return r.guildID }
func (r *RequestBase) UserID() snowflake.ID  { return r.userID }
func (r *RequestBase) Start() time.Duration  { return r.start }
func (r *RequestBase) End() time.Duration    { return r.end }
func (r *RequestBase) Directory() Directory  { return r.directory }

func (r *RequestBase) ChannelID() snowflake.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channelID
}

// SetChannelID retargets the request to another voice channel.
func (r *RequestBase) SetChannelID(channelID snowflake.ID) error {
	if err := validateVoiceChannel(r.directory, r.guildID, channelID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelID = channelID
	return nil
}

func (r *RequestBase) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *RequestBase) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

func (r *RequestBase) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

func (r *RequestBase) Metadata() Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metadata
}

// MarkReady stores the resolved metadata after checking the trim bounds against it.
func (r *RequestBase) MarkReady(metadata Metadata) error {
	if metadata.Identifier == "" {
		return ErrUninitializedRequest
	}
	if err := r.checkBounds(metadata); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = metadata
	r.ready = true
	return nil
}

func (r *RequestBase) checkBounds(metadata Metadata) error {
	if r.start == 0 && r.end == 0 {
		return nil
	}
	if metadata.Live {
		return &DurationError{Start: r.start, End: r.end, Reason: "live streams cannot be trimmed"}
	}
	if metadata.Length > 0 && (r.start > metadata.Length || r.end > metadata.Length) {
		return &DurationError{
			Start:  r.start,
			End:    r.end,
			Length: metadata.Length,
			Reason: fmt.Sprintf("bounds exceed length %s", FormatDuration(metadata.Length)),
		}
	}
	return nil
}

// Play starts the resolved stream on player.
func (r *RequestBase) Play(ctx context.Context, player Player) error {
	r.mu.RLock()
	ready, metadata := r.ready, r.metadata
	r.mu.RUnlock()

	if !ready {
		return ErrUninitializedRequest
	}

	track := PlayableTrack{
		Identifier: metadata.Identifier,
		Start:      r.start,
		End:        r.end,
	}
	if err := player.Play(ctx, track); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.player = player
	r.started = true
	r.paused = false
	return nil
}

// Pause pauses the attached player.
func (r *RequestBase) Pause(ctx context.Context) error {
	r.mu.RLock()
	player, paused := r.player, r.paused
	r.mu.RUnlock()

	if player == nil {
		return ErrRequestNotStarted
	}
	if paused {
		return nil
	}
	if err := player.Pause(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	return nil
}

// Resume resumes the attached player. A live stream cannot continue where it
// stopped, so it is played again from the live edge.
func (r *RequestBase) Resume(ctx context.Context) error {
	r.mu.RLock()
	player, paused, live := r.player, r.paused, r.metadata.Live
	r.mu.RUnlock()

	if player == nil {
		return ErrRequestNotStarted
	}
	if !paused {
		return ErrRequestNotPaused
	}
	if live {
		return r.Play(ctx, player)
	}
	if err := player.Resume(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	return nil
}
