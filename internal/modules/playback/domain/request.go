package domain

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// RequestID uniquely identifies a queued request.
type RequestID string

// NewRequestID returns a random RequestID.
func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

// RequestKind is the kind of input a request was produced from.
type RequestKind int

const (
	KindTrack  RequestKind = iota // Direct link to a single track
	KindSearch                    // Free-text search, first result wins
)

// String returns a human-readable representation of the kind.
func (k RequestKind) String() string {
	switch k {
	case KindSearch:
		return "search"
	default:
		return "track"
	}
}

// Metadata describes the resource behind a request. It is zero until the request is ready.
type Metadata struct {
	Identifier   string // Transport handle of the playable stream
	Title        string
	Creator      string
	ResourceURL  string
	ThumbnailURL string
	SourceName   string // e.g. "youtube", "soundcloud"
	Length       time.Duration
	Live         bool
	Upcoming     bool
}

// Source returns the parsed TrackSource of the resource.
func (m Metadata) Source() TrackSource {
	return ParseTrackSource(m.SourceName)
}

// FormattedLength returns the length for display, or LIVE for streams.
func (m Metadata) FormattedLength() string {
	if m.Live {
		return "LIVE"
	}
	return FormatDuration(m.Length)
}

// PlayableTrack is what a Player needs to start a stream.
type PlayableTrack struct {
	Identifier string
	Start      time.Duration
	End        time.Duration // Zero plays to the end
}

// Player is the audio player handle owned by a single guild.
type Player interface {
	Play(ctx context.Context, track PlayableTrack) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Request is a single playable queue item.
//
// Requests are created synchronously (validating ids and trim bounds) and become
// eligible for a queue only after Init succeeds.
type Request interface {
	ID() RequestID
	Kind() RequestKind
	Input() string
	GuildID() snowflake.ID
	ChannelID() snowflake.ID
	SetChannelID(channelID snowflake.ID) error
	UserID() snowflake.ID
	Start() time.Duration
	End() time.Duration
	Ready() bool
	Started() bool
	Paused() bool
	Metadata() Metadata

	// Init resolves the resource behind the request.
	Init(ctx context.Context) error

	// Play attaches the request to player and starts it from its start bound.
	Play(ctx context.Context, player Player) error

	// Pause pauses the attached player. Pausing a paused request is a no-op.
	Pause(ctx context.Context) error

	// Resume resumes the attached player. Live requests are restarted instead.
	Resume(ctx context.Context) error
}
