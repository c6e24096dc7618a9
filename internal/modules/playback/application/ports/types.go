package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// LoadResult represents the result of loading tracks.
type LoadResult struct {
	Type   LoadType
	Tracks []*TrackInfo
	Error  string // Set for LoadTypeError
}

// LoadType represents the type of load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// TrackInfo contains information about a loaded track.
type TrackInfo struct {
	Identifier string // Source identifier, e.g. the YouTube video ID
	Encoded    string
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string // e.g., "youtube", "soundcloud"
	IsStream   bool
}

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Title              string
	Creator            string
	Length             string
	ResourceURL        string
	ThumbnailURL       string
	SourceName         string
	Live               bool
	Start              time.Duration
	End                time.Duration
	RequesterID        snowflake.ID
	RequesterName      string
	RequesterAvatarURL string
	Position           int // Number of requests queued behind this one
}
