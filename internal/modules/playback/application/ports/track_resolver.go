package ports

import (
	"context"
)

// TrackResolver looks up playable resources on the audio node.
type TrackResolver interface {
	// LoadTracks resolves query, a link or a prefixed search such as "ytsearch:...".
	// A query without results is not an error; it yields LoadTypeEmpty.
	LoadTracks(ctx context.Context, query string) (*LoadResult, error)
}
