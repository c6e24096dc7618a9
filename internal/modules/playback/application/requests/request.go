package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// ageRestrictionMarkers are fragments of resolver messages for age-gated media.
var ageRestrictionMarkers = []string{
	"age restricted",
	"age-restricted",
	"confirm your age",
	"inappropriate for some users",
}

// TrackRequest is a request for a direct link to a single track.
type TrackRequest struct {
	*domain.RequestBase
	resolver ports.TrackResolver
	query    string
}

// Kind returns domain.KindTrack.
func (r *TrackRequest) Kind() domain.RequestKind {
	return domain.KindTrack
}

// Init loads the linked track.
func (r *TrackRequest) Init(ctx context.Context) error {
	return initRequest(ctx, r.RequestBase, r.resolver, r.query)
}

// SearchRequest is a free-text request that plays the first search result.
type SearchRequest struct {
	*domain.RequestBase
	resolver ports.TrackResolver
	query    string
}

// Kind returns domain.KindSearch.
func (r *SearchRequest) Kind() domain.RequestKind {
	return domain.KindSearch
}

// Init runs the search and keeps the first result.
func (r *SearchRequest) Init(ctx context.Context) error {
	return initRequest(ctx, r.RequestBase, r.resolver, r.query)
}

func initRequest(
	ctx context.Context,
	base *domain.RequestBase,
	resolver ports.TrackResolver,
	query string,
) error {
	info, err := resolve(ctx, resolver, query)
	if err != nil {
		return err
	}
	return base.MarkReady(metadataFromTrack(info))
}

// resolve loads query and returns the first track of the result.
func resolve(ctx context.Context, resolver ports.TrackResolver, query string) (*ports.TrackInfo, error) {
	result, err := resolver.LoadTracks(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return nil, &domain.ResourceError{Reason: domain.ResourceUnreachable, Err: err}
	}

	switch result.Type {
	case ports.LoadTypeError:
		reason := domain.ResourceLoadFailed
		if isAgeRestricted(result.Error) {
			reason = domain.ResourceAgeRestricted
		}
		return nil, &domain.ResourceError{Reason: reason, Err: errors.New(result.Error)}
	case ports.LoadTypeEmpty:
		return nil, domain.ErrNoResults
	}

	if len(result.Tracks) == 0 {
		return nil, domain.ErrNoResults
	}
	return result.Tracks[0], nil
}

func isAgeRestricted(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range ageRestrictionMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// unknownCreator stands in for tracks without an author; embed fields cannot be empty.
const unknownCreator = "Unknown"

func metadataFromTrack(info *ports.TrackInfo) domain.Metadata {
	return domain.Metadata{
		Identifier:   info.Encoded,
		Title:        info.Title,
		Creator:      lo.CoalesceOrEmpty(info.Artist, unknownCreator),
		ResourceURL:  info.URI,
		ThumbnailURL: info.ArtworkURL,
		SourceName:   info.SourceName,
		Length:       info.Duration,
		Live:         info.IsStream,
	}
}
