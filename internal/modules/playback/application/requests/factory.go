package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// CreateParams contains the input for creating a request.
type CreateParams struct {
	Input     string
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	Start     time.Duration
	End       time.Duration
}

// Factory turns user input into ready requests.
type Factory struct {
	resolver  ports.TrackResolver
	directory domain.Directory
	timeout   time.Duration
}

// NewFactory creates a new Factory. timeout bounds the resolution of each request.
func NewFactory(resolver ports.TrackResolver, directory domain.Directory, timeout time.Duration) *Factory {
	return &Factory{
		resolver:  resolver,
		directory: directory,
		timeout:   timeout,
	}
}

// Create validates params, classifies the input and resolves the resource behind it.
// The returned request is ready to be queued.
func (f *Factory) Create(ctx context.Context, params CreateParams) (domain.Request, error) {
	query, err := domain.ParseSearchQuery(params.Input)
	if err != nil {
		return nil, err
	}

	base, err := domain.NewRequestBase(f.directory, domain.RequestParams{
		Input:     query.Query,
		GuildID:   params.GuildID,
		ChannelID: params.ChannelID,
		UserID:    params.UserID,
		Start:     params.Start,
		End:       params.End,
	})
	if err != nil {
		return nil, err
	}

	var request domain.Request
	switch query.Kind {
	case domain.KindSearch:
		request = &SearchRequest{RequestBase: base, resolver: f.resolver, query: query.LavalinkQuery()}
	default:
		request = &TrackRequest{RequestBase: base, resolver: f.resolver, query: query.LavalinkQuery()}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := request.Init(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		slog.Debug("failed to resolve request", "error", err, "kind", request.Kind(), "input", query.Query)
		return nil, err
	}

	return request, nil
}
