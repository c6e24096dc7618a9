package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/sglre6355/isabelle/internal/modules/playback/application/contract"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// errNotInVoice is returned when no target voice channel could be determined.
var errNotInVoice = errors.New("not in a voice channel")

// userMessage translates an operation error into a message for the invoking user.
// It returns an empty string for errors the user cannot act on.
func userMessage(err error) string {
	var (
		badRequest *domain.BadRequestError
		duration   *domain.DurationError
		resource   *domain.ResourceError
	)

	switch {
	case errors.As(err, &badRequest):
		switch badRequest.Reason {
		case domain.BadRequestUnknown:
			return "Unable to determine what kind of request this is. Please try a different request."
		case domain.BadRequestUnsupported:
			return "This type of request is not supported yet. Please try a different request."
		default:
			return "Request is invalid and cannot be played. Please try a different request."
		}
	case errors.As(err, &duration):
		return fmt.Sprintf("The section %s - %s does not fit this request: %s.",
			domain.FormatDuration(duration.Start), domain.FormatDuration(duration.End), duration.Reason)
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "This took too long. Please try again."
	case errors.As(err, &resource):
		if resource.Reason == domain.ResourceAgeRestricted {
			return "This request is age-restricted and cannot be played. Please try a different request."
		}
		return "Could not obtain the necessary info about this request. Please try again or try a different request."
	case errors.Is(err, domain.ErrNoResults):
		return "There were no search results for this request. Please try a different request."
	case errors.Is(err, errNotInVoice):
		return "Join a voice channel or pick one to play in."
	case errors.Is(err, domain.ErrUnresolvedChannel):
		return "Unable to find that channel. Please try a different channel."
	case errors.Is(err, domain.ErrNonVoiceChannel):
		return "That is not a voice channel the bot can play in. Please try a different channel."
	case errors.Is(err, domain.ErrNonTextChannel):
		return "That is not a text channel. Please try a different channel."
	case errors.Is(err, domain.ErrUnresolvedGuild):
		return "This server is not available to the bot yet. Please try again in a moment."
	case errors.Is(err, domain.ErrUnresolvedUser):
		return "Unable to find that member. Please try a different user."
	case errors.Is(err, contract.ErrNotPlaying):
		return "There's nothing playing. Start playing with /play first."
	case errors.Is(err, contract.ErrNotPaused):
		return "Playback is not paused."
	case errors.Is(err, contract.ErrInvalidPosition):
		return "There is no request at that position. Check /queue for valid positions."
	case errors.Is(err, contract.ErrClosed):
		return "The player is shutting down."
	default:
		return ""
	}
}
