package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnresolvedChannel    = errors.New("channel could not be resolved")
	ErrUnresolvedUser       = errors.New("user could not be resolved")
	ErrUnresolvedGuild      = errors.New("guild could not be resolved")
	ErrNonVoiceChannel      = errors.New("channel is not a voice channel")
	ErrNonTextChannel       = errors.New("channel is not a text channel")
	ErrNoResults            = errors.New("no results found")
	ErrTimeout              = errors.New("operation timed out")
	ErrUninitializedRequest = errors.New("request has not been initialized")
	ErrRequestNotStarted    = errors.New("request has not been started")
	ErrRequestNotPaused     = errors.New("request is not paused")
)

// BadRequestReason explains why user input was rejected.
type BadRequestReason string

const (
	BadRequestInvalid     BadRequestReason = "invalid"
	BadRequestUnknown     BadRequestReason = "unknown"
	BadRequestUnsupported BadRequestReason = "unsupported"
)

// BadRequestError is returned when user input cannot become a request.
type BadRequestError struct {
	Reason BadRequestReason
	Input  string
}

func (e *BadRequestError) Error() string {
	switch e.Reason {
	case BadRequestUnknown:
		return fmt.Sprintf("unknown input type: %q", e.Input)
	case BadRequestUnsupported:
		return fmt.Sprintf("unsupported input type: %q", e.Input)
	default:
		return fmt.Sprintf("invalid input: %q", e.Input)
	}
}

// DurationError is returned for trim bounds that do not fit a request.
type DurationError struct {
	Start  time.Duration
	End    time.Duration
	Length time.Duration
	Reason string
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("invalid trim bounds %s-%s: %s", FormatDuration(e.Start), FormatDuration(e.End), e.Reason)
}

// ResourceReason classifies why a resource could not be obtained.
type ResourceReason string

const (
	ResourceUnreachable   ResourceReason = "unreachable"
	ResourceAgeRestricted ResourceReason = "age_restricted"
	ResourceLoadFailed    ResourceReason = "load_failed"
)

// ResourceError is returned when the external resolver or stream fails.
type ResourceError struct {
	Reason ResourceReason
	Err    error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource unobtainable: %s", e.Reason)
	}
	return fmt.Sprintf("resource unobtainable: %s: %v", e.Reason, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
