package events

import (
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
)

// Re-export event types from ports for use by the dispatcher.
type (
	PlayerFinishedEvent  = ports.PlayerFinishedEvent
	PlayerErrorEvent     = ports.PlayerErrorEvent
	ConnectionErrorEvent = ports.ConnectionErrorEvent
)
