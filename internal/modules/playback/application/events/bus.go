package events

import (
	"log/slog"
	"sync"

	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time check that Bus implements ports.EventPublisher.
var _ ports.EventPublisher = (*Bus)(nil)

// Bus provides a channel-based event bus that decouples transport callbacks from
// the contracts consuming them.
type Bus struct {
	playerFinished  chan PlayerFinishedEvent
	playerError     chan PlayerErrorEvent
	connectionError chan ConnectionErrorEvent

	closed bool
	mu     sync.RWMutex
}

// NewBus creates a new Bus with the given buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	return &Bus{
		playerFinished:  make(chan PlayerFinishedEvent, bufferSize),
		playerError:     make(chan PlayerErrorEvent, bufferSize),
		connectionError: make(chan ConnectionErrorEvent, bufferSize),
	}
}

// publish sends event on ch without blocking. If the buffer is full, the event is
// dropped with a warning.
func publish[T any](b *Bus, ch chan T, eventType string, event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return
	}

	select {
	case ch <- event:
		slog.Debug("published event", "type", eventType)
	default:
		slog.Warn("event buffer full, dropping event", "type", eventType)
	}
}

// PublishPlayerFinished publishes a PlayerFinishedEvent.
func (b *Bus) PublishPlayerFinished(event PlayerFinishedEvent) {
	publish(b, b.playerFinished, "PlayerFinished", event)
}

// PublishPlayerError publishes a PlayerErrorEvent.
func (b *Bus) PublishPlayerError(event PlayerErrorEvent) {
	publish(b, b.playerError, "PlayerError", event)
}

// PublishConnectionError publishes a ConnectionErrorEvent.
func (b *Bus) PublishConnectionError(event ConnectionErrorEvent) {
	publish(b, b.connectionError, "ConnectionError", event)
}

// PlayerFinished returns the channel for PlayerFinishedEvent.
func (b *Bus) PlayerFinished() <-chan PlayerFinishedEvent {
	return b.playerFinished
}

// PlayerError returns the channel for PlayerErrorEvent.
func (b *Bus) PlayerError() <-chan PlayerErrorEvent {
	return b.playerError
}

// ConnectionError returns the channel for ConnectionErrorEvent.
func (b *Bus) ConnectionError() <-chan ConnectionErrorEvent {
	return b.connectionError
}

// Close closes all event channels.
// After calling Close, publishing will no longer send events.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.playerFinished)
	close(b.playerError)
	close(b.connectionError)

	slog.Debug("event bus closed")
}
