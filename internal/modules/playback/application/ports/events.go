package ports

import "github.com/disgoorg/snowflake/v2"

// PlayerFinishedEvent is published when a track ends on its own.
type PlayerFinishedEvent struct {
	GuildID    snowflake.ID
	Identifier string // Encoded track that ended
}

// PlayerErrorEvent is published when the player fails while streaming.
type PlayerErrorEvent struct {
	GuildID    snowflake.ID
	Identifier string
	Message    string
}

// ConnectionErrorEvent is published when the voice connection reports an error.
type ConnectionErrorEvent struct {
	GuildID snowflake.ID
	Code    int
	Reason  string
}

// EventPublisher defines the interface for publishing transport events asynchronously.
type EventPublisher interface {
	PublishPlayerFinished(event PlayerFinishedEvent)
	PublishPlayerError(event PlayerErrorEvent)
	PublishConnectionError(event ConnectionErrorEvent)
}
