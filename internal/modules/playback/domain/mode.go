package domain

// Mode is the playback state of a guild contract.
type Mode int

const (
	ModeIdle    Mode = iota // Disconnected, queue empty
	ModeWaiting             // Connected with an empty queue, timing out toward Idle
	ModeStandby             // Connected, head paused because nobody is listening
	ModePlaying             // Streaming the head of the queue
	ModePaused              // Head paused by command
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeWaiting:
		return "waiting"
	case ModeStandby:
		return "standby"
	case ModePlaying:
		return "playing"
	case ModePaused:
		return "paused"
	default:
		return "idle"
	}
}

// ParseMode converts a string to a Mode. Unknown strings map to ModeIdle.
func ParseMode(s string) Mode {
	switch s {
	case "waiting":
		return ModeWaiting
	case "standby":
		return ModeStandby
	case "playing":
		return ModePlaying
	case "paused":
		return ModePaused
	default:
		return ModeIdle
	}
}

// Active reports whether the mode owns an in-flight request at the head of the queue.
func (m Mode) Active() bool {
	return m == ModePlaying || m == ModePaused || m == ModeStandby
}

// CanPause reports whether a pause command is accepted in this mode.
func (m Mode) CanPause() bool {
	return m == ModePlaying
}

// CanResume reports whether a resume command is accepted in this mode.
func (m Mode) CanResume() bool {
	return m == ModePaused
}

// AfterQueueDrained returns the mode a contract falls back to once its queue is exhausted.
func AfterQueueDrained(connected bool) Mode {
	if connected {
		return ModeWaiting
	}
	return ModeIdle
}
