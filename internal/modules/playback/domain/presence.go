package domain

// PresenceAction is the reaction of a contract to a change in voice channel population.
type PresenceAction int

const (
	PresenceNone PresenceAction = iota
	PresenceIdle
	PresenceStartStandby
	PresenceEndStandby
)

// String returns a human-readable representation of the action.
func (a PresenceAction) String() string {
	switch a {
	case PresenceIdle:
		return "idle"
	case PresenceStartStandby:
		return "start_standby"
	case PresenceEndStandby:
		return "end_standby"
	default:
		return "none"
	}
}

// DecidePresence maps the current mode and the bot's voice situation to an action.
//
// A bot without a voice channel is forced to Idle. A Standby contract whose channel
// filled up again leaves standby. A Waiting, Paused or Playing contract whose channel
// emptied enters standby.
func DecidePresence(mode Mode, botConnected, populated bool) PresenceAction {
	if !botConnected {
		if mode != ModeIdle {
			return PresenceIdle
		}
		return PresenceNone
	}

	switch mode {
	case ModeStandby:
		if populated {
			return PresenceEndStandby
		}
	case ModeWaiting, ModePlaying, ModePaused:
		if !populated {
			return PresenceStartStandby
		}
	}

	return PresenceNone
}

// StandbyExit is how a contract leaves Standby.
type StandbyExit int

const (
	ExitIdle StandbyExit = iota
	ExitPlay
	ExitPause
	ExitWait
)

// StandbyExitFor returns the exit path for a contract that entered Standby from prev.
func StandbyExitFor(prev Mode) StandbyExit {
	switch prev {
	case ModePlaying:
		return ExitPlay
	case ModePaused:
		return ExitPause
	case ModeWaiting:
		return ExitWait
	default:
		return ExitIdle
	}
}
