package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// pendingJoin is closed once the gateway delivered both halves of a voice connection.
type pendingJoin struct {
	mu        sync.Mutex
	gotState  bool
	gotServer bool
	ready     chan struct{}
}

func newPendingJoin() *pendingJoin {
	return &pendingJoin{ready: make(chan struct{})}
}

func (p *pendingJoin) mark(state bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state {
		p.gotState = true
	} else {
		p.gotServer = true
	}

	if p.gotState && p.gotServer {
		select {
		case <-p.ready:
		default:
			close(p.ready)
		}
	}
}

// voiceUpdate collects a VoiceStateUpdate and a VoiceServerUpdate so they can be
// forwarded to Lavalink together, in order, whatever order the gateway sent them in.
type voiceUpdate struct {
	mu sync.Mutex

	gotState  bool
	channelID *snowflake.ID
	sessionID string

	gotServer bool
	token     string
	endpoint  string
}

// setState stores the state half and reports whether the update is complete.
func (u *voiceUpdate) setState(channelID *snowflake.ID, sessionID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.gotState = true
	u.channelID = channelID
	u.sessionID = sessionID
	return u.gotServer
}

// setServer stores the server half and reports whether the update is complete.
func (u *voiceUpdate) setServer(token, endpoint string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.gotServer = true
	u.token = token
	u.endpoint = endpoint
	return u.gotState
}

// take returns the collected update and resets it.
func (u *voiceUpdate) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	channelID, sessionID, token, endpoint = u.channelID, u.sessionID, u.token, u.endpoint
	u.gotState, u.gotServer = false, false
	u.channelID, u.sessionID, u.token, u.endpoint = nil, "", "", ""
	return
}
