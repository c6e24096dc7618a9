package contract

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// Default timeouts.
const (
	DefaultOperationTimeout = 3 * time.Second
	DefaultJoinTimeout      = 10 * time.Second
	DefaultWaitingTimeout   = 10 * time.Minute
	DefaultStandbyTimeout   = 2 * time.Minute
)

// mailboxSize bounds the number of pending tasks per contract.
const mailboxSize = 64

// Timeouts bounds the external calls and idle periods of a contract.
type Timeouts struct {
	Operation time.Duration // Resolving, starting, pausing and resuming a request
	Join      time.Duration // Joining a voice channel
	Waiting   time.Duration // Waiting with an empty queue before going idle
	Standby   time.Duration // Standing by in an empty channel before going idle
}

// DefaultTimeouts returns the default timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Operation: DefaultOperationTimeout,
		Join:      DefaultJoinTimeout,
		Waiting:   DefaultWaitingTimeout,
		Standby:   DefaultStandbyTimeout,
	}
}

// Dependencies are the collaborators of a contract.
type Dependencies struct {
	Player    domain.Player
	Voice     ports.VoiceConnection
	Directory domain.Directory
	Notifier  ports.NotificationSender
	Settings  ports.SettingsStore
	Clock     ports.Clock
}

// Option configures a Contract.
type Option func(*Contract)

// WithTimeouts overrides the default timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Contract) {
		c.timeouts = t
	}
}

// WithHomeID sets the initial home channel.
func WithHomeID(id *snowflake.ID) Option {
	return func(c *Contract) {
		c.homeID = id
	}
}

// Snapshot is a consistent view of a contract between two tasks.
type Snapshot struct {
	Mode     domain.Mode
	PrevMode domain.Mode
	Queue    []domain.Request
	HomeID   *snowflake.ID
}

// Current returns the request in flight, or nil if the contract is not active.
func (s Snapshot) Current() domain.Request {
	if !s.Mode.Active() || len(s.Queue) == 0 {
		return nil
	}
	return s.Queue[0]
}

// Contract orchestrates playback for a single guild.
//
// Every operation and every external event runs as a task on the contract's own
// goroutine, one at a time, so queue and mode mutations never interleave. Tasks may
// block on external calls; each such call is bounded by a timeout and only stalls
// this guild.
type Contract struct {
	guildID  snowflake.ID
	deps     Dependencies
	timeouts Timeouts
	logger   *slog.Logger

	// Owned by the loop goroutine.
	mode      domain.Mode
	prevMode  domain.Mode
	queue     *domain.Queue
	homeID    *snowflake.ID
	timer     ports.Timer
	timerMode domain.Mode
	timerGen  uint64

	snapshot atomic.Pointer[Snapshot]

	ctx       context.Context
	cancel    context.CancelFunc
	mailbox   chan func()
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Contract in Idle mode and starts its loop.
func New(guildID snowflake.ID, deps Dependencies, opts ...Option) *Contract {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Contract{
		guildID:  guildID,
		deps:     deps,
		timeouts: DefaultTimeouts(),
		logger:   slog.With("guild", guildID),
		mode:     domain.ModeIdle,
		prevMode: domain.ModeIdle,
		queue:    domain.NewQueue(),
		ctx:      ctx,
		cancel:   cancel,
		mailbox:  make(chan func(), mailboxSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish()

	c.wg.Add(1)
	go c.run()

	return c
}

// GuildID returns the guild the contract belongs to.
func (c *Contract) GuildID() snowflake.ID {
	return c.guildID
}

// Snapshot returns the state as of the last completed task.
func (c *Contract) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Mode returns the current mode.
func (c *Contract) Mode() domain.Mode {
	return c.Snapshot().Mode
}

// Queue returns the queued requests, head first.
func (c *Contract) Queue() []domain.Request {
	return c.Snapshot().Queue
}

// Current returns the request in flight, or nil.
func (c *Contract) Current() domain.Request {
	return c.Snapshot().Current()
}

// HomeID returns the home channel, or nil if none is set.
func (c *Contract) HomeID() *snowflake.ID {
	return c.Snapshot().HomeID
}

// Sync waits until every task submitted before it has completed.
func (c *Contract) Sync(ctx context.Context) error {
	return c.do(ctx, func() {})
}

// Close stops the loop. Pending tasks are dropped; the voice connection is left as is.
func (c *Contract) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.wg.Wait()
		if c.timer != nil {
			c.timer.Stop()
		}
	})
}

func (c *Contract) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case task := <-c.mailbox:
			c.runTask(task)
		}
	}
}

func (c *Contract) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered from panic in contract task", "panic", r, "mode", c.mode)
		}
		c.publish()
	}()

	task()
}

// outcome carries the result of a task back to its caller.
type outcome[T any] struct {
	value T
	err   error
}

// call runs fn on the loop and returns its result. A task still queued when ctx
// ends is dropped; a task that already started runs to completion and is waited for.
func call[T any](ctx context.Context, c *Contract, fn func() (T, error)) (T, error) {
	var (
		zero    T
		claimed atomic.Bool
	)
	results := make(chan outcome[T], 1)

	task := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		out := outcome[T]{err: ErrTaskAborted}
		defer func() { results <- out }()
		out.value, out.err = fn()
	}

	select {
	case c.mailbox <- task:
	case <-c.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case out := <-results:
		return out.value, out.err
	case <-c.done:
		return zero, ErrClosed
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return zero, ctx.Err()
		}
	}

	select {
	case out := <-results:
		return out.value, out.err
	case <-c.done:
		return zero, ErrClosed
	}
}

// do runs fn on the loop and waits for it to complete.
func (c *Contract) do(ctx context.Context, fn func()) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
	return err
}

// post schedules fn on the loop without waiting.
func (c *Contract) post(fn func()) {
	select {
	case c.mailbox <- fn:
	case <-c.done:
	}
}

func (c *Contract) publish() {
	var home *snowflake.ID
	if c.homeID != nil {
		id := *c.homeID
		home = &id
	}

	c.snapshot.Store(&Snapshot{
		Mode:     c.mode,
		PrevMode: c.prevMode,
		Queue:    c.queue.List(),
		HomeID:   home,
	})
}
