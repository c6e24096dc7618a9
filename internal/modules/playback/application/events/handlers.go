package events

import (
	"context"
	"log/slog"
	"sync"
)

// Router receives transport events for the guild they belong to.
type Router interface {
	HandlePlayerFinished(event PlayerFinishedEvent)
	HandlePlayerError(event PlayerErrorEvent)
	HandleConnectionError(event ConnectionErrorEvent)
}

// Dispatcher drains a Bus into a Router.
type Dispatcher struct {
	router Router
	bus    *Bus

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(router Router, bus *Bus) *Dispatcher {
	return &Dispatcher{
		router: router,
		bus:    bus,
		done:   make(chan struct{}),
	}
}

// Start begins listening for events in background goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(3)

	go func() {
		defer d.wg.Done()
		drain(ctx, d.done, d.bus.PlayerFinished(), func(event PlayerFinishedEvent) {
			slog.Debug("player finished", "guild", event.GuildID)
			d.router.HandlePlayerFinished(event)
		})
	}()

	go func() {
		defer d.wg.Done()
		drain(ctx, d.done, d.bus.PlayerError(), func(event PlayerErrorEvent) {
			slog.Debug("player error", "guild", event.GuildID, "message", event.Message)
			d.router.HandlePlayerError(event)
		})
	}()

	go func() {
		defer d.wg.Done()
		drain(ctx, d.done, d.bus.ConnectionError(), func(event ConnectionErrorEvent) {
			slog.Debug("connection error", "guild", event.GuildID, "code", event.Code)
			d.router.HandleConnectionError(event)
		})
	}()

	slog.Debug("event dispatcher started")
}

// Stop stops the dispatcher and waits for goroutines to finish.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
	slog.Debug("event dispatcher stopped")
}

func drain[T any](ctx context.Context, done <-chan struct{}, events <-chan T, handle func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			handle(event)
		}
	}
}
