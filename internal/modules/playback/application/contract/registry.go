package contract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// RegistryDependencies are shared by every contract of a registry.
type RegistryDependencies struct {
	Players   ports.PlayerProvider
	Voice     ports.VoiceConnection
	Directory domain.Directory
	Notifier  ports.NotificationSender
	Settings  ports.SettingsStore
	Clock     ports.Clock
}

// Registry owns the contract of every guild the bot serves.
type Registry struct {
	deps     RegistryDependencies
	timeouts Timeouts

	mu        sync.RWMutex
	contracts map[snowflake.ID]*Contract
}

// NewRegistry creates an empty Registry.
func NewRegistry(deps RegistryDependencies, timeouts Timeouts) *Registry {
	return &Registry{
		deps:      deps,
		timeouts:  timeouts,
		contracts: make(map[snowflake.ID]*Contract),
	}
}

// Get returns the contract of guildID if one exists.
func (r *Registry) Get(guildID snowflake.ID) (*Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contracts[guildID]
	return c, ok
}

// GetOrCreate returns the contract of guildID, creating and persisting it on first use.
func (r *Registry) GetOrCreate(ctx context.Context, guildID snowflake.ID) (*Contract, error) {
	if c, ok := r.Get(guildID); ok {
		return c, nil
	}

	if _, ok := r.deps.Directory.ResolveGuild(guildID); !ok {
		return nil, domain.ErrUnresolvedGuild
	}

	c, created := r.getOrAdd(guildID, nil)
	if !created {
		return c, nil
	}

	if err := r.deps.Settings.Save(ctx, ports.ContractSettings{GuildID: guildID}); err != nil {
		slog.Warn("failed to persist new contract", "error", err, "guild", guildID)
	}
	return c, nil
}

// Load restores the contracts of every persisted guild and returns how many were restored.
func (r *Registry) Load(ctx context.Context) (int, error) {
	settings, err := r.deps.Settings.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load contract settings: %w", err)
	}

	restored := 0
	for _, s := range settings {
		if _, created := r.getOrAdd(s.GuildID, s.HomeChannelID); created {
			restored++
		}
	}
	return restored, nil
}

func (r *Registry) getOrAdd(guildID snowflake.ID, homeID *snowflake.ID) (*Contract, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.contracts[guildID]; ok {
		return c, false
	}

	c := New(guildID, Dependencies{
		Player:    r.deps.Players.Player(guildID),
		Voice:     r.deps.Voice,
		Directory: r.deps.Directory,
		Notifier:  r.deps.Notifier,
		Settings:  r.deps.Settings,
		Clock:     r.deps.Clock,
	}, WithTimeouts(r.timeouts), WithHomeID(homeID))

	r.contracts[guildID] = c
	activeContracts.Inc()
	slog.Info("contract created", "guild", guildID)

	return c, true
}

// Contracts returns every contract.
func (r *Registry) Contracts() []*Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.contracts)
}

// HandlePresenceChange re-evaluates standby for the contract of guildID, if any.
func (r *Registry) HandlePresenceChange(guildID snowflake.ID) {
	if c, ok := r.Get(guildID); ok {
		c.OnPresenceChanged()
	}
}

// HandleConnectionDestroyed resets the contract of guildID, if any.
func (r *Registry) HandleConnectionDestroyed(guildID snowflake.ID) {
	if c, ok := r.Get(guildID); ok {
		c.OnConnectionDestroyed()
	}
}

// HandlePlayerFinished forwards a finished track to its contract.
func (r *Registry) HandlePlayerFinished(event ports.PlayerFinishedEvent) {
	if c, ok := r.Get(event.GuildID); ok {
		c.OnPlayerFinished(event.Identifier)
	}
}

// HandlePlayerError forwards a player failure to its contract.
func (r *Registry) HandlePlayerError(event ports.PlayerErrorEvent) {
	if c, ok := r.Get(event.GuildID); ok {
		c.OnPlayerError(event.Identifier, event.Message)
	}
}

// HandleConnectionError forwards a voice connection failure to its contract.
func (r *Registry) HandleConnectionError(event ports.ConnectionErrorEvent) {
	if c, ok := r.Get(event.GuildID); ok {
		c.OnConnectionError(event.Reason)
	}
}

// Close stops every contract.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for guildID, c := range r.contracts {
		c.Close()
		delete(r.contracts, guildID)
		activeContracts.Dec()
	}
}
