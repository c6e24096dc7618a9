package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/bot"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/contract"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/events"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/requests"
	"github.com/sglre6355/isabelle/internal/modules/playback/infrastructure"
	"github.com/sglre6355/isabelle/internal/modules/playback/presentation/discord"
)

// lavalinkConnectTimeout bounds the initial connection to the Lavalink node.
const lavalinkConnectTimeout = 30 * time.Second

func init() {
	bot.Register(&Module{})
}

// settingsStore is a ports.SettingsStore released on shutdown.
type settingsStore interface {
	ports.SettingsStore
	Close() error
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*Module)(nil)

// Module provides music playback commands.
type Module struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	lavalinkAdapter *infrastructure.LavalinkAdapter
	settings        settingsStore
	registry        *contract.Registry

	// Event-driven components
	eventBus   *events.Bus
	dispatcher *events.Dispatcher

	// Context for event dispatching
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *Module) Name() string {
	return "playback"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":       m.commandHandlers.HandlePlay,
		"skip":       m.commandHandlers.HandleSkip,
		"remove":     m.commandHandlers.HandleRemove,
		"pause":      m.commandHandlers.HandlePause,
		"resume":     m.commandHandlers.HandleResume,
		"queue":      m.commandHandlers.HandleQueue,
		"nowplaying": m.commandHandlers.HandleNowPlaying,
		"move":       m.commandHandlers.HandleMove,
		"stop":       m.commandHandlers.HandleStop,
		"home":       m.commandHandlers.HandleHome,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *Module) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init connects to Lavalink, restores persisted contracts and wires the handlers.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State.User == nil {
		return errors.New("playback module requires a connected session")
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}

	parent := deps.Context
	if parent == nil {
		parent = context.Background()
	}
	m.ctx, m.cancel = context.WithCancel(parent)

	// Created first, the Lavalink adapter publishes into it.
	m.eventBus = events.NewBus(events.DefaultEventBufferSize)

	connectCtx, cancel := context.WithTimeout(m.ctx, lavalinkConnectTimeout)
	defer cancel()
	m.lavalinkAdapter, err = infrastructure.NewLavalinkAdapter(
		connectCtx,
		deps.Session,
		infrastructure.LavalinkConfig{
			Address:  m.config.LavalinkAddress,
			Password: m.config.LavalinkPassword,
			Secure:   m.config.LavalinkSecure,
		},
		m.eventBus,
	)
	if err != nil {
		return err
	}

	m.settings, err = m.openSettings()
	if err != nil {
		return err
	}

	directory := infrastructure.NewDiscordDirectory(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session, infrastructure.NotifierConfig{
		Rate:  m.config.StatusRate,
		Burst: m.config.StatusBurst,
	})

	m.registry = contract.NewRegistry(contract.RegistryDependencies{
		Players:   m.lavalinkAdapter,
		Voice:     m.lavalinkAdapter,
		Directory: directory,
		Notifier:  notifier,
		Settings:  m.settings,
		Clock:     infrastructure.SystemClock{},
	}, m.config.Timeouts())

	loaded, err := m.registry.Load(m.ctx)
	if err != nil {
		return err
	}

	m.dispatcher = events.NewDispatcher(m.registry, m.eventBus)
	m.dispatcher.Start(m.ctx)

	factory := requests.NewFactory(m.lavalinkAdapter, directory, m.config.OperationTimeout)
	m.commandHandlers = discord.NewCommandHandlers(m.registry, factory, directory)
	m.autocomplete = discord.NewAutocompleteHandler(m.registry, m.lavalinkAdapter)
	m.eventHandlers = discord.NewEventHandlers(botID, m.registry)

	slog.Info("playback module initialized", "contracts", loaded)

	return nil
}

// openSettings opens the configured settings store.
func (m *Module) openSettings() (settingsStore, error) {
	if m.config.SettingsStore == settingsMemory {
		slog.Warn("contract settings are kept in memory and will not survive a restart")
		return infrastructure.NewMemorySettingsStore(), nil
	}
	store, err := infrastructure.NewDatastoreSettingsStore(m.config.DataPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Shutdown stops every contract and releases the module's connections.
// Contracts finish their current task before stopping, so ctx is not consulted.
func (m *Module) Shutdown(_ context.Context) error {
	// Stop dispatching before the contracts go away
	if m.dispatcher != nil {
		m.dispatcher.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}

	if m.registry != nil {
		m.registry.Close()
	}

	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	if m.settings != nil {
		return m.settings.Close()
	}
	return nil
}

// Event handlers.

func (m *Module) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *Module) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}

func (m *Module) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete || m.autocomplete == nil {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "play":
		m.autocomplete.HandlePlay(s, i)
	case "remove":
		m.autocomplete.HandleRemove(s, i)
	}
}
