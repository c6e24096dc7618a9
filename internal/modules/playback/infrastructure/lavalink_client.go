package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// closeCodeDisconnected is sent by Discord when the bot was removed from the voice channel.
// It is handled through the bot's voice state instead.
const closeCodeDisconnected = 4014

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// LavalinkAdapter wraps DisGoLink to implement the voice, player and resolver ports.
type LavalinkAdapter struct {
	link      disgolink.Client
	session   *discordgo.Session
	botID     snowflake.ID
	publisher ports.EventPublisher

	joinsMu sync.Mutex
	joins   map[snowflake.ID]*pendingJoin

	updatesMu sync.Mutex
	updates   map[snowflake.ID]*voiceUpdate
}

// NewLavalinkAdapter connects to the Lavalink node and returns the adapter.
// Track events are published to publisher.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
	publisher ports.EventPublisher,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:   session,
		botID:     botID,
		publisher: publisher,
		joins:     make(map[snowflake.ID]*pendingJoin),
		updates:   make(map[snowflake.ID]*voiceUpdate),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
		disgolink.WithListenerFunc(adapter.onWebSocketClosed),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close disconnects from every Lavalink node.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel connects to a voice channel and waits until Lavalink can be handed the
// voice session.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	pending := newPendingJoin()

	c.joinsMu.Lock()
	c.joins[guildID] = pending
	c.joinsMu.Unlock()

	defer func() {
		c.joinsMu.Lock()
		delete(c.joins, guildID)
		c.joinsMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		// Abort the half-open join.
		if err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
			slog.Warn("failed to abort voice join", "guild", guildID, "error", err)
		}
		return fmt.Errorf("failed waiting for voice connection: %w", ctx.Err())
	}
}

// LeaveChannel destroys the player of the guild and disconnects from voice.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Player returns the audio player of a guild.
func (c *LavalinkAdapter) Player(guildID snowflake.ID) domain.Player {
	return &guildPlayer{link: c.link, guildID: guildID}
}

// LoadTracks resolves a query on the best available node.
func (c *LavalinkAdapter) LoadTracks(ctx context.Context, query string) (*ports.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, fmt.Errorf("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return convertLoadResult(result), nil
}

func convertLoadResult(result *lavalink.LoadResult) *ports.LoadResult {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return &ports.LoadResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []*ports.TrackInfo{convertTrack(data)},
		}
	case lavalink.Playlist:
		return &ports.LoadResult{
			Type:   ports.LoadTypePlaylist,
			Tracks: convertTracks(data.Tracks),
		}
	case lavalink.Search:
		return &ports.LoadResult{
			Type:   ports.LoadTypeSearch,
			Tracks: convertTracks(data),
		}
	case lavalink.Exception:
		return &ports.LoadResult{
			Type:  ports.LoadTypeError,
			Error: data.Message,
		}
	default:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}
	}
}

func convertTracks(tracks []lavalink.Track) []*ports.TrackInfo {
	result := make([]*ports.TrackInfo, len(tracks))
	for i, track := range tracks {
		result[i] = convertTrack(track)
	}
	return result
}

func convertTrack(track lavalink.Track) *ports.TrackInfo {
	info := track.Info

	return &ports.TrackInfo{
		Identifier: info.Identifier,
		Encoded:    track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        derefString(info.URI),
		ArtworkURL: derefString(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OnVoiceServerUpdate forwards the voice server half of a connection to Lavalink.
// It must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	update := c.voiceUpdate(guildID)
	if update.setServer(event.Token, event.Endpoint) {
		c.forwardVoiceUpdate(guildID, update)
	}
	c.markJoin(guildID, false)
}

// OnVoiceStateUpdate forwards the voice state half of a connection to Lavalink.
// Updates for users other than the bot are ignored.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.updatesMu.Lock()
		delete(c.updates, guildID)
		c.updatesMu.Unlock()
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	update := c.voiceUpdate(guildID)
	if update.setState(&channelID, event.SessionID) {
		c.forwardVoiceUpdate(guildID, update)
	}
	c.markJoin(guildID, true)
}

func (c *LavalinkAdapter) voiceUpdate(guildID snowflake.ID) *voiceUpdate {
	c.updatesMu.Lock()
	defer c.updatesMu.Unlock()

	update, ok := c.updates[guildID]
	if !ok {
		update = &voiceUpdate{}
		c.updates[guildID] = update
	}
	return update
}

func (c *LavalinkAdapter) markJoin(guildID snowflake.ID, state bool) {
	c.joinsMu.Lock()
	pending := c.joins[guildID]
	c.joinsMu.Unlock()

	if pending != nil {
		pending.mark(state)
	}
}

func (c *LavalinkAdapter) forwardVoiceUpdate(guildID snowflake.ID, update *voiceUpdate) {
	channelID, sessionID, token, endpoint := update.take()

	slog.Debug("forwarding voice update to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

// onTrackEnd publishes tracks that ran to completion. Load failures arrive as
// exceptions first; stopped and replaced tracks were ended by the contract itself.
func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if event.Reason != lavalink.TrackEndReasonFinished {
		return
	}
	c.publisher.PublishPlayerFinished(ports.PlayerFinishedEvent{
		GuildID:    player.GuildID(),
		Identifier: event.Track.Encoded,
	})
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	c.publisher.PublishPlayerError(ports.PlayerErrorEvent{
		GuildID:    player.GuildID(),
		Identifier: event.Track.Encoded,
		Message:    event.Exception.Message,
	})
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	c.publisher.PublishPlayerError(ports.PlayerErrorEvent{
		GuildID:    player.GuildID(),
		Identifier: event.Track.Encoded,
		Message:    "the stream stopped delivering audio",
	})
}

func (c *LavalinkAdapter) onWebSocketClosed(player disgolink.Player, event lavalink.WebSocketClosedEvent) {
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"byRemote", event.ByRemote,
	)

	if event.Code == closeCodeDisconnected {
		return
	}
	c.publisher.PublishConnectionError(ports.ConnectionErrorEvent{
		GuildID: player.GuildID(),
		Code:    event.Code,
		Reason:  event.Reason,
	})
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.PlayerProvider  = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver   = (*LavalinkAdapter)(nil)
)
