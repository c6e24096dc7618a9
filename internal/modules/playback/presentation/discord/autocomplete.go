package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/contract"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// Discord accepts at most 25 choices of 100 characters each.
const (
	maxChoices       = 25
	maxChoiceLength  = 100
	minSearchLength  = 2
	autocompleteWait = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	registry *contract.Registry
	resolver ports.TrackResolver
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(
	registry *contract.Registry,
	resolver ports.TrackResolver,
) *AutocompleteHandler {
	return &AutocompleteHandler{
		registry: registry,
		resolver: resolver,
	}
}

func respondChoices(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	choices []*discordgo.ApplicationCommandOptionChoice,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		slog.Debug("failed to respond to autocomplete", "error", err)
	}
}

// focusedValue returns the value typed so far into the focused option.
func focusedValue(i *discordgo.InteractionCreate) string {
	opt, ok := lo.Find(i.ApplicationCommandData().Options, func(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
		return opt.Focused
	})
	if !ok {
		return ""
	}
	// Integer options arrive as the raw string typed so far.
	return fmt.Sprint(opt.Value)
}

// HandlePlay handles autocomplete for the play command.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondChoices(s, i, h.searchChoices(focusedValue(i)))
}

func (h *AutocompleteHandler) searchChoices(input string) []*discordgo.ApplicationCommandOptionChoice {
	choices := []*discordgo.ApplicationCommandOptionChoice{}

	// Links are played as typed.
	query, err := domain.ParseSearchQuery(input)
	if err != nil || query.Kind != domain.KindSearch || len([]rune(query.Query)) < minSearchLength {
		return choices
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteWait)
	defer cancel()

	result, err := h.resolver.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		slog.Debug("autocomplete search failed", "query", query.Query, "error", err)
		return choices
	}
	if result.Type != ports.LoadTypeSearch {
		return choices
	}

	tracks := lo.Filter(result.Tracks, func(track *ports.TrackInfo, _ int) bool {
		return track.URI != "" && len(track.URI) <= maxChoiceLength
	})
	for _, track := range lo.Subset(tracks, 0, maxChoices) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%s - %s", track.Title, track.Artist), maxChoiceLength),
			Value: track.URI,
		})
	}
	return choices
}

// HandleRemove handles autocomplete for the remove command.
func (h *AutocompleteHandler) HandleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		respondChoices(s, i, []*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	var queue []domain.Request
	if c, ok := h.registry.Get(guildID); ok {
		queue = c.Queue()
	}
	respondChoices(s, i, positionChoices(queue, focusedValue(i)))
}

// positionChoices lists queue positions whose number starts with typed.
func positionChoices(queue []domain.Request, typed string) []*discordgo.ApplicationCommandOptionChoice {
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	for idx, req := range queue {
		position := fmt.Sprint(idx)
		if len(typed) > len(position) || position[:len(typed)] != typed {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%d. %s", idx, req.Metadata().Title), maxChoiceLength),
			Value: idx,
		})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
