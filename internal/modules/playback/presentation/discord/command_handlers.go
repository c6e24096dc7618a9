package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/isabelle/internal/bot"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/contract"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/requests"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// commandTimeout bounds a whole command, including voice joins and resolution.
const commandTimeout = 30 * time.Second

// queuePageSize is the number of upcoming requests per /queue page.
const queuePageSize = 10

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	registry  *contract.Registry
	factory   *requests.Factory
	directory domain.Directory
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	registry *contract.Registry,
	factory *requests.Factory,
	directory domain.Directory,
) *CommandHandlers {
	return &CommandHandlers{
		registry:  registry,
		factory:   factory,
		directory: directory,
	}
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	return lo.KeyBy(options, func(opt *discordgo.ApplicationCommandInteractionDataOption) string {
		return opt.Name
	})
}

func (o optionMap) stringValue(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o optionMap) intValue(name string, fallback int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

// id returns the snowflake of a channel or user option.
func (o optionMap) id(name string) (snowflake.ID, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	raw, ok := opt.Value.(string)
	if !ok {
		return 0, false
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// invocation is a parsed guild command.
type invocation struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	channelID snowflake.ID
	options   optionMap
}

func parseInvocation(i *discordgo.InteractionCreate) (*invocation, error) {
	if i.Member == nil || i.Member.User == nil {
		return nil, errors.New("command used outside a guild")
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild: %w", err)
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("invalid channel: %w", err)
	}

	return &invocation{
		guildID:   guildID,
		userID:    userID,
		channelID: channelID,
		options:   newOptionMap(i.ApplicationCommandData().Options),
	}, nil
}

// voiceChannel returns the channel option, else the voice channel of the user
// option, else the voice channel of the invoking user.
func (h *CommandHandlers) voiceChannel(inv *invocation) (snowflake.ID, error) {
	if channelID, ok := inv.options.id("channel"); ok {
		return channelID, nil
	}

	userID := inv.userID
	if id, ok := inv.options.id("user"); ok {
		userID = id
	}
	if channelID, ok := h.directory.UserVoiceChannel(inv.guildID, userID); ok {
		return channelID, nil
	}
	return 0, errNotInVoice
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	start, err := domain.ParseTimestamp(inv.options.stringValue("start"))
	if err != nil {
		return respondError(r, "The start timestamp is invalid. Use a format like 1:30.")
	}
	end, err := domain.ParseTimestamp(inv.options.stringValue("end"))
	if err != nil {
		return respondError(r, "The end timestamp is invalid. Use a format like 3:45.")
	}

	channelID, err := h.voiceChannel(inv)
	if err != nil {
		return respondFailure(r, err)
	}

	// Resolving can take longer than the interaction deadline.
	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	c, err := h.registry.GetOrCreate(ctx, inv.guildID)
	if err != nil {
		return respondFailure(r, err)
	}

	request, err := h.factory.Create(ctx, requests.CreateParams{
		Input:     inv.options.stringValue("query"),
		GuildID:   inv.guildID,
		ChannelID: channelID,
		UserID:    inv.userID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		slog.Info("failed to create request", "guild", inv.guildID, "error", err)
		return respondFailure(r, err)
	}

	result, err := c.Add(ctx, request, -1)
	if err != nil {
		return respondFailure(r, err)
	}

	metadata := request.Metadata()
	var description string
	switch {
	case result.Position > 0:
		description = fmt.Sprintf("Queued %s for <#%d> at position %d.",
			requestLink(request), channelID, result.Position)
	case result.Mode.Active():
		description = fmt.Sprintf("Now playing %s in <#%d>.", requestLink(request), channelID)
	default:
		return respondError(r, fmt.Sprintf("Could not start %s.", requestLink(request)))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Added a Request",
		Description: description,
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Length", Value: metadata.FormattedLength(), Inline: true},
			{Name: "Uploaded By", Value: metadata.Creator, Inline: true},
		},
	}
	if metadata.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: metadata.ThumbnailURL}
	}
	if start > 0 || end > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Section",
			Value:  formatSection(start, end),
			Inline: true,
		})
	}

	return respondEmbed(r, embed)
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	c, ok := h.registry.Get(inv.guildID)
	if !ok {
		return respondFailure(r, contract.ErrNotPlaying)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	result, err := c.Skip(ctx, inv.options.intValue("count", 1))
	if err != nil {
		return respondFailure(r, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Skipped %s", requestLink(result.Previous))
	if n := len(result.Skipped); n > 0 {
		fmt.Fprintf(&sb, " and %d more", n)
	}
	sb.WriteString(".")
	if result.Playing() {
		fmt.Fprintf(&sb, " Now playing %s.", requestLink(result.Current))
	} else {
		sb.WriteString(" The queue is empty.")
	}

	return respondSuccess(r, sb.String())
}

// HandleRemove handles the /remove command.
func (h *CommandHandlers) HandleRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	c, ok := h.registry.Get(inv.guildID)
	if !ok {
		return respondFailure(r, contract.ErrInvalidPosition)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	removed, err := c.Remove(ctx, inv.options.intValue("position", -1))
	if err != nil {
		return respondFailure(r, err)
	}

	return respondSuccess(r, fmt.Sprintf("Removed %s.", requestLink(removed)))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.simple(i, r, "Paused playback.", contract.ErrNotPlaying, (*contract.Contract).Pause)
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.simple(i, r, "Resumed playback.", contract.ErrNotPaused, (*contract.Contract).Resume)
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.simple(i, r, "Stopped playback and cleared the queue.", nil, (*contract.Contract).Stop)
}

// simple runs an operation without arguments. missing is reported when the guild
// has no contract yet; a nil missing treats that as success.
func (h *CommandHandlers) simple(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	success string,
	missing error,
	op func(*contract.Contract, context.Context) error,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	c, ok := h.registry.Get(inv.guildID)
	if !ok {
		if missing != nil {
			return respondFailure(r, missing)
		}
		return respondSuccess(r, success)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := op(c, ctx); err != nil {
		return respondFailure(r, err)
	}
	return respondSuccess(r, success)
}

// HandleMove handles the /move command.
func (h *CommandHandlers) HandleMove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	channelID, err := h.voiceChannel(inv)
	if err != nil {
		return respondFailure(r, err)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	c, err := h.registry.GetOrCreate(ctx, inv.guildID)
	if err != nil {
		return respondFailure(r, err)
	}
	if err := c.Move(ctx, channelID); err != nil {
		return respondFailure(r, err)
	}

	return respondSuccess(r, fmt.Sprintf("Moved to <#%d>.", channelID))
}

// HandleHome handles the /home command.
func (h *CommandHandlers) HandleHome(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil || len(inv.options) != 1 {
		return respondError(r, "Invalid subcommand")
	}

	ctx, cancel := commandContext()
	defer cancel()

	c, err := h.registry.GetOrCreate(ctx, inv.guildID)
	if err != nil {
		return respondFailure(r, err)
	}

	for name, sub := range inv.options {
		switch name {
		case "set":
			channelID, ok := newOptionMap(sub.Options).id("channel")
			if !ok {
				return respondError(r, "Invalid channel")
			}
			if err := c.SetHomeID(ctx, &channelID); err != nil {
				return respondFailure(r, err)
			}
			return respondSuccess(r, fmt.Sprintf("Status messages will be sent to <#%d>.", channelID))
		case "clear":
			if err := c.SetHomeID(ctx, nil); err != nil {
				return respondFailure(r, err)
			}
			return respondSuccess(r, "Unset the home channel. Status messages will no longer be sent.")
		case "show":
			if homeID := c.HomeID(); homeID != nil {
				return respondSuccess(r, fmt.Sprintf("Status messages are sent to <#%d>.", *homeID))
			}
			return respondSuccess(r, "No home channel is set.")
		}
	}
	return respondError(r, "Unknown subcommand")
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	var snapshot contract.Snapshot
	if c, ok := h.registry.Get(inv.guildID); ok {
		snapshot = c.Snapshot()
	}

	return respondEmbed(r, queueEmbed(snapshot, inv.options.intValue("page", 1)))
}

// queueEmbed renders one page of a queue snapshot.
func queueEmbed(snapshot contract.Snapshot, page int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Queue"}

	if len(snapshot.Queue) == 0 {
		embed.Description = "Queue is empty."
		return embed
	}

	head, upcoming := snapshot.Queue[0], snapshot.Queue[1:]
	pages := max(1, (len(upcoming)+queuePageSize-1)/queuePageSize)
	page = min(max(page, 1), pages)

	var sb strings.Builder
	sb.WriteString("### Now Playing\n")
	if snapshot.Mode != domain.ModePlaying {
		fmt.Fprintf(&sb, "*(%s)* ", snapshot.Mode)
	}
	writeRequestLine(&sb, 0, head)

	if len(upcoming) > 0 {
		sb.WriteString("### Up Next\n")
		offset := (page - 1) * queuePageSize
		for idx, req := range lo.Subset(upcoming, offset, queuePageSize) {
			writeRequestLine(&sb, offset+idx+1, req)
		}
	}

	total := lo.SumBy(snapshot.Queue, func(req domain.Request) time.Duration {
		return req.Metadata().Length
	})

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Page %d/%d · %d requests · %s total",
			page, pages, len(snapshot.Queue), domain.FormatDuration(total)),
	}
	return embed
}

// HandleNowPlaying handles the /nowplaying command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInvocation(i)
	if err != nil {
		return respondError(r, "Invalid command")
	}

	c, ok := h.registry.Get(inv.guildID)
	if !ok {
		return respondFailure(r, contract.ErrNotPlaying)
	}
	snapshot := c.Snapshot()
	current := snapshot.Current()
	if current == nil || !snapshot.Mode.Active() {
		return respondFailure(r, contract.ErrNotPlaying)
	}

	metadata := current.Metadata()
	title := "Now Playing"
	switch snapshot.Mode {
	case domain.ModePaused:
		title = "Paused"
	case domain.ModeStandby:
		title = "On Standby"
	}

	embed := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: title},
		Title:       metadata.Title,
		URL:         metadata.ResourceURL,
		Color:       metadata.Source().Color(),
		Description: fmt.Sprintf("Requested by <@%d> in <#%d>", current.UserID(), current.ChannelID()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Creator", Value: metadata.Creator, Inline: true},
			{Name: "Length", Value: metadata.FormattedLength(), Inline: true},
		},
	}
	if current.Start() > 0 || current.End() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Section",
			Value:  formatSection(current.Start(), current.End()),
			Inline: true,
		})
	}
	if metadata.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: metadata.ThumbnailURL}
	}

	return respondEmbed(r, embed)
}

// Response helpers.

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	})
}

// respondFailure reports err to the user. Errors without a user-facing message
// are returned to the bot, which logs them.
func respondFailure(r bot.Responder, err error) error {
	if message := userMessage(err); message != "" {
		return respondError(r, message)
	}
	return err
}

// requestLink formats a request as a markdown link when it has a URL.
func requestLink(req domain.Request) string {
	if req == nil {
		return "nothing"
	}
	metadata := req.Metadata()
	if metadata.ResourceURL != "" {
		return fmt.Sprintf("[%s](%s)", metadata.Title, metadata.ResourceURL)
	}
	return fmt.Sprintf("**%s**", metadata.Title)
}

// writeRequestLine writes a single request line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeRequestLine(sb *strings.Builder, position int, req domain.Request) {
	metadata := req.Metadata()
	fmt.Fprintf(sb, "%d\\. %s - %s `%s`\n",
		position, requestLink(req), metadata.Creator, metadata.FormattedLength())
}

func formatSection(start, end time.Duration) string {
	if end <= 0 {
		return fmt.Sprintf("from %s", domain.FormatDuration(start))
	}
	return fmt.Sprintf("%s - %s", domain.FormatDuration(start), domain.FormatDuration(end))
}
