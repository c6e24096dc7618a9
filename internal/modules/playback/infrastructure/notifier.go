package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
	"github.com/sglre6355/isabelle/internal/modules/playback/domain"
	"golang.org/x/time/rate"
)

// Embed colors.
const (
	colorRed  = 0xE74C3C
	colorGrey = 0x95A5A6
)

// thumbnailProbeTimeout bounds the lookup of a better thumbnail.
const thumbnailProbeTimeout = 2 * time.Second

// NotifierConfig contains status message throttling configuration.
type NotifierConfig struct {
	Rate  float64 // Messages per second per channel
	Burst int
}

// Notifier sends status messages to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
	config     NotifierConfig

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session, config NotifierConfig) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		config:   config,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
}

func (n *Notifier) limiter(channelID snowflake.ID) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()

	limiter, ok := n.limiters[channelID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(n.config.Rate), n.config.Burst)
		n.limiters[channelID] = limiter
	}
	return limiter
}

func (n *Notifier) send(ctx context.Context, channelID snowflake.ID, embed *discordgo.MessageEmbed) error {
	if err := n.limiter(channelID).Wait(ctx); err != nil {
		return fmt.Errorf("status message throttled: %w", err)
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendNowPlaying sends a "Now Playing" embed to the channel.
func (n *Notifier) SendNowPlaying(
	ctx context.Context,
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) error {
	return n.send(ctx, channelID, n.nowPlayingEmbed(ctx, info))
}

func (n *Notifier) nowPlayingEmbed(ctx context.Context, info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	source := domain.ParseTrackSource(info.SourceName)

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title: info.Title,
		URL:   info.ResourceURL,
		Color: source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Creator",
				Value:  info.Creator,
				Inline: true,
			},
			{
				Name:   "Length",
				Value:  info.Length,
				Inline: true,
			},
		},
	}

	if !info.Live && (info.Start > 0 || info.End > 0) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Section",
			Value:  formatSection(info.Start, info.End),
			Inline: true,
		})
	}

	if info.Position > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Up Next",
			Value:  fmt.Sprintf("%d in queue", info.Position),
			Inline: true,
		})
	}

	if info.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		}
	}

	if thumbnailURL := n.getBestThumbnail(ctx, source, info); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	return embed
}

func formatSection(start, end time.Duration) string {
	if end <= 0 {
		return fmt.Sprintf("from %s", domain.FormatDuration(start))
	}
	return fmt.Sprintf("%s - %s", domain.FormatDuration(start), domain.FormatDuration(end))
}

// SendNotice sends an informational message to the channel.
func (n *Notifier) SendNotice(ctx context.Context, channelID snowflake.ID, message string) error {
	return n.send(ctx, channelID, &discordgo.MessageEmbed{
		Description: message,
		Color:       colorGrey,
	})
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(ctx context.Context, channelID snowflake.ID, message string) error {
	return n.send(ctx, channelID, &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	})
}

// getBestThumbnail attempts to find the best quality thumbnail for the track.
// For YouTube, it tries different quality levels (maxresdefault, sddefault, etc.).
// For Twitch, it attempts to use a higher resolution version.
// For other sources, it returns the original thumbnail URL.
func (n *Notifier) getBestThumbnail(
	ctx context.Context,
	source domain.TrackSource,
	info *ports.NowPlayingInfo,
) string {
	ctx, cancel := context.WithTimeout(ctx, thumbnailProbeTimeout)
	defer cancel()

	switch source {
	case domain.TrackSourceYouTube:
		return n.getYouTubeThumbnail(ctx, youTubeVideoID(info.ResourceURL), info.ThumbnailURL)
	case domain.TrackSourceTwitch:
		return n.getTwitchThumbnail(ctx, info.ThumbnailURL)
	default:
		return info.ThumbnailURL
	}
}

// youTubeVideoID extracts the video ID from a watch or short link.
func youTubeVideoID(resourceURL string) string {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return ""
	}
	if u.Host == "youtu.be" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return u.Query().Get("v")
}

// getYouTubeThumbnail tries to find the highest quality YouTube thumbnail available.
func (n *Notifier) getYouTubeThumbnail(ctx context.Context, videoID string, fallbackURL string) string {
	if videoID == "" {
		return fallbackURL
	}

	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}
	for _, quality := range qualities {
		candidate := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, candidate) {
			return candidate
		}
	}

	return fallbackURL
}

// getTwitchThumbnail tries to get a higher resolution Twitch thumbnail.
func (n *Notifier) getTwitchThumbnail(ctx context.Context, artworkURL string) string {
	if artworkURL == "" {
		return ""
	}

	// Try to get 1280x720 instead of 440x248
	highResURL := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highResURL == artworkURL {
		return artworkURL
	}

	if n.urlExists(ctx, highResURL) {
		return highResURL
	}
	return artworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
