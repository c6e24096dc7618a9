package domain

// TrackSource represents the origin platform of a resource.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceBandcamp   TrackSource = "bandcamp"
	TrackSourceVimeo      TrackSource = "vimeo"
	TrackSourceOther      TrackSource = "other"
)

// ParseTrackSource converts a source name string to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch name {
	case "youtube":
		return TrackSourceYouTube
	case "soundcloud":
		return TrackSourceSoundCloud
	case "twitch":
		return TrackSourceTwitch
	case "bandcamp":
		return TrackSourceBandcamp
	case "vimeo":
		return TrackSourceVimeo
	default:
		return TrackSourceOther
	}
}

// Color returns the brand color used for embeds of this source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceYouTube:
		return 0xFF0000
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceTwitch:
		return 0x9146FF
	case TrackSourceBandcamp:
		return 0x1DA0C3
	case TrackSourceVimeo:
		return 0x1AB7EA
	default:
		return 0x5865F2
	}
}
