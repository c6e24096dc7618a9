package domain

import (
	"net/url"
	"strings"
)

// SearchSource represents the source for searching tracks.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// supportedHosts lists the hosts whose links can be played directly.
var supportedHosts = []string{
	"youtube.com",
	"youtu.be",
	"soundcloud.com",
	"twitch.tv",
	"bandcamp.com",
	"vimeo.com",
}

// SearchQuery is user input classified into a request kind.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	Kind   RequestKind
}

// ParseSearchQuery classifies user input.
//
// Free text becomes a YouTube search. Links are accepted only for supported hosts;
// YouTube links lose everything after the first '&' so that playlist and tracking
// parameters do not turn a video into something else. Links that are not http(s)
// are of unknown type, and YouTube playlist pages are unsupported.
func ParseSearchQuery(input string) (*SearchQuery, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &BadRequestError{Reason: BadRequestInvalid, Input: input}
	}

	if !looksLikeURL(input) {
		return &SearchQuery{Query: input, Source: SourceYouTube, Kind: KindSearch}, nil
	}

	raw := input
	if strings.HasPrefix(raw, "www.") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, &BadRequestError{Reason: BadRequestInvalid, Input: input}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &BadRequestError{Reason: BadRequestUnknown, Input: input}
	}

	host := strings.ToLower(u.Hostname())
	if !isSupportedHost(host) {
		return nil, &BadRequestError{Reason: BadRequestUnsupported, Input: input}
	}

	if strings.HasSuffix(host, "youtube.com") {
		if u.Path == "/playlist" {
			return nil, &BadRequestError{Reason: BadRequestUnsupported, Input: input}
		}
		if i := strings.Index(raw, "&"); i >= 0 {
			raw = raw[:i]
		}
	}

	return &SearchQuery{Query: raw, Source: SourceDirect, Kind: KindTrack}, nil
}

// LavalinkQuery returns the query string formatted for Lavalink.
func (q *SearchQuery) LavalinkQuery() string {
	if q.Source == SourceDirect {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// looksLikeURL checks if the input has a scheme or a www prefix.
func looksLikeURL(input string) bool {
	return strings.Contains(input, "://") || strings.HasPrefix(input, "www.")
}

func isSupportedHost(host string) bool {
	for _, supported := range supportedHosts {
		if host == supported || strings.HasSuffix(host, "."+supported) {
			return true
		}
	}
	return false
}
