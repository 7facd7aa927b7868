// Package embed turns a pasted media link into an iframe source.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	ErrUnsupportedMediaLink = errors.New("unsupported media link")
	ErrUpstream             = errors.New("media provider lookup failed")
)

type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformVimeo      Platform = "vimeo"
	PlatformGeneric    Platform = "generic"
)

// Embed is what the board needs to render a media item.
type Embed struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"embedUrl"`
	Height   int      `json:"height"`
}

const DefaultSpotifyOEmbedURL = "https://open.spotify.com/oembed"

var (
	spotifyRe    = regexp.MustCompile(`https?://(?:open\.)?spotify\.com/(?:track|album|artist|playlist)/([a-zA-Z0-9]+)`)
	youtubeRe    = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/)|youtu\.be/)([a-zA-Z0-9_-]{6,})`)
	soundcloudRe = regexp.MustCompile(`https?://(?:www\.|m\.)?soundcloud\.com/[^/\s]+/[^/\s?#]+`)
	vimeoRe      = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	iframeSrcRe  = regexp.MustCompile(`src="([^"]+)"`)
)

type Resolver struct {
	client           *http.Client
	spotifyOEmbedURL string
}

func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{client: client, spotifyOEmbedURL: DefaultSpotifyOEmbedURL}
}

// WithSpotifyOEmbedURL points Spotify lookups at another endpoint.
func (r *Resolver) WithSpotifyOEmbedURL(u string) *Resolver {
	r.spotifyOEmbedURL = u
	return r
}

// Resolve maps a link to its embeddable form. Only Spotify needs a network call.
func (r *Resolver) Resolve(ctx context.Context, link string) (Embed, error) {
	link = strings.TrimSpace(link)

	if spotifyRe.MatchString(link) {
		src, err := r.spotifyEmbed(ctx, link)
		if err != nil {
			return Embed{}, err
		}
		return Embed{Platform: PlatformSpotify, URL: src, Height: 152}, nil
	}

	if m := youtubeRe.FindStringSubmatch(link); m != nil {
		return Embed{Platform: PlatformYouTube, URL: "https://www.youtube.com/embed/" + m[1], Height: 200}, nil
	}

	if m := soundcloudRe.FindString(link); m != "" {
		src := "https://w.soundcloud.com/player/?url=" + url.QueryEscape(m) +
			"&color=%23ff5500&auto_play=false&hide_related=false&show_comments=true&show_user=true&show_reposts=false&show_teaser=true"
		return Embed{Platform: PlatformSoundCloud, URL: src, Height: 166}, nil
	}

	if m := vimeoRe.FindStringSubmatch(link); m != nil {
		return Embed{Platform: PlatformVimeo, URL: "https://player.vimeo.com/video/" + m[1], Height: 200}, nil
	}

	if u, err := url.Parse(link); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return Embed{Platform: PlatformGeneric, URL: link, Height: 300}, nil
	}

	return Embed{}, fmt.Errorf("%w: %q", ErrUnsupportedMediaLink, link)
}

type oEmbedResponse struct {
	HTML string `json:"html"`
}

func (r *Resolver) spotifyEmbed(ctx context.Context, link string) (string, error) {
	endpoint := r.spotifyOEmbedURL + "?url=" + url.QueryEscape(link)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: spotify oembed returned %d", ErrUpstream, resp.StatusCode)
	}

	var body oEmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	m := iframeSrcRe.FindStringSubmatch(body.HTML)
	if m == nil {
		return "", fmt.Errorf("%w: spotify oembed response has no iframe", ErrUpstream)
	}
	return m[1], nil
}
