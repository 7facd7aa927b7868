package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStaticPlatforms(t *testing.T) {
	r := NewResolver(nil)
	ctx := context.Background()

	cases := []struct {
		link string
		want Embed
	}{
		{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Embed{Platform: PlatformYouTube, URL: "https://www.youtube.com/embed/dQw4w9WgXcQ", Height: 200},
		},
		{
			"https://youtu.be/dQw4w9WgXcQ",
			Embed{Platform: PlatformYouTube, URL: "https://www.youtube.com/embed/dQw4w9WgXcQ", Height: 200},
		},
		{
			"https://vimeo.com/76979871",
			Embed{Platform: PlatformVimeo, URL: "https://player.vimeo.com/video/76979871", Height: 200},
		},
		{
			"https://soundcloud.com/artist/track-name",
			Embed{
				Platform: PlatformSoundCloud,
				URL: "https://w.soundcloud.com/player/?url=https%3A%2F%2Fsoundcloud.com%2Fartist%2Ftrack-name" +
					"&color=%23ff5500&auto_play=false&hide_related=false&show_comments=true&show_user=true&show_reposts=false&show_teaser=true",
				Height: 166,
			},
		},
		{
			"https://example.com/player/42",
			Embed{Platform: PlatformGeneric, URL: "https://example.com/player/42", Height: 300},
		},
	}

	for _, tc := range cases {
		t.Run(tc.link, func(t *testing.T) {
			got, err := r.Resolve(ctx, tc.link)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := NewResolver(nil)
	for _, link := range []string{"", "not a link", "ftp://files.example.com/a.mp3", "javascript:alert(1)"} {
		_, err := r.Resolve(context.Background(), link)
		assert.ErrorIs(t, err, ErrUnsupportedMediaLink, link)
	}
}

func TestResolveSpotifyViaOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"html":"<iframe style=\"border-radius: 12px\" width=\"100%\" height=\"152\" src=\"https://open.spotify.com/embed/track/4uLU6hMCjMI75M1A2tKUQC?utm_source=oembed\"></iframe>"}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.Client()).WithSpotifyOEmbedURL(srv.URL)
	got, err := r.Resolve(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)
	assert.Equal(t, Embed{
		Platform: PlatformSpotify,
		URL:      "https://open.spotify.com/embed/track/4uLU6hMCjMI75M1A2tKUQC?utm_source=oembed",
		Height:   152,
	}, got)
}

func TestResolveSpotifyUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResolver(srv.Client()).WithSpotifyOEmbedURL(srv.URL)
	_, err := r.Resolve(context.Background(), "https://open.spotify.com/album/abc123")
	assert.ErrorIs(t, err, ErrUpstream)
}
