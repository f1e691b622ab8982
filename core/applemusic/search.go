package applemusic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultStorefront is the catalog storefront used for searches.
const DefaultStorefront = "us"

// TokenSource provides a developer token for catalog requests. TokenMinter
// implements it.
type TokenSource interface {
	Token() (string, error)
}

// SongMetadata is the enrichment payload for one song.
type SongMetadata struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name,omitempty"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	URL        string `json:"url,omitempty"`
}

// SearchClient queries the Apple Music catalog search API.
type SearchClient struct {
	baseURL    string
	storefront string
	tokens     TokenSource
	httpClient *http.Client
}

// NewSearchClient creates a catalog search client.
func NewSearchClient(tokens TokenSource) *SearchClient {
	return &SearchClient{
		baseURL:    "https://api.music.apple.com",
		storefront: DefaultStorefront,
		tokens:     tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL (used by tests).
func (c *SearchClient) SetBaseURL(u string) {
	c.baseURL = u
}

// searchResponse mirrors the catalog search payload.
type searchResponse struct {
	Results struct {
		Songs struct {
			Data []struct {
				ID         string `json:"id"`
				Attributes struct {
					Name       string `json:"name"`
					ArtistName string `json:"artistName"`
					AlbumName  string `json:"albumName"`
					URL        string `json:"url"`
					Artwork    struct {
						URL string `json:"url"`
					} `json:"artwork"`
					Previews []struct {
						URL string `json:"url"`
					} `json:"previews"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"songs"`
	} `json:"results"`
}

// SearchSong looks up the best catalog match for a song name and artist.
// Returns (nil, nil) when the catalog has no match.
func (c *SearchClient) SearchSong(ctx context.Context, name, artist string) (*SongMetadata, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get developer token: %w", err)
	}

	query := url.Values{}
	query.Set("term", strings.TrimSpace(name+" "+artist))
	query.Set("types", "songs")
	query.Set("limit", "1")

	u := fmt.Sprintf("%s/v1/catalog/%s/search?%s", c.baseURL, c.storefront, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	songs := result.Results.Songs.Data
	if len(songs) == 0 {
		return nil, nil
	}

	attrs := songs[0].Attributes
	meta := &SongMetadata{
		ID:         songs[0].ID,
		Name:       attrs.Name,
		ArtistName: attrs.ArtistName,
		AlbumName:  attrs.AlbumName,
		ArtworkURL: attrs.Artwork.URL,
		URL:        attrs.URL,
	}
	if len(attrs.Previews) > 0 {
		meta.PreviewURL = attrs.Previews[0].URL
	}
	return meta, nil
}
