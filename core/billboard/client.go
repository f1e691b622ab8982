package billboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"waveger/logger"
	"waveger/model"
)

// Client talks to the Billboard Charts API on RapidAPI.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// NewClient creates a new API client for the given RapidAPI host and key.
func NewClient(apiHost, apiKey string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("https://%s", apiHost),
		apiKey:  apiKey,
		apiHost: apiHost,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// chartResponse mirrors the upstream chart payload: chart metadata under
// "info" and rank-keyed song entries under "content".
type chartResponse struct {
	Info struct {
		Chart string `json:"chart"`
		Date  string `json:"date"`
	} `json:"info"`
	Content map[string]chartItem `json:"content"`
}

type chartItem struct {
	Rank         int    `json:"rank"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Image        string `json:"image"`
	Detail       string `json:"detail"`
	LastWeek     int    `json:"last week"`
	PeakPosition int    `json:"peak position"`
	WeeksOnChart int    `json:"weeks on chart"`
}

// FetchChart retrieves one chart for one week and normalizes it into the
// ChartPayload shape. chartID is the upstream path segment ("hot-100"),
// week is a YYYY-MM-DD date.
func (c *Client) FetchChart(ctx context.Context, chartID, week string) (*model.ChartPayload, error) {
	logger.Debug("Fetching chart from upstream API",
		logger.String("chart", chartID),
		logger.String("week", week))

	query := url.Values{}
	query.Set("date", week)

	req, err := c.newRequest(ctx, "/"+chartID, query)
	if err != nil {
		return nil, err
	}

	var result chartResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch chart %s: %w", chartID, err)
	}

	if len(result.Content) == 0 {
		return nil, fmt.Errorf("chart %s has no entries for %s", chartID, week)
	}

	songs := make([]model.ChartEntry, 0, len(result.Content))
	for _, item := range result.Content {
		songs = append(songs, model.ChartEntry{
			Position:         item.Rank,
			Name:             item.Title,
			Artist:           item.Artist,
			Image:            item.Image,
			URL:              item.Detail,
			LastWeekPosition: item.LastWeek,
			PeakPosition:     item.PeakPosition,
			WeeksOnChart:     item.WeeksOnChart,
		})
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].Position < songs[j].Position })

	title := result.Info.Chart
	if title == "" {
		title = chartID
	}
	payloadWeek := result.Info.Date
	if payloadWeek == "" {
		payloadWeek = week
	}

	return &model.ChartPayload{
		Title: title,
		Week:  payloadWeek,
		Songs: songs,
	}, nil
}

// topChartsResponse mirrors the upstream chart listing.
type topChartsResponse struct {
	Charts []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"charts"`
}

// FetchTopCharts retrieves the list of available charts.
func (c *Client) FetchTopCharts(ctx context.Context) ([]model.ChartSummary, error) {
	req, err := c.newRequest(ctx, "/top-charts", nil)
	if err != nil {
		return nil, err
	}

	var result topChartsResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch top charts: %w", err)
	}

	charts := make([]model.ChartSummary, 0, len(result.Charts))
	for _, ch := range result.Charts {
		charts = append(charts, model.ChartSummary{ID: ch.ID, Title: ch.Name})
	}
	return charts, nil
}
