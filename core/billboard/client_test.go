package billboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{
  "info": {"chart": "Billboard Hot 100", "date": "2025-06-03"},
  "content": {
    "2": {"rank": 2, "title": "Second", "artist": "Artist B", "image": "b.jpg", "detail": "https://b", "last week": 1, "peak position": 1, "weeks on chart": 9},
    "1": {"rank": 1, "title": "First", "artist": "Artist A", "image": "a.jpg", "detail": "https://a", "last week": 3, "peak position": 1, "weeks on chart": 4}
  }
}`

func TestFetchChart(t *testing.T) {
	var gotKey, gotHost, gotDate, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-rapidapi-key")
		gotHost = r.Header.Get("x-rapidapi-host")
		gotDate = r.URL.Query().Get("date")
		gotPath = r.URL.Path
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	c := NewClient("billboard.example", "secret-key")
	c.SetBaseURL(srv.URL)

	payload, err := c.FetchChart(context.Background(), "hot-100", "2025-06-03")
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "billboard.example", gotHost)
	assert.Equal(t, "2025-06-03", gotDate)
	assert.Equal(t, "/hot-100", gotPath)

	assert.Equal(t, "Billboard Hot 100", payload.Title)
	assert.Equal(t, "2025-06-03", payload.Week)
	require.Len(t, payload.Songs, 2)
	assert.Equal(t, 1, payload.Songs[0].Position)
	assert.Equal(t, "First", payload.Songs[0].Name)
	assert.Equal(t, 2, payload.Songs[1].Position)
	assert.Equal(t, 9, payload.Songs[1].WeeksOnChart)
}

func TestFetchChartTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info": {}, "content": {"1": {"rank": 1, "title": "Only", "artist": "A"}}}`))
	}))
	defer srv.Close()

	c := NewClient("billboard.example", "key")
	c.SetBaseURL(srv.URL)

	payload, err := c.FetchChart(context.Background(), "billboard-200", "2025-06-03")
	require.NoError(t, err)
	assert.Equal(t, "billboard-200", payload.Title)
	assert.Equal(t, "2025-06-03", payload.Week)
}

func TestFetchChartEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info": {"chart": "Hot 100"}, "content": {}}`))
	}))
	defer srv.Close()

	c := NewClient("billboard.example", "key")
	c.SetBaseURL(srv.URL)

	_, err := c.FetchChart(context.Background(), "hot-100", "2025-06-03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries")
}

func TestFetchChartUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("billboard.example", "key")
	c.SetBaseURL(srv.URL)

	_, err := c.FetchChart(context.Background(), "hot-100", "2025-06-03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchTopCharts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-charts", r.URL.Path)
		w.Write([]byte(`{"charts": [{"id": "hot-100", "name": "Billboard Hot 100"}, {"id": "billboard-200", "name": "Billboard 200"}]}`))
	}))
	defer srv.Close()

	c := NewClient("billboard.example", "key")
	c.SetBaseURL(srv.URL)

	charts, err := c.FetchTopCharts(context.Background())
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, "hot-100", charts[0].ID)
	assert.Equal(t, "Billboard 200", charts[1].Title)
}
