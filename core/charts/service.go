package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waveger/logger"
	"waveger/model"
	"waveger/repository"
)

// DefaultChartID is used when a request doesn't name a chart.
const DefaultChartID = "hot-100"

// topChartsTitle is the reserved cache key for the chart listing.
const topChartsTitle = "top-charts"

// Source values reported to clients.
const (
	SourceDatabase = "database"
	SourceAPI      = "api"
)

// ChartAPI is the upstream chart provider.
type ChartAPI interface {
	FetchChart(ctx context.Context, chartID, week string) (*model.ChartPayload, error)
	FetchTopCharts(ctx context.Context) ([]model.ChartSummary, error)
}

// PayloadCache is the hot cache in front of the chart store. A nil-safe
// implementation may report misses unconditionally.
type PayloadCache interface {
	GetChart(ctx context.Context, title, week string) (json.RawMessage, error)
	SetChart(ctx context.Context, title, week string, data json.RawMessage) error
}

// ChartResult is the response envelope for a single chart.
type ChartResult struct {
	Source string             `json:"source"`
	Data   model.ChartPayload `json:"data"`
}

// TopChartsData wraps the chart listing.
type TopChartsData struct {
	Charts []model.ChartSummary `json:"charts"`
}

// TopChartsResult is the response envelope for the chart listing.
type TopChartsResult struct {
	Source string        `json:"source"`
	Data   TopChartsData `json:"data"`
}

// Service resolves chart requests cache-aside: Redis, then Postgres, then the
// upstream API. Upstream results are persisted permanently; a row, once
// written, is never refreshed.
type Service struct {
	repo repository.ChartRepository
	api  ChartAPI
	hot  PayloadCache

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewService creates a chart service.
func NewService(repo repository.ChartRepository, api ChartAPI, hot PayloadCache) *Service {
	return &Service{
		repo: repo,
		api:  api,
		hot:  hot,
		now:  time.Now,
	}
}

// ResolveWeek applies the default (today) and chart-week alignment to a
// requested week. An empty week is defaulted rather than rejected.
func (s *Service) ResolveWeek(week string) (string, error) {
	if week == "" {
		return AlignToChartWeek(s.now()), nil
	}
	t, err := ParseWeek(week)
	if err != nil {
		return "", err
	}
	return AlignToChartWeek(t), nil
}

// GetChart returns the chart identified by chartID for the given week,
// annotated with its provenance.
func (s *Service) GetChart(ctx context.Context, chartID, week string) (*ChartResult, error) {
	if chartID == "" {
		chartID = DefaultChartID
	}

	alignedWeek, err := s.ResolveWeek(week)
	if err != nil {
		return nil, err
	}

	// Redis layer. A hit here is still provenance "database": the payload was
	// not freshly fetched from the upstream API.
	if s.hot != nil {
		raw, err := s.hot.GetChart(ctx, chartID, alignedWeek)
		if err != nil {
			logger.Warn("Chart cache read failed, falling through to database",
				logger.String("chart", chartID), logger.ErrorField(err))
		}
		if raw != nil {
			var payload model.ChartPayload
			if err := json.Unmarshal(raw, &payload); err == nil {
				return &ChartResult{Source: SourceDatabase, Data: payload}, nil
			}
			logger.Warn("Discarding corrupt cached chart payload",
				logger.String("chart", chartID), logger.String("week", alignedWeek))
		}
	}

	// Postgres layer.
	stored, err := s.repo.GetByTitleAndWeek(ctx, chartID, alignedWeek)
	if err != nil {
		return nil, fmt.Errorf("chart lookup failed: %w", err)
	}
	if stored != nil {
		var payload model.ChartPayload
		if err := json.Unmarshal(stored.Data, &payload); err != nil {
			return nil, fmt.Errorf("stored chart %s/%s is corrupt: %w", chartID, alignedWeek, err)
		}
		s.backfillHotCache(ctx, chartID, alignedWeek, stored.Data)
		return &ChartResult{Source: SourceDatabase, Data: payload}, nil
	}

	// Miss: fetch upstream and persist. Upstream failure propagates to the
	// caller with no fallback.
	payload, err := s.api.FetchChart(ctx, chartID, alignedWeek)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chart payload: %w", err)
	}

	id, err := s.repo.Create(ctx, &model.Chart{
		Title: chartID,
		Week:  alignedWeek,
		Data:  raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist chart %s/%s: %w", chartID, alignedWeek, err)
	}
	if id == 0 {
		// A concurrent request won the insert race; both served the same
		// upstream week, so our payload is equally canonical.
		logger.Debug("Concurrent chart insert detected",
			logger.String("chart", chartID), logger.String("week", alignedWeek))
	}

	s.backfillHotCache(ctx, chartID, alignedWeek, raw)

	logger.Info("Chart fetched from upstream and cached",
		logger.String("chart", chartID),
		logger.String("week", alignedWeek),
		logger.Int("songs", len(payload.Songs)))

	return &ChartResult{Source: SourceAPI, Data: *payload}, nil
}

// GetTopCharts returns the list of available charts, cached per chart week.
func (s *Service) GetTopCharts(ctx context.Context) (*TopChartsResult, error) {
	// The listing changes rarely; key it by the current chart week so it
	// refreshes when a new week is published.
	week := AlignToChartWeek(s.now())

	if s.hot != nil {
		raw, err := s.hot.GetChart(ctx, topChartsTitle, week)
		if err != nil {
			logger.Warn("Top charts cache read failed", logger.ErrorField(err))
		}
		if raw != nil {
			var data TopChartsData
			if err := json.Unmarshal(raw, &data); err == nil {
				return &TopChartsResult{Source: SourceDatabase, Data: data}, nil
			}
		}
	}

	stored, err := s.repo.GetByTitleAndWeek(ctx, topChartsTitle, week)
	if err != nil {
		return nil, fmt.Errorf("top charts lookup failed: %w", err)
	}
	if stored != nil {
		var data TopChartsData
		if err := json.Unmarshal(stored.Data, &data); err != nil {
			return nil, fmt.Errorf("stored top charts are corrupt: %w", err)
		}
		s.backfillHotCache(ctx, topChartsTitle, week, stored.Data)
		return &TopChartsResult{Source: SourceDatabase, Data: data}, nil
	}

	summaries, err := s.api.FetchTopCharts(ctx)
	if err != nil {
		return nil, err
	}

	data := TopChartsData{Charts: summaries}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal top charts: %w", err)
	}

	if _, err := s.repo.Create(ctx, &model.Chart{Title: topChartsTitle, Week: week, Data: raw}); err != nil {
		return nil, fmt.Errorf("failed to persist top charts: %w", err)
	}
	s.backfillHotCache(ctx, topChartsTitle, week, raw)

	return &TopChartsResult{Source: SourceAPI, Data: data}, nil
}

func (s *Service) backfillHotCache(ctx context.Context, title, week string, raw json.RawMessage) {
	if s.hot == nil {
		return
	}
	if err := s.hot.SetChart(ctx, title, week, raw); err != nil {
		// Cache writes are best effort.
		logger.Warn("Chart cache write failed",
			logger.String("chart", title), logger.ErrorField(err))
	}
}
