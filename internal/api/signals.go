package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/validate"
)

// ListSignals returns signals matching filter, highest priority first.
// Blank filter fields are omitted from the query.
func (c *Client) ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.Signal, error) {
	var out []model.Signal
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("signals"),
		query:  filter.Query(),
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Signal{}
	}
	return out, nil
}

// SignalFilters enumerates valid disease and location filter values.
// Responses are cached for the configured filters TTL.
func (c *Client) SignalFilters(ctx context.Context) (*model.FilterOptions, error) {
	path := c.endpoint("signals", "filters")
	key := c.cacheKey(path)

	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			var cached model.FilterOptions
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
			_ = c.cache.Delete(key)
		}
	}

	var out model.FilterOptions
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := c.cache.Set(key, data, c.filtersTTL); err != nil {
				c.logger.Debug("cache filter options", "error", err)
			}
		}
	}
	return &out, nil
}

// GetSignal fetches one signal
func (c *Client) GetSignal(ctx context.Context, id string) (*model.Signal, error) {
	if err := validate.ID("signal_id", id); err != nil {
		return nil, err
	}
	var out model.Signal
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("signals", id),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriageSignal records the initial human review of a signal
func (c *Client) TriageSignal(ctx context.Context, id string, update model.TriageUpdate) error {
	if err := validate.ID("signal_id", id); err != nil {
		return err
	}
	if update.TriageStatus == "" && update.CurrentStatus == "" {
		return &validate.ValidationError{Field: "triage_status", Message: "is required"}
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("signals", id, "triage"),
		body:   update,
	}, nil)
}

// PollBeacon triggers an ingestion sync. The backend answers 409 while a
// sync runs and 429 while rate limited.
func (c *Client) PollBeacon(ctx context.Context) (*model.BeaconSyncResult, error) {
	var out model.BeaconSyncResult
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.endpoint("signals", "poll-beacon"),
	}, &out); err != nil {
		return nil, err
	}
	// New signals can introduce new diseases and locations
	if c.cache != nil {
		_ = c.cache.Delete(c.cacheKey(c.endpoint("signals", "filters")))
	}
	return &out, nil
}

// ScraperStatus reports the ingestion job state
func (c *Client) ScraperStatus(ctx context.Context) (*model.ScraperStatus, error) {
	var out model.ScraperStatus
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("signals", "scraper-status"),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MapData returns geocoded markers and heatmap points
func (c *Client) MapData(ctx context.Context, filter model.MapFilter) (*model.MapData, error) {
	var out model.MapData
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("signals", "map-data"),
		query:  filter.Query(),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
