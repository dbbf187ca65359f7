// Package aemet talks to the AEMET OpenData daily climatology archive.
//
// The archive uses a two-call protocol: a request for a station and date
// range returns a small JSON descriptor whose "datos" field points at
// the actual payload, which is fetched with a follow-up call. Single
// requests are limited to roughly six months, so a year is retrieved as
// two half-year windows concatenated in chronological order.
package aemet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mavillena/aemet-track/internal/climate"
	"github.com/mavillena/aemet-track/internal/common"
	"github.com/mavillena/aemet-track/internal/logger"
	"github.com/mavillena/aemet-track/internal/metrics"
)

const (
	// DefaultBaseURL is the AEMET OpenData API root.
	DefaultBaseURL = "https://opendata.aemet.es/opendata/api"
	// DefaultPace is the minimum interval between consecutive API calls.
	DefaultPace = time.Second

	climatologyPath = "/valores/climatologicos/diarios/datos/fechaini/%s/fechafin/%s/estacion/%s"

	statusOK     = 200
	statusNoData = 404
)

// ErrFetchFailed is returned when the archive reports a non-success
// status or an otherwise unusable response.
var ErrFetchFailed = errors.New("aemet: fetch failed")

// errNoData marks the archive's "no data for this range" answer. For a
// completed year it is a fetch failure; for the in-progress year it just
// ends the series.
var errNoData = errors.New("aemet: no data for range")

// Config carries the client settings.
type Config struct {
	APIKey    string
	StationID string
	BaseURL   string        // DefaultBaseURL when empty
	Pace      time.Duration // DefaultPace when zero
}

// Client implements climate.Source against the AEMET OpenData archive.
type Client struct {
	httpClient *http.Client
	cfg        Config
	circuit    *gobreaker.CircuitBreaker
	log        *logger.Logger
	metrics    *metrics.Collector
}

// NewClient creates a new archive client.
func NewClient(httpClient *http.Client, cfg Config, log *logger.Logger, col *metrics.Collector) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Pace == 0 {
		cfg.Pace = DefaultPace
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "aemet",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		circuit:    cb,
		log:        log,
		metrics:    col,
	}
}

// rangeResponse is the first-call descriptor: either a redirect to the
// payload URL or an error status with a description.
type rangeResponse struct {
	Estado      int    `json:"estado"`
	Datos       string `json:"datos"`
	Descripcion string `json:"descripcion"`
}

// dayEntry is one payload day. Values come decimal-comma formatted and
// may be missing.
type dayEntry struct {
	Fecha string `json:"fecha"`
	TMax  string `json:"tmax"`
	TMed  string `json:"tmed"`
	TMin  string `json:"tmin"`
	Prec  string `json:"prec"`
}

// FetchYear returns every day entry of a completed calendar year,
// fetched as two half-year windows. A "no data" answer for either half
// is a fetch failure: completed years must exist in the archive.
func (c *Client) FetchYear(ctx context.Context, year int) ([]climate.Observation, error) {
	first, err := c.fetchWindow(ctx,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		if errors.Is(err, errNoData) {
			return nil, fmt.Errorf("%w: year %d has no archived data", ErrFetchFailed, year)
		}
		return nil, err
	}
	if err = c.pace(ctx); err != nil {
		return nil, err
	}
	second, err := c.fetchWindow(ctx,
		time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		if errors.Is(err, errNoData) {
			return nil, fmt.Errorf("%w: year %d has no archived data after June", ErrFetchFailed, year)
		}
		return nil, err
	}
	return append(first, second...), nil
}

// FetchCurrentYear returns the in-progress year's entries. Windows the
// archive has no data for yet simply end the series.
func (c *Client) FetchCurrentYear(ctx context.Context, year int) ([]climate.Observation, error) {
	first, err := c.fetchWindow(ctx,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		if errors.Is(err, errNoData) {
			return nil, nil
		}
		return nil, err
	}
	if err = c.pace(ctx); err != nil {
		return nil, err
	}
	second, err := c.fetchWindow(ctx,
		time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		if errors.Is(err, errNoData) {
			return first, nil
		}
		return nil, err
	}
	return append(first, second...), nil
}

// fetchWindow performs the two-call protocol for one date range.
func (c *Client) fetchWindow(ctx context.Context, from, to time.Time) ([]climate.Observation, error) {
	rangeURL := fmt.Sprintf(c.cfg.BaseURL+climatologyPath, stamp(from), stamp(to), c.cfg.StationID)

	var redirect rangeResponse
	if err := c.getJSON(ctx, rangeURL, &redirect); err != nil {
		return nil, err
	}
	if redirect.Estado != statusOK {
		if redirect.Estado == statusNoData || common.HasAny(redirect.Descripcion, "No hay datos", "no hay datos") {
			return nil, fmt.Errorf("%w: %s to %s", errNoData, from.Format("2006-01-02"), to.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetchFailed, redirect.Estado, redirect.Descripcion)
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	var entries []dayEntry
	if err := c.getJSON(ctx, redirect.Datos, &entries); err != nil {
		return nil, err
	}

	obs := make([]climate.Observation, 0, len(entries))
	for _, e := range entries {
		date, err := time.Parse("2006-01-02", e.Fecha)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed date %q", ErrFetchFailed, e.Fecha)
		}
		obs = append(obs, climate.Observation{
			Date: date,
			TMax: e.TMax,
			TMed: e.TMed,
			TMin: e.TMin,
			Prec: e.Prec,
		})
	}
	return obs, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("cache-control", "no-cache")
		req.Header.Set("api_key", c.cfg.APIKey)
		query := url.Values{}
		query.Set("api_key", c.cfg.APIKey)
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = query.Encode()
		}
		return req, nil
	}

	start := time.Now()
	resp, err := doWithResilience(ctx, c.httpClient, c.circuit, defaultBackoff, buildRequest)
	if err != nil {
		c.metrics.ObserveFetch("error", time.Since(start))
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveFetch("ok", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d", ErrFetchFailed, resp.StatusCode)
	}
	if err = json.NewDecoder(resp.Body).Decode(target); err != nil {
		c.log.Debug("failed to decode archive response", slog.String("url", endpoint), logger.Err(err))
		return fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}
	return nil
}

// pace waits the configured minimum interval between API calls.
func (c *Client) pace(ctx context.Context) error {
	if c.cfg.Pace <= 0 {
		return nil
	}
	timer := time.NewTimer(c.cfg.Pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stamp formats a date the way the archive's URL scheme expects, with
// the time portion's colons percent-encoded.
func stamp(t time.Time) string {
	return t.Format("2006-01-02") + "T00%3A00%3A00UTC"
}
