// Package overpass fetches street geometry from the OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/streetrisk/internal/core/domain"
	"github.com/samirrijal/streetrisk/internal/pkg/metrics"
	"github.com/samirrijal/streetrisk/internal/pkg/telemetry"
)

// DefaultEndpoints are the public Overpass interpreters, tried in order.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// ErrAllEndpointsFailed wraps the last endpoint error once every endpoint was tried.
var ErrAllEndpointsFailed = errors.New("overpass: all endpoints failed")

const userAgent = "streetrisk/1.0"

type endpoint struct {
	url     string
	breaker *gobreaker.CircuitBreaker[*domain.WayGraph]
}

// Client implements ports.GeometryProvider against a list of Overpass endpoints.
type Client struct {
	http         *http.Client
	endpoints    []endpoint
	queryTimeout int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithQueryTimeout sets the server-side [timeout:n] of the query in seconds.
func WithQueryTimeout(seconds int) Option {
	return func(cl *Client) {
		if seconds > 0 {
			cl.queryTimeout = seconds
		}
	}
}

// New creates a Client. An empty endpoint list falls back to DefaultEndpoints.
func New(endpoints []string, httpTimeout time.Duration, opts ...Option) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}

	c := &Client{
		http:         &http.Client{Timeout: httpTimeout},
		queryTimeout: 60,
	}
	for _, u := range endpoints {
		c.endpoints = append(c.endpoints, endpoint{url: u, breaker: newBreaker(u)})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*domain.WayGraph] {
	return gobreaker.NewCircuitBreaker[*domain.WayGraph](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("overpass breaker state change", "endpoint", name, "from", from.String(), "to", to.String())
		},
	})
}

// FetchWays returns the highway graph inside b from the first endpoint that
// answers with a decodable body.
func (c *Client) FetchWays(ctx context.Context, b domain.Bounds) (*domain.WayGraph, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFetchGeometry)
	defer span.End()

	query := BuildQuery(b, c.queryTimeout)

	var lastErr error
	for _, ep := range c.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		graph, err := ep.breaker.Execute(func() (*domain.WayGraph, error) {
			return c.post(ctx, ep.url, query)
		})
		metrics.OverpassFetchDuration.WithLabelValues(ep.url).Observe(time.Since(start).Seconds())

		if err == nil {
			span.SetAttributes(
				telemetry.AttrEndpoint.String(ep.url),
				telemetry.AttrWayCount.Int(len(graph.Ways)),
			)
			return graph, nil
		}

		metrics.OverpassFetchErrors.WithLabelValues(ep.url).Inc()
		slog.WarnContext(ctx, "overpass endpoint failed", "endpoint", ep.url, "error", err)
		lastErr = err
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all endpoints failed")
	return nil, fmt.Errorf("%w: %w", ErrAllEndpointsFailed, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint, query string) (*domain.WayGraph, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}
