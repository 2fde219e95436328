package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
)

// The API starts a schedule window at the fetch time, so only the end bound
// is sent, as a zoneless local timestamp.
const endParamLayout = "2006-01-02T15:04:05"

// API is the client surface the extractors consume. *Client implements it;
// tests substitute fakes.
type API interface {
	Routes(ctx context.Context) ([]Route, error)
	VariantDestinations(ctx context.Context, variantKey string) ([]Destination, error)
	VariantStops(ctx context.Context, variantKey string) ([]Stop, error)
	StopFeatures(ctx context.Context, stopNumber string) ([]StopFeature, error)
	StopSchedule(ctx context.Context, stopNumber string, end time.Time) (*StopSchedule, error)
}

// Client calls the Winnipeg Transit REST API. It owns HTTP mechanics only:
// authentication, throttling, decoding. Interpreting payloads belongs to
// the extractors. The limiter is shared by every caller, so concurrent
// fan-outs draw from one request budget.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from the transit configuration.
func NewClient(cfg config.TransitConfig) *Client {
	interval := time.Minute / time.Duration(cfg.RateLimitRPM)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Routes fetches the full route catalog.
func (c *Client) Routes(ctx context.Context) ([]Route, error) {
	var out RoutesResponse
	if err := c.get(ctx, "/routes.json", nil, &out); err != nil {
		return nil, err
	}
	return out.Routes, nil
}

// VariantDestinations fetches the destinations served by one route variant.
func (c *Client) VariantDestinations(ctx context.Context, variantKey string) ([]Destination, error) {
	var out DestinationsResponse
	path := fmt.Sprintf("/variants/%s/destinations.json", url.PathEscape(variantKey))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Destinations, nil
}

// VariantStops fetches every stop served by one route variant.
func (c *Client) VariantStops(ctx context.Context, variantKey string) ([]Stop, error) {
	var out StopsResponse
	query := url.Values{}
	query.Set("variant", variantKey)
	if err := c.get(ctx, "/stops.json", query, &out); err != nil {
		return nil, err
	}
	return out.Stops, nil
}

// StopFeatures fetches the amenity records of one stop.
func (c *Client) StopFeatures(ctx context.Context, stopNumber string) ([]StopFeature, error) {
	var out StopFeaturesResponse
	path := fmt.Sprintf("/stops/%s/features.json", url.PathEscape(stopNumber))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.StopFeatures, nil
}

// StopSchedule fetches the schedule for one stop from now until end.
func (c *Client) StopSchedule(ctx context.Context, stopNumber string, end time.Time) (*StopSchedule, error) {
	var out StopScheduleResponse
	path := fmt.Sprintf("/stops/%s/schedule.json", url.PathEscape(stopNumber))
	query := url.Values{}
	query.Set("end", end.Format(endParamLayout))
	if err := c.get(ctx, path, query, &out); err != nil {
		return nil, err
	}
	return &out.StopSchedule, nil
}

// get performs one throttled, authenticated GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}

	return nil
}
