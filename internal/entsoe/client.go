package entsoe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	emissions "entsoe-bridge/internal/emissions/domain"
	"entsoe-bridge/internal/observability/metrics"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

const (
	// ProductionURL is the public transparency platform API.
	ProductionURL = "https://web-api.tp.entsoe.eu/api"
	// TestURL is the transparency platform acceptance environment.
	TestURL = "https://iop-transparency.entsoe.eu/api"

	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 300
	defaultRetryDelay        = 2 * time.Second
	maxRetries               = 1
	maxBodyBytes             = 32 << 20
	periodLayout             = "200601021504"
)

// Config holds the client settings.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerMinute int
	RetryDelay        time.Duration
}

// Client queries day-ahead documents from the transparency platform.
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client. The token is required.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = ProductionURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("entsoe: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	retryDelay := cfg.RetryDelay
	if retryDelay < 0 {
		retryDelay = 0
	} else if retryDelay == 0 {
		retryDelay = defaultRetryDelay
	}

	c := &Client{
		baseURL:    base,
		token:      token,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		retryDelay: retryDelay,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the API endpoint in use.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// DayAheadPrices fetches day-ahead prices for an area. An empty series is returned
// when the platform has no data for the window.
func (c *Client) DayAheadPrices(ctx context.Context, area Area, window timeseries.Window) (timeseries.RawSeries, error) {
	params := url.Values{}
	params.Set("documentType", DocumentPrices)
	params.Set("in_Domain", area.EIC)
	params.Set("out_Domain", area.EIC)
	segments, err := c.fetch(ctx, DocumentPrices, params, window, true)
	if err != nil {
		return timeseries.RawSeries{}, err
	}
	return mergeSegments(timeseries.KindPrice, segments)
}

// GenerationForecast fetches the day-ahead aggregated generation schedule. Scheduled
// consumption series in the same document are dropped.
func (c *Client) GenerationForecast(ctx context.Context, area Area, window timeseries.Window) (timeseries.RawSeries, error) {
	params := url.Values{}
	params.Set("documentType", DocumentGenerationForecast)
	params.Set("processType", ProcessDayAhead)
	params.Set("in_Domain", area.EIC)
	segments, err := c.fetch(ctx, DocumentGenerationForecast, params, window, false)
	if err != nil {
		return timeseries.RawSeries{}, err
	}
	generation := segments[:0]
	for _, s := range segments {
		if !s.Consumption {
			generation = append(generation, s)
		}
	}
	return mergeSegments(timeseries.KindGenerationPower, generation)
}

// WindSolarForecast fetches day-ahead wind and solar forecasts keyed by fuel type.
func (c *Client) WindSolarForecast(ctx context.Context, area Area, window timeseries.Window) (map[emissions.FuelType]timeseries.RawSeries, error) {
	params := url.Values{}
	params.Set("documentType", DocumentWindSolarForecast)
	params.Set("processType", ProcessDayAhead)
	params.Set("in_Domain", area.EIC)
	segments, err := c.fetch(ctx, DocumentWindSolarForecast, params, window, false)
	if err != nil {
		return nil, err
	}
	byPSR := make(map[string][]segment)
	for _, s := range segments {
		byPSR[s.PSRType] = append(byPSR[s.PSRType], s)
	}
	out := make(map[emissions.FuelType]timeseries.RawSeries, len(byPSR))
	for psr, group := range byPSR {
		raw, err := mergeSegments(timeseries.KindGenerationPower, group)
		if err != nil {
			return nil, err
		}
		out[FuelTypeForPSR(psr)] = raw
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, document string, params url.Values, window timeseries.Window, prices bool) ([]segment, error) {
	if c == nil || c.http == nil {
		return nil, errors.New("entsoe: nil client")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	params.Set("periodStart", window.From.UTC().Format(periodLayout))
	params.Set("periodEnd", window.Until.UTC().Format(periodLayout))

	doc, err := c.query(ctx, document, params)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return doc.segments(prices)
}

func (c *Client) query(ctx context.Context, document string, params url.Values) (*marketDocument, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryDelay
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			c.logger.Printf("entsoe: retrying document=%s after=%s err=%v", document, wait, lastErr)
			metrics.IncUpstreamRetry(retryReason(lastErr))
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
		}
		started := time.Now()
		doc, retry, err := c.do(ctx, params)
		switch {
		case err != nil:
			metrics.ObserveUpstream(document, metrics.ResultError, time.Since(started))
		case doc == nil:
			metrics.ObserveUpstream(document, metrics.ResultEmpty, time.Since(started))
		default:
			metrics.ObserveUpstream(document, metrics.ResultSuccess, time.Since(started))
		}
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

// do performs one request. A nil document with a nil error means no matching data.
func (c *Client) do(ctx context.Context, params url.Values) (*marketDocument, bool, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("securityToken", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	req.Header.Set("Accept", "application/xml")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: read body: %v", ErrUpstreamFetch, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		if doc, derr := decodeDocument(body); derr == nil {
			if doc.noMatchingData() {
				return nil, false, nil
			}
			if r, ok := doc.reason(); ok {
				apiErr.Code = r.Code
				apiErr.Message = r.Text
			}
		}
		return nil, apiErr.Temporary(), apiErr
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, false, err
	}
	if doc.acknowledgement() {
		if doc.noMatchingData() {
			return nil, false, nil
		}
		r, _ := doc.reason()
		return nil, false, &APIError{StatusCode: resp.StatusCode, Code: r.Code, Message: r.Text}
	}
	return doc, false, nil
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func retryReason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "transport"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
