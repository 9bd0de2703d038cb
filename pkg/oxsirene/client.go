// Package oxsirene provides a client for the OxSirene API: marketplace
// scraping, SIRENE registry lookups, BAN geocoding and delivery distance
// estimates.
package oxsirene

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/resilience"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://oxsirenefunc.azurewebsites.net/api/v1"

// RequestIDHeader carries the correlation ID of a run.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 4 << 20

// Client defines the OxSirene API operations. cid is the correlation ID
// sent with every call.
type Client interface {
	// ScrapProduct lists the sellers offering the product at pageURL.
	ScrapProduct(ctx context.Context, cid, pageURL string) (*model.ProductListing, error)
	// ScrapSeller fetches a marketplace seller profile.
	ScrapSeller(ctx context.Context, cid, marketPlaceID, sellerID string) (*model.SellerRecord, error)
	// LookupRegistry queries SIRENE by siret or siren.
	LookupRegistry(ctx context.Context, cid, legalCode string) (*model.RegistryRecord, error)
	// Geocode resolves a postal address through the BAN.
	Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error)
	// ReverseGeocode finds the BAN address closest to coords.
	ReverseGeocode(ctx context.Context, cid string, coords model.Coordinates) (*model.GeocodeRecord, error)
	// EstimateDistance returns the road distance from origin to dest.
	EstimateDistance(ctx context.Context, cid string, origin, dest model.Coordinates) (*model.DistanceEstimate, error)
	// LocateIP geolocates ip, or the caller when ip is empty.
	LocateIP(ctx context.Context, cid, ip string) (*model.GeocodeRecord, error)
	// Token issues a new API access token.
	Token(ctx context.Context, cid string) (*AccessToken, error)
	// PublicIP asks the IP echo service for the caller's public address.
	PublicIP(ctx context.Context) (string, error)
}

// AccessToken is the answer of GET /token.
type AccessToken struct {
	Key string `json:"key"`
}

// TokenSource supplies the access token appended as ?code= to every call
// except /token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Observer receives the outcome of every HTTP round trip. status is 0 when
// no response was received.
type Observer interface {
	ObserveRequest(operation string, status int, elapsed time.Duration)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithIPEchoURL sets the public IP echo service.
func WithIPEchoURL(u string) Option {
	return func(c *httpClient) {
		c.ipEchoURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where access tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *httpClient) {
		c.tokens = ts
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithPolicy sets the retry and circuit breaker policy. nil disables both.
func WithPolicy(p *resilience.Policy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

// WithObserver sets a request observer.
func WithObserver(o Observer) Option {
	return func(c *httpClient) {
		c.observer = o
	}
}

type httpClient struct {
	baseURL   string
	ipEchoURL string
	http      *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	policy    *resilience.Policy
	observer  Observer
}

// NewClient creates an OxSirene API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   DefaultBaseURL,
		ipEchoURL: "https://api.ipify.org",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
		policy:  resilience.NewPolicy(resilience.DefaultRetryConfig(), resilience.DefaultBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call.
type request struct {
	operation string
	method    string
	url       string
	cid       string
	// authenticated appends ?code=<token>.
	authenticated bool
	in            any
	out           any
}

func (c *httpClient) do(ctx context.Context, r request) error {
	_, err := resilience.Call(ctx, c.policy, r.operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, r)
	})
	return err
}

func (c *httpClient) roundTrip(ctx context.Context, r request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrapf(err, "oxsirene: %s: rate limit wait", r.operation)
		}
	}

	reqURL := r.url
	if r.authenticated && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return eris.Wrapf(err, "oxsirene: %s: access token", r.operation)
		}
		reqURL = withQuery(reqURL, "code", token)
	}

	var body io.Reader
	if r.in != nil {
		data, err := json.Marshal(r.in)
		if err != nil {
			return eris.Wrapf(err, "oxsirene: %s: marshal request", r.operation)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return eris.Wrapf(err, "oxsirene: %s: create request", r.operation)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cid != "" {
		req.Header.Set(RequestIDHeader, r.cid)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(r.operation, 0, time.Since(start))
		return eris.Wrapf(err, "oxsirene: %s: request failed", r.operation)
	}
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	c.observe(r.operation, resp.StatusCode, time.Since(start))
	if readErr != nil {
		return eris.Wrapf(readErr, "oxsirene: %s: read response body", r.operation)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Operation: r.operation, StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
		if resilience.IsTransientStatus(resp.StatusCode) {
			return resilience.NewTransientError(se, resp.StatusCode)
		}
		return se
	}

	if r.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return eris.Wrapf(err, "oxsirene: %s: unmarshal response", r.operation)
	}
	return nil
}

func (c *httpClient) observe(operation string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(operation, status, elapsed)
	}
}

func (c *httpClient) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func withQuery(raw, key, value string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
