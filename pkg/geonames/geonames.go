// Package geonames looks up the IANA timezone and GMT offset of a coordinate
// on a given date using the GeoNames timezoneJSON web service.
package geonames

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "http://api.geonames.org/timezoneJSON"
	defaultTimeout    = 3 * time.Second
	defaultMaxRetries = 5
	defaultWaitMin    = 500 * time.Millisecond
	defaultWaitMax    = 8 * time.Second

	maxBodyBytes = 1 << 20
)

// Config controls the client. Zero values get sensible defaults.
type Config struct {
	Username   string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RequestsPerSecond throttles calls when > 0.
	RequestsPerSecond float64

	// Transport is the round tripper for outgoing requests; nil uses a pooled default.
	Transport http.RoundTripper
}

// TimezoneResult is the outcome of a lookup. A result built by Empty carries
// only the inputs and is not Complete.
type TimezoneResult struct {
	Latitude  float64
	Longitude float64
	Date      string
	TZID      string
	GMTOffset float64
	HasOffset bool
}

// Empty returns a fresh result holding only the lookup inputs.
func Empty(lat, lon float64, date string) TimezoneResult {
	return TimezoneResult{Latitude: lat, Longitude: lon, Date: date}
}

// Complete reports whether the timezone id and offset are both present.
func (r TimezoneResult) Complete() bool {
	return r.TZID != "" && r.HasOffset
}

// Client calls GeoNames. It holds no state between calls besides its config.
type Client struct {
	username   string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
	transport  http.RoundTripper
	limiter    *rate.Limiter
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, errors.New("geonames requires a username (set geonames.username in config or FMSAVE_GN_USERNAME)")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid geonames url %q: %w", baseURL, err)
	}

	c := &Client{
		username:   username,
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		waitMin:    cfg.RetryWaitMin,
		waitMax:    cfg.RetryWaitMax,
		transport:  cfg.Transport,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.waitMin <= 0 {
		c.waitMin = defaultWaitMin
	}
	if c.waitMax < c.waitMin {
		c.waitMax = defaultWaitMax
		if c.waitMax < c.waitMin {
			c.waitMax = c.waitMin
		}
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// FindTimezone looks up the timezone at lat/lon on date (YYYY-MM-DD). A zero
// timeout or maxRetries uses the client defaults. Every failure is an *Error.
func (c *Client) FindTimezone(ctx context.Context, lat, lon float64, date string, timeout time.Duration, maxRetries int) (TimezoneResult, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	if maxRetries <= 0 {
		maxRetries = c.maxRetries
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return TimezoneResult{}, &Error{Kind: Connection, Msg: "rate limiter", Err: err}
		}
	}

	u, _ := url.Parse(c.baseURL)
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("date", date)
	q.Set("username", c.username)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String(), timeout, maxRetries)
	if err != nil {
		return TimezoneResult{}, err
	}
	return parseResponse(body)
}

func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration, maxRetries int) ([]byte, error) {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.HTTPClient = &http.Client{Transport: c.transport, Timeout: timeout}
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = c.waitMin
	rc.RetryWaitMax = c.waitMax
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = giveUp

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: Connection, Msg: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := rc.Do(req)
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			return nil, gerr
		}
		return nil, &Error{Kind: Connection, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: Connection, Msg: "reading response", Err: err}
	}
	// A failed status is only parsed further when it carries a GeoNames
	// status envelope.
	if resp.StatusCode != http.StatusOK && !(gjson.ValidBytes(body) && gjson.GetBytes(body, "status").Exists()) {
		return nil, &Error{Kind: Service, Status: resp.StatusCode, Msg: truncate(string(body), 200)}
	}
	return body, nil
}

var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// checkRetry retries idempotent requests on throttling and gateway statuses
// only. Transport errors are handed back to the caller untouched.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return false, err
	}
	if resp == nil || resp.Request == nil {
		return false, nil
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		return false, nil
	}
	return retryStatuses[resp.StatusCode], nil
}

// giveUp is called when the last attempt failed or the retry budget ran out.
func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if retryStatuses[status] {
			return nil, &Error{Kind: RetryExhausted, Msg: fmt.Sprintf("HTTP %d after %d attempt(s)", status, numTries)}
		}
	}
	return nil, &Error{Kind: Connection, Msg: fmt.Sprintf("after %d attempt(s)", numTries), Err: err}
}

// parseResponse maps the body to a result or to the error taxonomy. A 200
// with a status envelope is still an error.
func parseResponse(body []byte) (TimezoneResult, error) {
	if !gjson.ValidBytes(body) {
		return TimezoneResult{}, &Error{Kind: Malformed, Msg: "response is not JSON: " + truncate(string(body), 200)}
	}
	res := gjson.ParseBytes(body)
	if status := res.Get("status"); status.Exists() {
		return TimezoneResult{}, statusError(int(status.Get("value").Int()), status.Get("message").String())
	}

	lat, lng := res.Get("lat"), res.Get("lng")
	if !lat.Exists() || !lng.Exists() {
		return TimezoneResult{}, &Error{Kind: Malformed, Msg: "missing lat/lng"}
	}

	dates := res.Get("dates").Array()
	if len(dates) < 2 || !dates[0].Get("date").Exists() || !dates[1].Get("offsetToGmt").Exists() {
		return TimezoneResult{}, &Error{Kind: InvalidDate, Msg: "response has no dates"}
	}

	return TimezoneResult{
		Latitude:  lat.Float(),
		Longitude: lng.Float(),
		Date:      dates[0].Get("date").String(),
		TZID:      res.Get("timezoneId").String(),
		GMTOffset: dates[1].Get("offsetToGmt").Float(),
		HasOffset: true,
	}, nil
}

// statusError follows http://www.geonames.org/export/webservice-exception.html
func statusError(code int, msg string) *Error {
	switch {
	case strings.HasPrefix(msg, "user account not enabled to use"):
		return &Error{Kind: Authentication, Code: code, Msg: "insufficient privileges: " + msg}
	case code == 10:
		return &Error{Kind: Authentication, Code: code, Msg: msg}
	case code == 14:
		return &Error{Kind: InvalidDate, Code: code, Msg: msg}
	case code == 18, code == 19, code == 20:
		return &Error{Kind: CreditLimit, Code: code, Msg: msg}
	default:
		return &Error{Kind: Service, Code: code, Msg: msg}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
