package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vodaudit/internal/httpclient"
	"vodaudit/internal/services"
)

const maxResponseBytes = 64 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	Username  string
	Password  string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps the request rate; zero disables limiting.
	RequestsPerSecond float64
}

// Client issues player_api.php requests for one account.
type Client struct {
	base      string
	username  string
	password  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	policy    httpclient.RetryPolicy
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "xtream", "new", "server url is empty", nil)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "xtream", "new", "invalid server url", err)
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		base:      base,
		username:  opts.Username,
		password:  opts.Password,
		userAgent: opts.UserAgent,
		http:      httpclient.WithTimeout(opts.Timeout),
		limiter:   limiter,
		policy:    httpclient.DefaultRetryPolicy,
	}, nil
}

// Series lists every series the account can see (action=get_series).
func (c *Client) Series(ctx context.Context) ([]Series, error) {
	body, err := c.get(ctx, url.Values{"action": {"get_series"}})
	if err != nil {
		return nil, err
	}
	series, err := decodeSeriesList(body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "xtream", "get_series", "decode", err)
	}
	return series, nil
}

// SeriesInfo fetches one series with its episodes (action=get_series_info).
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) (SeriesInfo, error) {
	body, err := c.get(ctx, url.Values{
		"action":    {"get_series_info"},
		"series_id": {seriesID},
	})
	if err != nil {
		return SeriesInfo{}, err
	}
	var info SeriesInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return SeriesInfo{}, services.Wrap(services.ErrValidation, "xtream", "get_series_info", "decode series "+seriesID, err)
	}
	return info, nil
}

func (c *Client) endpoint(params url.Values) string {
	params.Set("username", c.username)
	params.Set("password", c.password)
	return c.base + "/player_api.php?" + params.Encode()
}

// redacted hides credentials in errors and logs.
func (c *Client) redacted(params url.Values) string {
	safe := url.Values{}
	for key, values := range params {
		if key == "username" || key == "password" {
			continue
		}
		safe[key] = values
	}
	return c.base + "/player_api.php?" + safe.Encode()
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("xtream rate limit: %w", err)
	}
	target := c.endpoint(params)
	display := c.redacted(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)

	resp, err := httpclient.DoWithRetry(ctx, c.http, req, c.policy)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "xtream", "get", display, scrub(err, c.password))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "xtream", "get", fmt.Sprintf("%s: %s", display, resp.Status), nil)
	}
	body, err := httpclient.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "xtream", "read", display, err)
	}
	return body, nil
}

// scrub strips the password from transport errors, which embed the full URL.
func scrub(err error, password string) error {
	if err == nil || password == "" {
		return err
	}
	msg := err.Error()
	cleaned := strings.ReplaceAll(msg, url.QueryEscape(password), "REDACTED")
	cleaned = strings.ReplaceAll(cleaned, password, "REDACTED")
	if cleaned == msg {
		return err
	}
	return fmt.Errorf("%s", cleaned)
}
