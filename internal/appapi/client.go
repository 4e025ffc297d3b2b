// Package appapi reads episode records from the media application's HTTP API.
package appapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vodaudit/internal/httpclient"
	"vodaudit/internal/services"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:5656"

const maxResponseBytes = 8 << 20

// ErrNoProviders is returned when an episode has no provider streams.
var ErrNoProviders = errors.New("no providers found for this episode")

// ErrNoXtreamStreams is returned when an episode has providers but none of
// them yields an Xtream stream URL.
var ErrNoXtreamStreams = errors.New("no valid stream URLs found")

// StatusError reports a non-200 API response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// Client fetches records from the application API.
type Client struct {
	baseURL string
	http    *http.Client
	policy  httpclient.RetryPolicy
}

// New constructs a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    httpclient.WithTimeout(timeout),
		policy:  httpclient.DefaultRetryPolicy,
	}
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Episode fetches one episode with its provider relations.
func (c *Client) Episode(ctx context.Context, id uuid.UUID) (Episode, error) {
	endpoint := c.baseURL + "/api/vod/episodes/" + url.PathEscape(id.String()) + "/"
	var episode Episode
	if err := c.getJSON(ctx, endpoint, &episode); err != nil {
		return Episode{}, err
	}
	return episode, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)

	resp, err := httpclient.DoWithRetry(ctx, c.http, req, c.policy)
	if err != nil {
		return services.Wrap(services.ErrTransient, "appapi", "get", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{URL: endpoint, Status: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			return services.Wrap(services.ErrNotFound, "appapi", "get", "", statusErr)
		}
		return services.Wrap(services.ErrTransient, "appapi", "get", "", statusErr)
	}
	body, err := httpclient.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return services.Wrap(services.ErrTransient, "appapi", "read", endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrValidation, "appapi", "decode", endpoint, err)
	}
	return nil
}
