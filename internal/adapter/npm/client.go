// Package npm reads package download counts from the public npm registry API.
package npm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
)

const (
	DefaultBaseURL  = "https://api.npmjs.org"
	httpCallTimeout = 10 * time.Second
)

type Client struct {
	http    *http.Client
	baseURL string
	metrics *metrics.UpstreamMetrics
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: httpCallTimeout},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WeeklyDownloads returns the download count for the last seven days.
func (c *Client) WeeklyDownloads(ctx context.Context, pkg string) (int64, error) {
	if pkg == "" {
		return 0, fmt.Errorf("empty package name")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/downloads/point/last-week/"+pkg, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build npm request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return 0, fmt.Errorf("npm request failed: %w", err)
	}
	defer resp.Body.Close()
	c.observe(strconv.Itoa(resp.StatusCode), start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read npm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("npm returned %d for %s: %s", resp.StatusCode, pkg, gjson.GetBytes(body, "error").String())
	}

	downloads := gjson.GetBytes(body, "downloads")
	if !downloads.Exists() {
		return 0, fmt.Errorf("npm response for %s has no downloads field", pkg)
	}
	return downloads.Int(), nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestDuration.WithLabelValues("npm").Observe(time.Since(start).Seconds())
	c.metrics.RequestsTotal.WithLabelValues("npm", status).Inc()
}
