// Package github talks to GitHub: the OAuth code exchange, the authenticated
// REST passthrough behind /github/*, and the repository metrics shown on
// blocks.
package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
)

const (
	DefaultBaseURL  = "https://api.github.com"
	httpCallTimeout = 10 * time.Second
	maxBodyBytes    = 10 << 20
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

// ProxyRequest is an API call made on behalf of a user.
type ProxyRequest struct {
	Method   string
	Path     string
	RawQuery string
	Body     []byte
	Token    string
}

// ProxyResponse is GitHub's answer, passed back to the caller unchanged.
type ProxyResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *ProxyResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Forward sends req to the REST API. A non-2xx status is not an error; only
// transport failures are.
func (c *Client) Forward(ctx context.Context, req ProxyRequest) (*ProxyResponse, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodHead && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build github request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (*ProxyResponse, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("failed to read github response: %w", err)
	}
	c.observe(strconv.Itoa(resp.StatusCode), start)

	return &ProxyResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestDuration.WithLabelValues("github").Observe(time.Since(start).Seconds())
	c.metrics.RequestsTotal.WithLabelValues("github", status).Inc()
}

// APIError is a non-2xx answer to one of the metric lookups.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api returned %d: %s", e.Status, e.Message)
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values) (gjson.Result, error) {
	resp, err := c.Forward(ctx, ProxyRequest{
		Method:   http.MethodGet,
		Path:     path,
		RawQuery: query.Encode(),
		Token:    token,
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if !resp.OK() {
		return gjson.Result{}, &APIError{Status: resp.Status, Message: gjson.GetBytes(resp.Body, "message").String()}
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, fmt.Errorf("github returned invalid JSON for %s", path)
	}
	return gjson.ParseBytes(resp.Body), nil
}

type Repository struct {
	FullName        string
	StargazersCount int64
	OpenIssuesCount int64
}

// Repository loads repository counters. fullName is "owner/name".
func (c *Client) Repository(ctx context.Context, token, fullName string) (*Repository, error) {
	doc, err := c.get(ctx, token, "repos/"+fullName, nil)
	if err != nil {
		return nil, err
	}
	return &Repository{
		FullName:        doc.Get("full_name").String(),
		StargazersCount: doc.Get("stargazers_count").Int(),
		OpenIssuesCount: doc.Get("open_issues_count").Int(),
	}, nil
}

// OpenPullRequests counts open PRs through the issue search endpoint.
func (c *Client) OpenPullRequests(ctx context.Context, token, fullName string) (int64, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("repo:%s is:pr is:open", fullName))
	query.Set("per_page", "1")

	doc, err := c.get(ctx, token, "search/issues", query)
	if err != nil {
		return 0, err
	}
	return doc.Get("total_count").Int(), nil
}
