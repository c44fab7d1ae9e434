package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"curiosity-sync/internal/shared/telemetry"
)

const (
	// DefaultAPIURL is the public REST endpoint.
	DefaultAPIURL = "https://api.airtable.com/v0"

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest page the API will return.
	MaxPageSize = 100

	// DefaultRateLimit is the documented per-base limit (requests per second).
	DefaultRateLimit = 5
)

// Config configures a Client.
type Config struct {
	APIURL       string
	BaseID       string
	Token        string
	PageSize     int
	RateLimitRPS float64
	Timeout      time.Duration

	// HTTPClient supplies the base transport; the bearer token is layered on top.
	HTTPClient *http.Client
}

// Client reads records from one base.
type Client struct {
	apiURL   string
	baseID   string
	hc       *http.Client
	limiter  *rate.Limiter
	pageSize int
	timeout  time.Duration
}

// NewClient builds a Client that authenticates every request with the
// configured personal access token.
func NewClient(cfg Config) (*Client, error) {
	baseID := strings.TrimSpace(cfg.BaseID)
	token := strings.TrimSpace(cfg.Token)
	if baseID == "" || token == "" {
		return nil, ErrMissingCredentials
	}

	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}

	limit := rate.Limit(cfg.RateLimitRPS)
	if cfg.RateLimitRPS <= 0 {
		limit = rate.Inf
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		apiURL:   apiURL,
		baseID:   baseID,
		hc:       hc,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
		timeout:  timeout,
	}, nil
}

// ListPage issues one GET against the record-listing endpoint and returns
// the page as the source ordered it. No retry is attempted.
func (c *Client) ListPage(ctx context.Context, req ListRequest) (Page, error) {
	table := strings.TrimSpace(req.Table)
	if table == "" {
		return Page{}, &FetchError{Op: "list", Message: "table name is required"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, &FetchError{Op: "list", Table: table, View: req.View, Message: err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestURL := c.listURL(table, req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Page{}, &FetchError{Op: "list", Table: table, View: req.View, Message: err.Error(), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	// Every run must observe current upstream state.
	httpReq.Header.Set("Cache-Control", "no-cache, no-store")

	telemetry.Info("airtable.fetch", map[string]any{
		"url":   requestURL,
		"table": table,
		"view":  req.View,
	})

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Page{}, &FetchError{Op: "list", Table: table, View: req.View, Message: transportMessage(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, &FetchError{Op: "list", Table: table, View: req.View, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode/100 != 2 {
		fe := &FetchError{
			Op:         "list",
			Table:      table,
			View:       req.View,
			StatusCode: resp.StatusCode,
			Message:    extractMessage(body),
		}
		telemetry.Error("airtable.fetch_failed", map[string]any{
			"status":  resp.StatusCode,
			"url":     requestURL,
			"message": fe.Message,
			"base_id": c.baseID,
			"table":   table,
			"view":    req.View,
		})
		return Page{}, fe
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return Page{}, &FetchError{Op: "list", Table: table, View: req.View, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	if page.Records == nil {
		page.Records = []Record{}
	}
	return page, nil
}

// ListAll follows the offset continuation token until the source reports no
// more pages, or until MaxRecords records have been collected.
func (c *Client) ListAll(ctx context.Context, req ListRequest) ([]Record, error) {
	records := []Record{}
	seen := map[string]bool{}
	for {
		page, err := c.ListPage(ctx, req)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if req.MaxRecords > 0 && len(records) >= req.MaxRecords {
			return records[:req.MaxRecords], nil
		}
		if page.Offset == "" {
			return records, nil
		}
		if seen[page.Offset] {
			return nil, &FetchError{Op: "list", Table: req.Table, View: req.View, Message: "pagination offset repeated: " + page.Offset}
		}
		seen[page.Offset] = true
		req.Offset = page.Offset
	}
}

func (c *Client) listURL(table string, req ListRequest) string {
	q := url.Values{}
	if view := strings.TrimSpace(req.View); view != "" {
		q.Set("view", view)
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = c.pageSize
	}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if req.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(req.MaxRecords))
	}
	if req.Offset != "" {
		q.Set("offset", req.Offset)
	}
	return c.apiURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table) + "?" + q.Encode()
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
