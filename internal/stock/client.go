package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://trackadobestock.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	defaultRSCToken  = "1gn38"
	clientTimeout    = 30 * time.Second
	maxPayloadBytes  = 32 << 20
)

// ErrPayloadTooLarge is returned when a search response exceeds the read limit.
var ErrPayloadTooLarge = errors.New("stock: payload too large")

// Query describes one marketplace search.
type Query struct {
	Text        string
	Page        int
	ContentType string
	Order       string
	AIOnly      bool
}

// ClientOptions configures the upstream search client. Cookies are passed
// through verbatim as a Cookie header.
type ClientOptions struct {
	BaseURL    string
	Cookies    string
	UserAgent  string
	RSCToken   string
	HTTPClient *http.Client
}

// Client fetches raw search payloads from the marketplace front end.
type Client struct {
	baseURL   string
	cookies   string
	userAgent string
	rscToken  string
	client    *http.Client
	maxBytes  int64
}

// StatusError reports a non-success upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stock: upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("stock: upstream status %d: %s", e.StatusCode, e.Body)
}

func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	token := strings.TrimSpace(opts.RSCToken)
	if token == "" {
		token = defaultRSCToken
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: clientTimeout}
	}
	return &Client{
		baseURL:   base,
		cookies:   strings.TrimSpace(opts.Cookies),
		userAgent: ua,
		rscToken:  token,
		client:    client,
		maxBytes:  maxPayloadBytes,
	}
}

// SearchURL builds the search endpoint for q.
func (c *Client) SearchURL(q Query) string {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.AIOnly {
		params.Set("generative_ai", "only")
	}
	if q.ContentType != "" {
		params.Set("content_type", q.ContentType)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	params.Set("_rsc", c.rscToken)
	return c.baseURL + "/search?" + params.Encode()
}

// Search returns the raw response text for q.
func (c *Client) Search(ctx context.Context, q Query) (string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return "", errors.New("stock: query text is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(q), nil)
	if err != nil {
		return "", fmt.Errorf("stock: build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", c.baseURL+"/search")
	req.Header.Set("RSC", "1")
	req.Header.Set("Next-Url", "/search")
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookies != "" {
		req.Header.Set("Cookie", c.cookies)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stock: search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("stock: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: snippet(string(body), 512)}
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrPayloadTooLarge, c.maxBytes)
	}
	return string(body), nil
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
