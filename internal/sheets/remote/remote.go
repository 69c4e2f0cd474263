// Package remote downloads the cost workbook from a private repository
// over authenticated HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"custos/internal/cache"
	"custos/internal/core"
	ports "custos/internal/sheets"
	"custos/internal/sheets/xlsx"
)

// maxBodyBytes bounds the downloaded workbook.
const maxBodyBytes = 64 << 20

// ErrMissingCredentials is returned when the URL or token is not configured.
var ErrMissingCredentials = errors.New("remote source: missing URL or token")

// StatusError reports a non-200 answer from the repository.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote source: GET %s: status %d", e.URL, e.StatusCode)
}

// Config configures a Client.
type Config struct {
	URL        string
	Token      string
	AuthScheme string // "token" when empty
	Sheet      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client fetches and decodes the workbook on every Load. Wrap it with
// sheets.Cached to avoid refetching.
type Client struct {
	url    string
	token  string
	scheme string
	sheet  string
	http   *http.Client
}

var _ ports.Source = (*Client)(nil)

// New builds a client from cfg. Missing credentials are reported by Load,
// not here, so the dashboard can still start and show its no-data state.
func New(cfg Config) *Client {
	scheme := strings.TrimSpace(cfg.AuthScheme)
	if scheme == "" {
		scheme = "token"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClient(cfg.Timeout)
	}
	return &Client{
		url:    strings.TrimSpace(cfg.URL),
		token:  strings.TrimSpace(cfg.Token),
		scheme: scheme,
		sheet:  cfg.Sheet,
		http:   hc,
	}
}

// newHTTPClient mirrors a pooled transport with bounded timeouts.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Load downloads and decodes the workbook.
func (c *Client) Load(ctx context.Context) (core.RawTable, error) {
	if c.url == "" || c.token == "" {
		return core.RawTable{}, ErrMissingCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("remote source: build request: %w", err)
	}
	req.Header.Set("Authorization", c.scheme+" "+c.token)
	// Honoured by the GitHub contents API, ignored by raw hosts.
	req.Header.Set("Accept", "application/vnd.github.v3.raw")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("remote source: GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return core.RawTable{}, &StatusError{StatusCode: resp.StatusCode, URL: c.url}
	}

	tbl, err := xlsx.Decode(io.LimitReader(resp.Body, maxBodyBytes), xlsx.Options{Sheet: c.sheet})
	if err != nil {
		return core.RawTable{}, fmt.Errorf("remote source: %w", err)
	}
	return tbl, nil
}

// SourceKey combines the URL with a hash of the token.
func (c *Client) SourceKey() string {
	return cache.SourceKey(c.url, c.token)
}
