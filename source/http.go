package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// Version token prefixes so an ETag and a Last-Modified date round-trip
// through the cache without ambiguity.
const (
	etagPrefix = "etag:"
	datePrefix = "date:"
)

// HTTP fetches a payload from a URL. Change detection prefers ETag
// (If-None-Match) and falls back to Last-Modified (If-Modified-Since); a
// 304 response means unchanged. Transient failures are retried by
// hashicorp/go-retryablehttp.
type HTTP struct {
	client *retryablehttp.Client
	url    string
	header http.Header
}

var _ Source = (*HTTP)(nil)

type HTTPConfig struct {
	URL string

	// Client is optional. The default client retries transient failures
	// and logs nothing. Set your own to control timeouts and retry
	// policy.
	Client *retryablehttp.Client

	// Header is optional; set it for auth or content negotiation.
	Header http.Header
}

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, errors.New("source: http: URL is required")
	}
	client := cfg.Client
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = nil
	}
	return &HTTP{client: client, url: cfg.URL, header: cfg.Header}, nil
}

func (h *HTTP) Fetch(ctx context.Context) (string, []byte, error) {
	v, b, _, err := h.get(ctx, "")
	return v, b, err
}

func (h *HTTP) FetchIfNewer(ctx context.Context, version string) (string, []byte, bool, error) {
	return h.get(ctx, version)
}

func (h *HTTP) get(ctx context.Context, version string) (string, []byte, bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", nil, false, err
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	switch {
	case strings.HasPrefix(version, etagPrefix):
		req.Header.Set("If-None-Match", strings.TrimPrefix(version, etagPrefix))
	case strings.HasPrefix(version, datePrefix):
		req.Header.Set("If-Modified-Since", strings.TrimPrefix(version, datePrefix))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", nil, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		io.Copy(io.Discard, resp.Body)
		return "", nil, false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", nil, false, err
		}
		return responseVersion(resp), b, true, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return "", nil, false, fmt.Errorf("source: http: fetch %s: unexpected status %s", h.url, resp.Status)
	}
}

func responseVersion(resp *http.Response) string {
	if etag := resp.Header.Get("Etag"); etag != "" {
		return etagPrefix + etag
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		return datePrefix + lm
	}
	return ""
}

func (h *HTTP) String() string { return h.url }
