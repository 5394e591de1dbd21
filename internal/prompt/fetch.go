package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gemini-session-client/internal/gemini"
	"gemini-session-client/internal/httpclient"
)

// DefaultMaxFetchBytes caps a single download (20 MiB, the inline request limit).
const DefaultMaxFetchBytes = 20 << 20

var errBodyTooLarge = errors.New("response body exceeds size limit")

type FetcherOptions struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// Fetcher downloads FileByURL items.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Options{})
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &Fetcher{httpClient: httpClient, maxBytes: maxBytes}
}

// Fetch GETs rawURL. Every failure, including a URL that does not parse or
// is not http(s), is a network error naming the URL. Nothing is requested
// for a rejected URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, gemini.NetworkError(rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, gemini.NetworkError(rawURL, fmt.Errorf("unsupported url scheme %q", u.Scheme))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, gemini.NetworkError(rawURL, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, gemini.NetworkError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gemini.NetworkError(rawURL, fmt.Errorf("status %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, gemini.NetworkError(rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, gemini.NetworkError(rawURL, errBodyTooLarge)
	}
	return data, nil
}
