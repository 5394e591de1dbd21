package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gemini-session-client/internal/httpclient"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"
	DefaultTimeout    = 30 * time.Second
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client performs the generateContent exchange. It makes exactly one attempt
// per call.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini: api key is empty")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiVersion := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Options{Timeout: DefaultTimeout})
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Endpoint returns the generateContent URL for model, credential included.
func (c *Client) Endpoint(model string) string {
	return c.endpoint(model, c.apiKey)
}

func (c *Client) endpoint(model, key string) string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, c.apiVersion, url.PathEscape(model), url.QueryEscape(key))
}

// Exchange posts req and returns the raw response body of a 2xx reply.
// Decoding the body is left to ParseResponse.
func (c *Client) Exchange(ctx context.Context, model string, req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(redact(err, c.apiKey))
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(redact(err, c.apiKey))
	}

	c.logger.Debug("gemini exchange",
		"url", c.endpoint(model, "REDACTED"),
		"status", httpResp.StatusCode,
		"bytes", len(rawBody),
		"dur_ms", time.Since(started).Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, httpError(httpResp.StatusCode, rawBody)
	}

	return rawBody, nil
}

// redact strips the credential from net/http errors, which quote the full URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), url.QueryEscape(key)) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, url.QueryEscape(key), "REDACTED"),
			Err: urlErr.Err,
		}
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED"))
}
