package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/api"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration

	// CreatorID is sent as X-Creator-ID on every request.
	CreatorID string

	// CacheDir enables an on-disk HTTP cache, empty keeps it in memory.
	CacheDir string

	// MaxTries bounds attempts for idempotent reads. Writes are never retried.
	MaxTries uint

	// Transport overrides the underlying round tripper, mostly for tests.
	Transport http.RoundTripper
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
		MaxTries:  3,
	}
}

// Client calls the contactgain HTTP API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creatorID  string
	maxTries   uint
}

// DownloadedFile is a VCF file returned by the download endpoint.
type DownloadedFile struct {
	Filename      string
	ContentType   string
	Body          []byte
	DownloadCount int
}

// New creates a client with the given configuration
func New(config Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", config.ServerURL)
	}

	transport := config.Transport
	if transport == nil {
		transport = NewCachingTransport(config.CacheDir)
	}

	maxTries := config.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		creatorID: config.CreatorID,
		maxTries:  maxTries,
	}, nil
}

// Health checks the server health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/health", nil)
}

// ListDurations returns the session duration presets.
func (c *Client) ListDurations(ctx context.Context) (*api.DurationList, error) {
	var list api.DurationList
	if err := c.getJSON(ctx, "/api/durations", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateSession creates a session owned by the configured creator.
func (c *Client) CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.Session, error) {
	var session api.Session
	if err := c.sendJSON(ctx, http.MethodPost, "/api/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the configured creator's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]api.SessionSummary, error) {
	var list api.SessionList
	if err := c.getJSON(ctx, "/api/sessions", &list); err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// GetSession fetches the session view.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*api.Session, error) {
	var session api.Session
	if err := c.getJSON(ctx, sessionPath(sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AddContact joins a session.
func (c *Client) AddContact(ctx context.Context, sessionID string, req api.AddContactRequest) (*api.Contact, error) {
	var contact api.Contact
	if err := c.sendJSON(ctx, http.MethodPost, sessionPath(sessionID)+"/contacts", req, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// Download fetches the VCF file. Each successful call bumps the server side counter.
func (c *Client) Download(ctx context.Context, sessionID string) (*DownloadedFile, error) {
	resp, err := c.do(ctx, http.MethodPost, sessionPath(sessionID)+"/download", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}

	file := &DownloadedFile{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.Filename = params["filename"]
	}
	if file.Filename == "" {
		return nil, fmt.Errorf("download response has no filename")
	}

	if count, err := strconv.Atoi(resp.Header.Get(api.DownloadCountHeader)); err == nil {
		file.DownloadCount = count
	}

	return file, nil
}

// HideSession removes a session from the creator's list.
func (c *Client) HideSession(ctx context.Context, sessionID string) error {
	resp, err := c.do(ctx, http.MethodPost, sessionPath(sessionID)+"/hide", nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func sessionPath(sessionID string) string {
	return "/api/sessions/" + url.PathEscape(sessionID)
}

// getJSON performs a GET with retries on transport errors, 429 and 5xx.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	operation := func() (struct{}, error) {
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.retryable() {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		// read to EOF so the caching transport can store the response
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to read response: %w", err)
		}

		if out == nil {
			return struct{}{}, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Str("path", path).Dur("retry_in", next).Msg("Retrying request")
		}),
	)
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends a request and converts non-2xx responses into *APIError.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creatorID != "" {
		req.Header.Set(api.CreatorIDHeader, c.creatorID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var errResp api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Error
		apiErr.Message = errResp.Message
	} else {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	}

	return nil, apiErr
}
