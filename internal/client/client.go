// Package client implements the HTTP client for the stories collection
// endpoint. Every failure a method returns is a *apierror.DomainError
// produced by the classifier; raw transport and decode errors never
// escape this package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/identity"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

// DefaultTimeout bounds each request round-trip unless overridden.
const DefaultTimeout = 30 * time.Second

// Client talks to a stories endpoint. It attaches the current credential
// from its identity provider to every request and tags each request with
// an X-Request-ID for log correlation.
type Client struct {
	baseURL  string
	http     *http.Client
	identity identity.Provider
	log      logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to share a
// transport or to inject a test double.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the round-trip timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a stories API client. provider supplies the bearer
// credential presented on each request; use identity.NewStatic("") for
// anonymous access.
func New(baseURL string, provider identity.Provider, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
		identity: provider,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches one page of stories at the given offset. When the client
// holds a credential it asks for unlisted drafts too; the server stays
// authoritative on visibility either way.
func (c *Client) List(ctx context.Context, offset, limit int) (*ListResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if c.identity.Current().Present() {
		q.Set("include_unlisted", "true")
	}

	var out ListResponse
	if err := c.do(ctx, http.MethodGet, "/stories?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a single story by id.
func (c *Client) Get(ctx context.Context, id string) (*Story, error) {
	var out Story
	if err := c.do(ctx, http.MethodGet, "/stories/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBySlug fetches a single story by its URL slug.
func (c *Client) GetBySlug(ctx context.Context, slug string) (*Story, error) {
	var out Story
	if err := c.do(ctx, http.MethodGet, "/stories/slug/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create submits a new story. The server assigns id, slug, and timestamps.
func (c *Client) Create(ctx context.Context, draft StoryDraft) (*Story, error) {
	var out Story
	if err := c.do(ctx, http.MethodPost, "/stories", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a story's mutable fields and returns the updated story.
func (c *Client) Update(ctx context.Context, id string, draft StoryDraft) (*Story, error) {
	var out Story
	if err := c.do(ctx, http.MethodPut, "/stories/"+url.PathEscape(id), draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a story. Callers must have confirmed intent before
// invoking; the client does not prompt.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/stories/"+url.PathEscape(id), nil, nil)
}

// Health pings the endpoint's health route without authentication.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one round-trip. Every error it returns is a
// *apierror.DomainError; out is decoded only on a 2xx response with a
// body.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	reqID := uuid.NewString()

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return apierror.FromError(fmt.Errorf("marshal request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return apierror.FromError(fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred := c.identity.Current(); cred.Present() {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("stories request failed in transport",
			logger.String("method", method),
			logger.String("path", path),
			logger.String("request_id", reqID),
			logger.Error(err))
		return apierror.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("reading stories response failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.String("request_id", reqID),
			logger.Error(err))
		return apierror.ClassifyTransport(err)
	}

	c.log.Debug("stories request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
		logger.String("request_id", reqID))

	if resp.StatusCode >= http.StatusMultipleChoices {
		if len(body) > 0 && !json.Valid(body) {
			// Classification falls back to the status line on its own;
			// the unusable body is only worth a warning here.
			c.log.Warn("stories endpoint returned a non-JSON error body",
				logger.Int("status", resp.StatusCode),
				logger.String("request_id", reqID))
		}
		return apierror.ClassifyResponse(resp.StatusCode, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.log.Warn("stories response payload could not be decoded",
			logger.Int("status", resp.StatusCode),
			logger.String("request_id", reqID),
			logger.Error(err))
		return apierror.ClassifyDecode(resp.StatusCode, err)
	}
	return nil
}
