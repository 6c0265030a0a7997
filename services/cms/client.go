package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

const (
	cmsAPIVersion = "v2024-01-01"
	cmsHost       = "apicdn.sanity.io"

	// defaultRevalidate is the page-level revalidation window: a cached
	// query result is served as-is until it is older than this.
	defaultRevalidate = 60 * time.Second

	fetchAttempts = 3
	fetchBackoff  = 500 * time.Millisecond
)

// ErrNotConfigured is returned by Query when the CMS project or dataset
// identifiers are missing from configuration. The server still starts in
// that state; CMS-backed endpoints serve empty data.
var ErrNotConfigured = errors.New("cms not configured")

// Client is a generic fetch-by-query client for the headless CMS read API.
// Results are cached per query with a fixed revalidation window; a failed
// refetch falls back to the stale cached value when one exists.
type Client struct {
	httpClient *http.Client
	baseURL    string
	dataset    string
	log        *logrus.Logger

	mu         sync.Mutex
	cache      map[string]*cacheEntry
	revalidate time.Duration
	now        func() time.Time
}

type cacheEntry struct {
	raw       json.RawMessage
	fetchedAt time.Time
}

// queryEnvelope is the CMS response wrapper.
type queryEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// NewClient creates a CMS client for the given project and dataset. An empty
// project or dataset yields a client whose queries fail with
// ErrNotConfigured rather than an error here, so the rest of the server can
// come up without CMS credentials. baseURLOverride replaces the derived
// project URL; it is mainly for tests.
func NewClient(projectID, dataset, baseURLOverride string, log *logrus.Logger) *Client {
	baseURL := baseURLOverride
	if baseURL == "" && projectID != "" {
		baseURL = fmt.Sprintf("https://%s.%s", projectID, cmsHost)
	}
	if log == nil {
		log = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		dataset:    dataset,
		log:        log,
		cache:      make(map[string]*cacheEntry),
		revalidate: defaultRevalidate,
		now:        time.Now,
	}
}

// Query runs a read-only CMS query and decodes the result into out. Cached
// results younger than the revalidation window are served without a fetch.
func (c *Client) Query(ctx context.Context, query string, out any) error {
	if c.baseURL == "" || c.dataset == "" {
		return ErrNotConfigured
	}

	c.mu.Lock()
	entry, ok := c.cache[query]
	fresh := ok && c.now().Sub(entry.fetchedAt) < c.revalidate
	c.mu.Unlock()

	if fresh {
		return json.Unmarshal(entry.raw, out)
	}

	raw, err := c.fetch(ctx, query)
	if err != nil {
		if ok {
			// Serve the stale value rather than failing the page.
			c.log.WithError(err).Warn("cms refetch failed, serving stale result")
			return json.Unmarshal(entry.raw, out)
		}
		return err
	}

	c.mu.Lock()
	c.cache[query] = &cacheEntry{raw: raw, fetchedAt: c.now()}
	c.mu.Unlock()

	return json.Unmarshal(raw, out)
}

// fetch performs the HTTP round trip with bounded retry. CMS queries are
// idempotent GETs, so retrying on transport errors is safe.
func (c *Client) fetch(ctx context.Context, query string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/data/query/%s?query=%s",
		c.baseURL, cmsAPIVersion, c.dataset, url.QueryEscape(query))

	var raw json.RawMessage
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("cms request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				respBody, _ := io.ReadAll(resp.Body)
				err := fmt.Errorf("cms query failed: %s - %s", resp.Status, string(respBody))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}

			var envelope queryEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			raw = envelope.Result
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return raw, nil
}

// SetRevalidate overrides the cache revalidation window.
func (c *Client) SetRevalidate(d time.Duration) {
	c.mu.Lock()
	c.revalidate = d
	c.mu.Unlock()
}

// SetClock overrides the clock used for cache aging.
func (c *Client) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
