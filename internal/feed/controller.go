// Package feed keeps a locally held, paginated collection of stories
// consistent with a remote stories endpoint. The fetch controller loads
// pages on demand with a single-flight guarantee and discards responses
// issued before the most recent reset; the mutator applies
// create/update/delete operations and resets the feed on success.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

// pageSize is the fixed page size for every list fetch, matching the
// endpoint's default limit. Callers never choose it.
const pageSize = 10

// Lister is the slice of the stories client the fetch controller needs.
type Lister interface {
	List(ctx context.Context, offset, limit int) (*client.ListResponse, error)
}

// Resetter is the slice of the fetch controller that identity reactors
// and mutators drive.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Controller owns the page cursor for one stories list: the loaded items,
// the offset/total bookkeeping, the single in-flight fetch, and the
// generation counter that invalidates responses from before the last
// reset. Controllers are safe for concurrent use and fully independent of
// each other.
type Controller struct {
	api Lister
	rec telemetry.Recorder
	log logger.Logger

	mu         sync.Mutex
	items      []client.Story
	offset     int
	total      int
	hasMore    bool
	loading    bool
	generation uint64
	lastErr    *apierror.DomainError
}

// Snapshot is a point-in-time copy of the cursor state for rendering.
// Items is a copy; mutating it cannot alias controller state.
type Snapshot struct {
	Items      []client.Story
	Offset     int
	Total      int
	HasMore    bool
	Loading    bool
	Generation uint64
	Err        *apierror.DomainError
}

// Option configures a Controller.
type Option func(*Controller)

// WithSeed boots the controller from a pre-fetched first page, so the
// next LoadMore continues from the seed offset instead of refetching it.
// An empty seed is ignored and the first LoadMore fetches page one as
// usual.
func WithSeed(stories []client.Story, total int) Option {
	return func(c *Controller) {
		if len(stories) == 0 {
			return
		}
		c.items = append([]client.Story(nil), stories...)
		c.offset = len(stories)
		c.total = total
		c.hasMore = c.offset < total
	}
}

// WithRecorder attaches a telemetry recorder. The default recorder
// discards everything.
func WithRecorder(rec telemetry.Recorder) Option {
	return func(c *Controller) { c.rec = rec }
}

// NewController creates a fetch controller over the given stories API.
func NewController(api Lister, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		rec:     telemetry.NewNop(),
		log:     log,
		hasMore: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadMore fetches the next page of stories. It is a no-op when a fetch
// is already in flight (calls are dropped, never queued) or when the
// collection is exhausted. Fetch failures are returned as a
// *apierror.DomainError and leave the loaded items untouched; calling
// LoadMore again retries safely.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		c.rec.RecordSingleFlightRejection()
		c.log.Debug("load skipped, fetch already in flight")
		return nil
	}
	if !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	gen := c.generation
	offset := c.offset
	c.mu.Unlock()

	return c.fetch(ctx, gen, offset)
}

// Reset discards all cursor state, invalidates any in-flight fetch by
// bumping the generation, and fetches a fresh first page. In-flight
// requests are not aborted at the transport level; their responses are
// simply ignored when they arrive.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.items = nil
	c.offset = 0
	c.total = 0
	c.hasMore = true
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	c.rec.RecordReset()
	c.log.Debug("feed reset", logger.Uint64("generation", gen))
	return c.LoadMore(ctx)
}

// Snapshot returns a copy of the current cursor state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]client.Story, len(c.items))
	copy(items, c.items)
	return Snapshot{
		Items:      items,
		Offset:     c.offset,
		Total:      c.total,
		HasMore:    c.hasMore,
		Loading:    c.loading,
		Generation: c.generation,
		Err:        c.lastErr,
	}
}

// fetch performs one page request for gen and applies the result only if
// gen is still the current generation when the response settles.
func (c *Controller) fetch(ctx context.Context, gen uint64, offset int) error {
	start := time.Now()
	resp, err := c.api.List(ctx, offset, pageSize)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// A reset happened while the request was in flight. The response
		// belongs to a dead generation and must not touch anything, not
		// even the loading flag, which now belongs to the new generation.
		c.rec.RecordFetch(telemetry.OutcomeStale, elapsed)
		c.log.Debug("discarded stale page response",
			logger.Uint64("generation", gen),
			logger.Uint64("current_generation", c.generation))
		return nil
	}

	if err != nil {
		derr := apierror.FromError(err)
		c.loading = false
		c.lastErr = derr
		c.rec.RecordFetch(telemetry.OutcomeError, elapsed)
		c.log.Warn("page fetch failed",
			logger.Int("offset", offset),
			logger.String("code", string(derr.Code)),
			logger.Int("http_status", derr.HTTPStatus))
		return derr
	}

	c.items = append(c.items, resp.Items...)
	c.offset += len(resp.Items)
	c.total = resp.Total
	c.hasMore = c.offset < c.total
	c.loading = false
	c.lastErr = nil
	c.rec.RecordFetch(telemetry.OutcomeApplied, elapsed)
	c.log.Debug("page applied",
		logger.Int("returned", len(resp.Items)),
		logger.Int("offset", c.offset),
		logger.Int("total", c.total),
		logger.Bool("has_more", c.hasMore))
	return nil
}
