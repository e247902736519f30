package feed_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/feed"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

// listerFunc adapts a function to the feed.Lister interface.
type listerFunc func(ctx context.Context, offset, limit int) (*client.ListResponse, error)

func (f listerFunc) List(ctx context.Context, offset, limit int) (*client.ListResponse, error) {
	return f(ctx, offset, limit)
}

func mkStories(start, n int) []client.Story {
	out := make([]client.Story, n)
	for i := range out {
		out[i] = client.Story{
			ID:    fmt.Sprintf("story-%03d", start+i),
			Title: fmt.Sprintf("Story %d", start+i),
		}
	}
	return out
}

// pagedLister serves slices of a fixed collection, honoring offset but
// returning at most perPage items per call regardless of the requested
// limit, the way a server with its own page cap would.
func pagedLister(calls *atomic.Int32, total, perPage int) listerFunc {
	return func(_ context.Context, offset, _ int) (*client.ListResponse, error) {
		calls.Add(1)
		n := min(perPage, total-offset)
		if n < 0 {
			n = 0
		}
		return &client.ListResponse{
			Items:  mkStories(offset, n),
			Total:  total,
			Offset: offset,
		}, nil
	}
}

func assertCursorInvariant(t *testing.T, snap feed.Snapshot) {
	t.Helper()
	assert.Equal(t, len(snap.Items), snap.Offset, "offset must equal loaded item count")
	assert.Equal(t, snap.Offset < snap.Total, snap.HasMore, "hasMore must equal offset < total")
}

func TestLoadMore_PagesUntilExhausted(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	ctrl := feed.NewController(pagedLister(&calls, 12, 5), logger.NewNop())

	// Pages arrive as 5, 5, 2.
	require.NoError(t, ctrl.LoadMore(ctx))
	snap := ctrl.Snapshot()
	assert.Equal(t, 5, snap.Offset)
	assert.True(t, snap.HasMore)
	assertCursorInvariant(t, snap)

	require.NoError(t, ctrl.LoadMore(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	snap = ctrl.Snapshot()
	assert.Equal(t, 12, snap.Offset)
	assert.Equal(t, 12, snap.Total)
	assert.False(t, snap.HasMore)
	assertCursorInvariant(t, snap)

	// Exhausted: no further network calls.
	require.NoError(t, ctrl.LoadMore(ctx))
	assert.Equal(t, int32(3), calls.Load())

	// Items kept server order across pages.
	assert.Equal(t, "story-000", snap.Items[0].ID)
	assert.Equal(t, "story-011", snap.Items[11].ID)
}

func TestLoadMore_UsesFixedPageSize(t *testing.T) {
	var gotLimit int
	api := listerFunc(func(_ context.Context, _, limit int) (*client.ListResponse, error) {
		gotLimit = limit
		return &client.ListResponse{Items: mkStories(0, 1), Total: 1}, nil
	})

	require.NoError(t, feed.NewController(api, logger.NewNop()).LoadMore(context.Background()))
	assert.Equal(t, 10, gotLimit)
}

func TestLoadMore_SingleFlight(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	block := make(chan struct{})
	api := listerFunc(func(_ context.Context, offset, _ int) (*client.ListResponse, error) {
		calls.Add(1)
		<-block
		return &client.ListResponse{Items: mkStories(offset, 5), Total: 12}, nil
	})
	ctrl := feed.NewController(api, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadMore(ctx) }()
	require.Eventually(t, func() bool { return ctrl.Snapshot().Loading },
		time.Second, time.Millisecond)

	// Dropped, not queued: returns immediately with no error and no
	// second network call.
	require.NoError(t, ctrl.LoadMore(ctx))

	close(block)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), calls.Load())
	snap := ctrl.Snapshot()
	assert.Equal(t, 5, snap.Offset)
	assert.False(t, snap.Loading)
	assertCursorInvariant(t, snap)
}

func TestReset_DiscardsStaleResponse(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	block := make(chan struct{})
	api := listerFunc(func(_ context.Context, offset, _ int) (*client.ListResponse, error) {
		if calls.Add(1) == 1 {
			<-block
			// Poison page: applying it would be visible immediately.
			return &client.ListResponse{Items: mkStories(100, 5), Total: 99}, nil
		}
		return &client.ListResponse{Items: mkStories(0, 2), Total: 2, Offset: offset}, nil
	})
	ctrl := feed.NewController(api, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadMore(ctx) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, time.Millisecond)

	// Reset while the first fetch is still in flight: bumps the
	// generation and fetches a fresh first page.
	require.NoError(t, ctrl.Reset(ctx))
	snap := ctrl.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, 2, snap.Offset)
	assert.Equal(t, 2, snap.Total)

	// Let the stale response arrive. It is not an error and must not
	// mutate anything.
	close(block)
	require.NoError(t, <-done)

	snap = ctrl.Snapshot()
	assert.Equal(t, 2, snap.Offset)
	assert.Equal(t, 2, snap.Total)
	assert.False(t, snap.HasMore)
	assert.False(t, snap.Loading)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "story-000", snap.Items[0].ID)
	assertCursorInvariant(t, snap)
}

func TestReset_Idempotent(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	ctrl := feed.NewController(pagedLister(&calls, 3, 5), logger.NewNop())

	require.NoError(t, ctrl.Reset(ctx))
	require.NoError(t, ctrl.Reset(ctx))

	snap := ctrl.Snapshot()
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, 3, snap.Offset)
	assert.Equal(t, 3, snap.Total)
	assert.False(t, snap.HasMore)
	assertCursorInvariant(t, snap)
	// Each reset fetched its own first page.
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoadMore_FailureLeavesStateAndRetries(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	api := listerFunc(func(_ context.Context, offset, _ int) (*client.ListResponse, error) {
		if calls.Add(1) == 1 {
			return nil, apierror.ClassifyResponse(http.StatusInternalServerError, nil)
		}
		return &client.ListResponse{Items: mkStories(offset, 2), Total: 2}, nil
	})
	ctrl := feed.NewController(api, logger.NewNop())

	err := ctrl.LoadMore(ctx)
	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeServerError, derr.Code)

	snap := ctrl.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Zero(t, snap.Offset)
	assert.False(t, snap.Loading, "a failed fetch must release the in-flight guard")
	require.NotNil(t, snap.Err)
	assert.Equal(t, apierror.CodeServerError, snap.Err.Code)

	// Manual retry is always safe after a failure.
	require.NoError(t, ctrl.LoadMore(ctx))
	snap = ctrl.Snapshot()
	assert.Equal(t, 2, snap.Offset)
	assert.Nil(t, snap.Err, "a successful fetch clears the retained error")
	assertCursorInvariant(t, snap)
}

func TestLoadMore_ForeignErrorWrappedAsUnknown(t *testing.T) {
	api := listerFunc(func(context.Context, int, int) (*client.ListResponse, error) {
		return nil, errors.New("lister exploded")
	})
	ctrl := feed.NewController(api, logger.NewNop())

	err := ctrl.LoadMore(context.Background())

	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeUnknown, derr.Code)
	assert.Equal(t, "lister exploded", derr.Raw)
}

func TestWithSeed_ContinuesFromSeedOffset(t *testing.T) {
	ctx := context.Background()
	var gotOffset int
	api := listerFunc(func(_ context.Context, offset, _ int) (*client.ListResponse, error) {
		gotOffset = offset
		return &client.ListResponse{Items: mkStories(offset, 2), Total: 12}, nil
	})
	ctrl := feed.NewController(api, logger.NewNop(),
		feed.WithSeed(mkStories(0, 10), 12))

	snap := ctrl.Snapshot()
	assert.Equal(t, 10, snap.Offset)
	assert.Equal(t, 12, snap.Total)
	assert.True(t, snap.HasMore)

	require.NoError(t, ctrl.LoadMore(ctx))
	assert.Equal(t, 10, gotOffset, "fetch must continue after the seed, not refetch it")

	snap = ctrl.Snapshot()
	assert.Equal(t, 12, snap.Offset)
	assert.False(t, snap.HasMore)
	assertCursorInvariant(t, snap)
}

func TestWithSeed_CompleteCollectionSkipsFetching(t *testing.T) {
	var calls atomic.Int32
	ctrl := feed.NewController(pagedLister(&calls, 2, 5), logger.NewNop(),
		feed.WithSeed(mkStories(0, 2), 2))

	require.NoError(t, ctrl.LoadMore(context.Background()))
	assert.Zero(t, calls.Load())
}

func TestWithSeed_EmptySeedFallsBackToFirstFetch(t *testing.T) {
	var calls atomic.Int32
	ctrl := feed.NewController(pagedLister(&calls, 3, 5), logger.NewNop(),
		feed.WithSeed(nil, 0))

	require.NoError(t, ctrl.LoadMore(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 3, ctrl.Snapshot().Offset)
}

func TestSnapshot_CopiesItems(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	ctrl := feed.NewController(pagedLister(&calls, 2, 5), logger.NewNop())
	require.NoError(t, ctrl.LoadMore(ctx))

	snap := ctrl.Snapshot()
	snap.Items[0].Title = "tampered"

	assert.Equal(t, "Story 0", ctrl.Snapshot().Items[0].Title)
}
