package feed_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/feed"
	"github.com/ghostmonk/storyfeed/internal/identity"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

// fakeMutationAPI scripts the three mutation calls and counts them.
type fakeMutationAPI struct {
	calls    atomic.Int32
	createFn func(draft client.StoryDraft) (*client.Story, error)
	updateFn func(id string, draft client.StoryDraft) (*client.Story, error)
	deleteFn func(id string) error
}

func (f *fakeMutationAPI) Create(_ context.Context, draft client.StoryDraft) (*client.Story, error) {
	f.calls.Add(1)
	return f.createFn(draft)
}

func (f *fakeMutationAPI) Update(_ context.Context, id string, draft client.StoryDraft) (*client.Story, error) {
	f.calls.Add(1)
	return f.updateFn(id, draft)
}

func (f *fakeMutationAPI) Delete(_ context.Context, id string) error {
	f.calls.Add(1)
	return f.deleteFn(id)
}

type fakeResetter struct {
	calls atomic.Int32
	err   error
}

func (r *fakeResetter) Reset(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func okCreate(draft client.StoryDraft) (*client.Story, error) {
	return &client.Story{ID: "created-1", Title: draft.Title, Slug: "slugged"}, nil
}

func TestMutator_RequiresCredential(t *testing.T) {
	api := &fakeMutationAPI{}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic(""), resetter, logger.NewNop())

	_, err := m.Create(context.Background(), client.StoryDraft{Title: "t", Content: "c"})

	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeAuthenticationRequired, derr.Code)
	assert.Zero(t, derr.HTTPStatus)
	assert.Zero(t, api.calls.Load(), "no network call without a credential")
	assert.Zero(t, resetter.calls.Load())
}

func TestMutator_CreateSuccessResetsFeed(t *testing.T) {
	api := &fakeMutationAPI{createFn: okCreate}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic("tok"), resetter, logger.NewNop())

	story, err := m.Create(context.Background(), client.StoryDraft{Title: "New", Content: "c"})

	require.NoError(t, err)
	assert.Equal(t, "created-1", story.ID)
	assert.Equal(t, int32(1), resetter.calls.Load())
	assert.False(t, m.Pending())
}

func TestMutator_FailureDoesNotReset(t *testing.T) {
	api := &fakeMutationAPI{
		createFn: func(client.StoryDraft) (*client.Story, error) {
			return nil, apierror.ClassifyResponse(http.StatusUnprocessableEntity,
				[]byte(`{"error_code":"VALIDATION_FAILED","user_message":"Title must not be empty."}`))
		},
	}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic("tok"), resetter, logger.NewNop())

	_, err := m.Create(context.Background(), client.StoryDraft{})

	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeValidationFailed, derr.Code)
	assert.Equal(t, "Title must not be empty.", derr.UserMessage)
	assert.Zero(t, resetter.calls.Load(), "a failed mutation must not reset the feed")
	assert.False(t, m.Pending())
}

func TestMutator_ExpiredSessionSurfacesAsSuchOnUpdate(t *testing.T) {
	api := &fakeMutationAPI{
		updateFn: func(string, client.StoryDraft) (*client.Story, error) {
			return nil, apierror.ClassifyResponse(http.StatusUnauthorized, []byte(`{"detail":"expired"}`))
		},
	}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic("stale"), resetter, logger.NewNop())

	_, err := m.Update(context.Background(), "abc", client.StoryDraft{Title: "t", Content: "c"})

	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeAuthenticationExpired, derr.Code)
	assert.Contains(t, derr.UserMessage, "log in again")
	assert.Zero(t, resetter.calls.Load())
}

func TestMutator_DeleteSuccessResetsFeed(t *testing.T) {
	api := &fakeMutationAPI{deleteFn: func(string) error { return nil }}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic("tok"), resetter, logger.NewNop())

	require.NoError(t, m.Delete(context.Background(), "abc"))
	assert.Equal(t, int32(1), resetter.calls.Load())
}

func TestMutator_RejectsOverlappingMutations(t *testing.T) {
	block := make(chan struct{})
	api := &fakeMutationAPI{
		createFn: func(draft client.StoryDraft) (*client.Story, error) {
			<-block
			return okCreate(draft)
		},
		deleteFn: func(string) error { return nil },
	}
	resetter := &fakeResetter{}
	m := feed.NewMutator(api, identity.NewStatic("tok"), resetter, logger.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := m.Create(context.Background(), client.StoryDraft{Title: "slow", Content: "c"})
		done <- err
	}()
	require.Eventually(t, m.Pending, time.Second, time.Millisecond)

	err := m.Delete(context.Background(), "other")
	var derr *apierror.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apierror.CodeMutationPending, derr.Code)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, m.Pending())
	// Only the create landed, so only one reset.
	assert.Equal(t, int32(1), resetter.calls.Load())
}

func TestMutator_ResetFailureDoesNotFailMutation(t *testing.T) {
	api := &fakeMutationAPI{createFn: okCreate}
	resetter := &fakeResetter{err: apierror.ClassifyTransport(assert.AnError)}
	m := feed.NewMutator(api, identity.NewStatic("tok"), resetter, logger.NewNop())

	story, err := m.Create(context.Background(), client.StoryDraft{Title: "t", Content: "c"})

	require.NoError(t, err, "the mutation landed; the refetch failure lives in the feed snapshot")
	assert.NotNil(t, story)
	assert.Equal(t, int32(1), resetter.calls.Load())
}

// TestMutator_SuccessStartsFreshGeneration wires a real controller in as
// the resetter and checks the observable contract: a successful mutation
// bumps the generation and refetches the first page.
func TestMutator_SuccessStartsFreshGeneration(t *testing.T) {
	ctx := context.Background()
	var listCalls atomic.Int32
	lister := pagedLister(&listCalls, 3, 5)
	ctrl := feed.NewController(lister, logger.NewNop())
	require.NoError(t, ctrl.LoadMore(ctx))
	require.Equal(t, uint64(0), ctrl.Snapshot().Generation)

	api := &fakeMutationAPI{createFn: okCreate}
	m := feed.NewMutator(api, identity.NewStatic("tok"), ctrl, logger.NewNop())

	_, err := m.Create(ctx, client.StoryDraft{Title: "t", Content: "c"})
	require.NoError(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, 3, snap.Offset)
	assert.Equal(t, int32(2), listCalls.Load(), "initial page plus the post-mutation refetch")
}
