package feed

import (
	"context"
	"sync"

	"github.com/ghostmonk/storyfeed/internal/apierror"
	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/identity"
	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

// MutationAPI is the slice of the stories client the mutator needs.
type MutationAPI interface {
	Create(ctx context.Context, draft client.StoryDraft) (*client.Story, error)
	Update(ctx context.Context, id string, draft client.StoryDraft) (*client.Story, error)
	Delete(ctx context.Context, id string) error
}

// CredentialSource supplies the current credential. identity.Provider
// satisfies it.
type CredentialSource interface {
	Current() identity.Credential
}

// Mutator applies create/update/delete operations against the stories
// endpoint. Every operation requires a credential, rejects overlap with a
// still-pending operation, and resets the feed controller on success so
// the list reflects the mutation. There is no optimistic local patch;
// correctness over latency.
type Mutator struct {
	api   MutationAPI
	creds CredentialSource
	feed  Resetter
	rec   telemetry.Recorder
	log   logger.Logger

	mu      sync.Mutex
	pending bool
}

// MutatorOption configures a Mutator.
type MutatorOption func(*Mutator)

// WithMutationRecorder attaches a telemetry recorder. The default
// recorder discards everything.
func WithMutationRecorder(rec telemetry.Recorder) MutatorOption {
	return func(m *Mutator) { m.rec = rec }
}

// NewMutator creates a mutation controller. feed is reset after every
// successful mutation.
func NewMutator(api MutationAPI, creds CredentialSource, feed Resetter, log logger.Logger, opts ...MutatorOption) *Mutator {
	m := &Mutator{
		api:   api,
		creds: creds,
		feed:  feed,
		rec:   telemetry.NewNop(),
		log:   log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pending reports whether a mutation is currently in flight.
func (m *Mutator) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Create submits a new story and resets the feed on success.
func (m *Mutator) Create(ctx context.Context, draft client.StoryDraft) (*client.Story, error) {
	if derr := m.begin(telemetry.OpCreate); derr != nil {
		return nil, derr
	}
	defer m.finish()

	story, err := m.api.Create(ctx, draft)
	if err != nil {
		return nil, m.fail(telemetry.OpCreate, err)
	}

	m.rec.RecordMutation(telemetry.OpCreate, telemetry.OutcomeOK)
	m.log.Info("story created",
		logger.String("story_id", story.ID),
		logger.String("slug", story.Slug),
		logger.Bool("published", story.IsPublished))
	m.resetFeed(ctx)
	return story, nil
}

// Update replaces a story's fields and resets the feed on success.
func (m *Mutator) Update(ctx context.Context, id string, draft client.StoryDraft) (*client.Story, error) {
	if derr := m.begin(telemetry.OpUpdate); derr != nil {
		return nil, derr
	}
	defer m.finish()

	story, err := m.api.Update(ctx, id, draft)
	if err != nil {
		return nil, m.fail(telemetry.OpUpdate, err)
	}

	m.rec.RecordMutation(telemetry.OpUpdate, telemetry.OutcomeOK)
	m.log.Info("story updated", logger.String("story_id", story.ID))
	m.resetFeed(ctx)
	return story, nil
}

// Delete removes a story and resets the feed on success. Confirmed intent
// is a caller precondition: the mutator does not prompt, so anything
// user-facing must ask before invoking Delete.
func (m *Mutator) Delete(ctx context.Context, id string) error {
	if derr := m.begin(telemetry.OpDelete); derr != nil {
		return derr
	}
	defer m.finish()

	if err := m.api.Delete(ctx, id); err != nil {
		return m.fail(telemetry.OpDelete, err)
	}

	m.rec.RecordMutation(telemetry.OpDelete, telemetry.OutcomeOK)
	m.log.Info("story deleted", logger.String("story_id", id))
	m.resetFeed(ctx)
	return nil
}

// begin enforces the credential and single-pending preconditions. A nil
// return means the pending flag is held and finish must be called.
func (m *Mutator) begin(op string) *apierror.DomainError {
	if !m.creds.Current().Present() {
		m.rec.RecordMutation(op, telemetry.OutcomeRejected)
		m.log.Debug("mutation rejected, no credential", logger.String("op", op))
		return apierror.AuthenticationRequired()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending {
		m.rec.RecordMutation(op, telemetry.OutcomeRejected)
		m.log.Debug("mutation rejected, another one is pending", logger.String("op", op))
		return apierror.MutationPending()
	}
	m.pending = true
	return nil
}

func (m *Mutator) finish() {
	m.mu.Lock()
	m.pending = false
	m.mu.Unlock()
}

func (m *Mutator) fail(op string, err error) *apierror.DomainError {
	derr := apierror.FromError(err)
	m.rec.RecordMutation(op, telemetry.OutcomeError)
	m.log.Warn("mutation failed",
		logger.String("op", op),
		logger.String("code", string(derr.Code)),
		logger.Int("http_status", derr.HTTPStatus))
	return derr
}

// resetFeed refreshes the list after a successful mutation. A failed
// refetch is not the mutation's failure: the mutation landed, and the
// controller keeps the refetch error in its snapshot.
func (m *Mutator) resetFeed(ctx context.Context) {
	if err := m.feed.Reset(ctx); err != nil {
		m.log.Warn("feed reset after mutation failed", logger.Error(err))
	}
}
