package identity

import (
	"context"
	"sync"

	"github.com/ghostmonk/storyfeed/internal/logger"
)

// Resetter is the slice of the feed controller the reactor drives.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Reactor holds the last-observed credential identity and resets the feed
// exactly once per identity change. Changes are honored unconditionally,
// including transitions to and from "no credential": server-side
// visibility rules are re-evaluated by refetching, never patched locally.
type Reactor struct {
	mu   sync.Mutex
	last string

	feed Resetter
	log  logger.Logger
}

// NewReactor creates a reactor seeded with the identity the feed was built
// under, so re-observing the same credential does not trigger a reset.
func NewReactor(initial Credential, feed Resetter, log logger.Logger) *Reactor {
	return &Reactor{
		last: initial.Identity(),
		feed: feed,
		log:  log,
	}
}

// Observe compares the credential's identity with the last-observed one
// and resets the feed when they differ.
func (r *Reactor) Observe(ctx context.Context, cred Credential) {
	id := cred.Identity()

	r.mu.Lock()
	if id == r.last {
		r.mu.Unlock()
		return
	}
	r.last = id
	r.mu.Unlock()

	r.log.Info("credential identity changed, resetting feed",
		logger.Bool("present", cred.Present()))
	if err := r.feed.Reset(ctx); err != nil {
		// The controller keeps the error in its snapshot; nothing to do
		// here beyond recording that the refetch did not land.
		r.log.Warn("reset after identity change failed", logger.Error(err))
	}
}

// Bind subscribes the reactor to a provider. The returned function cancels
// the subscription.
func (r *Reactor) Bind(ctx context.Context, provider Provider) func() {
	return provider.Subscribe(func(cred Credential) {
		r.Observe(ctx, cred)
	})
}
