// Package identity supplies the bearer credential presented to the stories
// API and notifies observers when the ambient identity changes. The rest of
// the system treats credentials as opaque: they are compared by value and
// never parsed or refreshed outside this package.
package identity

import "time"

// Credential is an opaque bearer token plus its expiry, when known.
// The zero value means "no credential".
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Present reports whether a credential is held at all.
func (c Credential) Present() bool {
	return c.Token != ""
}

// Identity returns the comparable identity of the credential. Two
// credentials with the same identity are interchangeable for server-side
// visibility purposes.
func (c Credential) Identity() string {
	return c.Token
}

// Provider exposes the current credential and change notifications.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Current returns the credential to present right now, or the zero
	// value when none is available.
	Current() Credential
	// Subscribe registers fn to be called with the new credential whenever
	// the identity changes. The returned function cancels the subscription.
	Subscribe(fn func(Credential)) (cancel func())
}
