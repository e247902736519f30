package identity

// StaticProvider holds a fixed credential that never changes, e.g. a token
// passed on the command line. An empty token is a valid static provider
// meaning "anonymous".
type StaticProvider struct {
	cred Credential
}

// NewStatic creates a provider for a fixed token.
func NewStatic(token string) *StaticProvider {
	return &StaticProvider{cred: Credential{Token: token}}
}

// Current returns the fixed credential.
func (p *StaticProvider) Current() Credential {
	return p.cred
}

// Subscribe never notifies; the identity cannot change.
func (p *StaticProvider) Subscribe(func(Credential)) func() {
	return func() {}
}
