package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// defaultTokenTTL is how long minted service tokens stay valid.
	defaultTokenTTL = 24 * time.Hour
	// refreshMargin re-mints a token this long before it expires so a
	// request never goes out with a token about to lapse mid-flight.
	refreshMargin = 5 * time.Minute
)

// ServiceTokenProvider mints short-lived HS256 service tokens from a shared
// secret. Re-minting produces a new token value, which counts as an
// identity change and is announced to subscribers.
type ServiceTokenProvider struct {
	secret  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached Credential
	subs   map[int]func(Credential)
	nextID int
}

// NewServiceToken creates a provider minting tokens for the given subject.
func NewServiceToken(secret, subject string) *ServiceTokenProvider {
	return &ServiceTokenProvider{
		secret:  secret,
		subject: subject,
		ttl:     defaultTokenTTL,
		now:     time.Now,
		subs:    make(map[int]func(Credential)),
	}
}

// Current returns a valid credential, minting a fresh token when the cached
// one is absent or inside the refresh margin.
func (p *ServiceTokenProvider) Current() Credential {
	p.mu.Lock()
	if p.cached.Present() && p.now().Before(p.cached.ExpiresAt.Add(-refreshMargin)) {
		cred := p.cached
		p.mu.Unlock()
		return cred
	}

	cred, err := p.mint()
	if err != nil {
		p.mu.Unlock()
		return Credential{}
	}
	changed := cred.Token != p.cached.Token
	p.cached = cred
	subs := p.snapshotSubs()
	p.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(cred)
		}
	}
	return cred
}

// Subscribe registers fn for identity changes caused by re-minting.
func (p *ServiceTokenProvider) Subscribe(fn func(Credential)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// mint signs a fresh HS256 token. Callers must hold p.mu.
func (p *ServiceTokenProvider) mint() (Credential, error) {
	if p.secret == "" {
		return Credential{}, fmt.Errorf("auth secret not configured")
	}

	now := p.now()
	expiresAt := now.Add(p.ttl)
	claims := &jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Subject:   p.subject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.secret))
	if err != nil {
		return Credential{}, fmt.Errorf("sign service token: %w", err)
	}

	return Credential{Token: signed, ExpiresAt: expiresAt}, nil
}

func (p *ServiceTokenProvider) snapshotSubs() []func(Credential) {
	out := make([]func(Credential), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}
