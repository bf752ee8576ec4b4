package sheets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/jwt"
)

// CredentialSource yields service-account credentials or a configuration
// error. *credentials.Loader satisfies it.
type CredentialSource interface {
	JWTConfig() (*jwt.Config, error)
}

// Provider builds the Service on first use and hands the same instance to
// every later caller.
type Provider struct {
	creds   CredentialSource
	timeout time.Duration

	mu  sync.Mutex
	svc Service
}

// NewProvider returns a Provider that authenticates with creds.
func NewProvider(creds CredentialSource, timeout time.Duration) *Provider {
	return &Provider{creds: creds, timeout: timeout}
}

// Service returns the shared client. A credentials error is returned as-is
// and nothing is cached, so a later call can still succeed.
func (p *Provider) Service(ctx context.Context) (Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.svc != nil {
		return p.svc, nil
	}

	cfg, err := p.creds.JWTConfig()
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, cfg, p.timeout)
	if err != nil {
		return nil, err
	}
	p.svc = client
	return p.svc, nil
}
