package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
)

// IdentityProviderURL is the only identity provider logins go through.
const IdentityProviderURL = "https://identity.ic0.app/#authorize"

// AuthRequest describes one login towards the identity provider.
type AuthRequest struct {
	State            string
	SessionPublicKey string
}

// Authorization is a login started at the provider.
type Authorization interface {
	// URL is where the user approves the login.
	URL() string
	// Wait blocks until the provider answered or ctx is done.
	Wait(ctx context.Context) (*Delegation, error)
}

type Provider interface {
	Begin(req AuthRequest) (Authorization, error)
}

// BrowserProvider sends the user to the identity provider in a browser; the
// provider redirects back to our callback server, which feeds the broker.
type BrowserProvider struct {
	endpoint    string
	redirectURI string
	broker      *Broker
}

func NewBrowserProvider(redirectURI string, broker *Broker) *BrowserProvider {
	return &BrowserProvider{endpoint: IdentityProviderURL, redirectURI: redirectURI, broker: broker}
}

func (p *BrowserProvider) Begin(req AuthRequest) (Authorization, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid identity provider url: %w", err)
	}

	q := u.Query()
	q.Set("redirect_uri", p.redirectURI)
	q.Set("session_public_key", base64.RawURLEncoding.EncodeToString([]byte(req.SessionPublicKey)))
	q.Set("state", req.State)
	u.RawQuery = q.Encode()

	return &browserAuthorization{
		url:    u.String(),
		state:  req.State,
		result: p.broker.Register(req.State),
		broker: p.broker,
	}, nil
}

type browserAuthorization struct {
	url    string
	state  string
	result <-chan outcome
	broker *Broker
}

func (a *browserAuthorization) URL() string {
	return a.url
}

func (a *browserAuthorization) Wait(ctx context.Context) (*Delegation, error) {
	select {
	case o := <-a.result:
		return o.delegation, o.err
	case <-ctx.Done():
		a.broker.Forget(a.state)
		return nil, fmt.Errorf("%w: %v", ErrLoginCancelled, ctx.Err())
	}
}
