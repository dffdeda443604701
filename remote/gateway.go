package remote

import (
	"context"
	"log"
	"sync"

	"github.com/deemkeen/inkblock/domain"
)

// Gateway routes calls to the anonymous or the authenticated handle. Reads
// always go anonymous; mutating calls and the own profile need a login and
// fail fast without one.
type Gateway struct {
	mu            sync.RWMutex
	anonymous     *Handle
	authenticated *Handle
}

func NewGateway(anonymous *Handle) *Gateway {
	return &Gateway{anonymous: anonymous}
}

// Authenticate installs the handle of a fresh login.
func (g *Gateway) Authenticate(handle *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = handle
}

func (g *Gateway) Deauthenticate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = nil
}

func (g *Gateway) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated != nil
}

// Principal is the caller identity mutating calls are made as.
func (g *Gateway) Principal() domain.Principal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.authenticated == nil {
		return domain.AnonymousPrincipal
	}
	return g.authenticated.Principal()
}

func (g *Gateway) authHandle(op string) (*Handle, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.authenticated == nil {
		return nil, domain.NewUnauthenticatedError(op, domain.LoginRequired)
	}
	return g.authenticated, nil
}

func (g *Gateway) anonHandle() *Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.anonymous
}

func (g *Gateway) CreatePost(ctx context.Context, title, body string) error {
	h, err := g.authHandle(MethodCreatePost)
	if err != nil {
		return err
	}
	return logged(h.CreatePost(ctx, title, body))
}

// GetPosts lists all posts in the order the canister returns them.
func (g *Gateway) GetPosts(ctx context.Context) ([]domain.Post, error) {
	posts, err := g.anonHandle().GetPosts(ctx)
	return posts, logged(err)
}

// GetProfile returns the caller's own profile; a caller without one gets
// the "Profile not found" application error.
func (g *Gateway) GetProfile(ctx context.Context) (*domain.Profile, error) {
	h, err := g.authHandle(MethodGetProfile)
	if err != nil {
		return nil, err
	}
	profile, err := h.GetProfile(ctx)
	return profile, logged(err)
}

func (g *Gateway) GetProfileByPrincipal(ctx context.Context, principal domain.Principal) (*domain.Profile, error) {
	profile, err := g.anonHandle().GetProfileByPrincipal(ctx, principal)
	return profile, logged(err)
}

func (g *Gateway) UpdateProfile(ctx context.Context, username, bio string, picture []byte) error {
	h, err := g.authHandle(MethodUpdateProfile)
	if err != nil {
		return err
	}
	return logged(h.UpdateProfile(ctx, username, bio, picture))
}

func logged(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) == domain.TransportFailure {
		log.Printf("Gateway: %v", err)
	}
	return err
}
