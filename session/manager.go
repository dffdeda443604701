package session

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/util"
	"github.com/google/uuid"
)

const (
	LabelLogin  = "Login"
	LabelLogout = "Logout"
)

// Store persists the identity of each owner between runs.
type Store interface {
	SaveIdentity(owner string, id *domain.Identity) error
	ReadIdentityByOwner(owner string) (*domain.Identity, error)
	DeleteIdentityByOwner(owner string) error
	TouchIdentity(owner string) error
}

// Connector builds the authenticated handle of an identity.
type Connector func(id *domain.Identity) (*remote.Handle, error)

// AgentConnector connects identities to the given canister.
func AgentConnector(endpoint, canisterId string) Connector {
	return func(id *domain.Identity) (*remote.Handle, error) {
		agent, err := remote.NewAgent(endpoint, canisterId, id)
		if err != nil {
			return nil, err
		}
		return remote.NewHandle(agent), nil
	}
}

// Manager owns the login state of one client and keeps the gateway's
// authenticated handle in step with it.
type Manager struct {
	mu       sync.Mutex
	owner    string
	store    Store
	provider Provider
	gateway  *remote.Gateway
	connect  Connector
	session  domain.Session
	keyBits  int
	now      func() time.Time
}

func NewManager(owner string, store Store, provider Provider, gateway *remote.Gateway, connect Connector) *Manager {
	return &Manager{
		owner:    owner,
		store:    store,
		provider: provider,
		gateway:  gateway,
		connect:  connect,
		session:  domain.AnonymousSession,
		keyBits:  util.SessionKeyBits,
		now:      time.Now,
	}
}

// WithKeyBits changes the size of generated session keys.
func (m *Manager) WithKeyBits(bits int) *Manager {
	m.keyBits = bits
	return m
}

func (m *Manager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) LoginLabel() string {
	if m.Session().IsAuthenticated {
		return LabelLogout
	}
	return LabelLogin
}

// Restore picks up the identity persisted by an earlier run. Anything that
// keeps it from being usable leaves the client anonymous.
func (m *Manager) Restore(ctx context.Context) domain.Session {
	if ctx.Err() != nil {
		return m.Session()
	}

	id, err := m.store.ReadIdentityByOwner(m.owner)
	if err != nil {
		log.Printf("Session: could not read identity of %s: %v", m.owner, err)
		return m.Session()
	}
	if id == nil {
		return m.Session()
	}

	if id.Expired(m.now()) {
		log.Printf("Session: identity %s of %s expired at %s", id.Principal, m.owner, id.Expiration.Format(util.DateTimeFormat()))
		if err := m.store.DeleteIdentityByOwner(m.owner); err != nil {
			log.Printf("Session: could not delete expired identity of %s: %v", m.owner, err)
		}
		return m.Session()
	}

	handle, err := m.connect(id)
	if err != nil {
		log.Printf("Session: could not connect identity %s: %v", id.Principal, err)
		return m.Session()
	}

	if err := m.store.TouchIdentity(m.owner); err != nil {
		log.Printf("Session: could not touch identity of %s: %v", m.owner, err)
	}

	log.Printf("Session: restored %s for %s", id.Principal, m.owner)
	return m.install(id, handle)
}

// Login logs out an authenticated client, otherwise it runs a full login
// and waits for the identity provider.
func (m *Manager) Login(ctx context.Context) (domain.Session, error) {
	if m.Session().IsAuthenticated {
		return m.Logout(), nil
	}

	attempt, err := m.StartLogin()
	if err != nil {
		return m.Session(), err
	}
	return attempt.Wait(ctx)
}

// LoginAttempt is a login waiting for the user to approve it at URL.
type LoginAttempt struct {
	URL string

	m    *Manager
	auth Authorization
	keys *util.RsaKeyPair
}

// StartLogin creates a fresh session key and registers the login with the
// identity provider.
func (m *Manager) StartLogin() (*LoginAttempt, error) {
	keys, err := util.GeneratePemKeypair(m.keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	auth, err := m.provider.Begin(AuthRequest{
		State:            uuid.New().String(),
		SessionPublicKey: keys.Public,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start login: %w", err)
	}

	return &LoginAttempt{URL: auth.URL(), m: m, auth: auth, keys: keys}, nil
}

// Wait blocks until the login completes. A cancelled login returns the
// unchanged anonymous session and no error.
func (a *LoginAttempt) Wait(ctx context.Context) (domain.Session, error) {
	m := a.m

	delegation, err := a.auth.Wait(ctx)
	if errors.Is(err, ErrLoginCancelled) {
		log.Printf("Session: login of %s cancelled: %v", m.owner, err)
		return m.Session(), nil
	}
	if err != nil {
		return m.Session(), fmt.Errorf("login failed: %w", err)
	}

	if _, err := x509.ParsePKIXPublicKey(delegation.UserPublicKey); err != nil {
		return m.Session(), fmt.Errorf("login failed: malformed user key: %w", err)
	}

	id := &domain.Identity{
		Principal:     domain.SelfAuthenticating(delegation.UserPublicKey),
		PrivateKeyPem: a.keys.Private,
		PublicKeyPem:  a.keys.Public,
		Delegation:    delegation.Chain,
		Expiration:    delegation.Expiration,
		CreatedAt:     m.now(),
	}
	if id.Expired(m.now()) {
		return m.Session(), fmt.Errorf("login failed: delegation expired at %s", id.Expiration.Format(util.DateTimeFormat()))
	}

	handle, err := m.connect(id)
	if err != nil {
		return m.Session(), fmt.Errorf("login failed: %w", err)
	}

	if err := m.store.SaveIdentity(m.owner, id); err != nil {
		log.Printf("Session: could not persist identity of %s: %v", m.owner, err)
	}

	log.Printf("Session: %s logged in as %s", m.owner, id.Principal)
	return m.install(id, handle), nil
}

// Logout revokes the persisted identity and drops the authenticated handle.
func (m *Manager) Logout() domain.Session {
	if err := m.store.DeleteIdentityByOwner(m.owner); err != nil {
		log.Printf("Session: could not delete identity of %s: %v", m.owner, err)
	}
	m.gateway.Deauthenticate()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.AnonymousSession
	log.Printf("Session: %s logged out", m.owner)
	return m.session
}

func (m *Manager) install(id *domain.Identity, handle *remote.Handle) domain.Session {
	m.gateway.Authenticate(handle)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.Session{IsAuthenticated: true, Identity: id}
	return m.session
}

