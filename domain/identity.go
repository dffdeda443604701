package domain

import "time"

// Identity is an authenticated login: a session keypair plus the delegation
// the identity provider issued for it. The delegation is opaque to us.
type Identity struct {
	Principal     Principal
	PrivateKeyPem string
	PublicKeyPem  string
	Delegation    string
	Expiration    time.Time
	CreatedAt     time.Time
}

func (id *Identity) Expired(now time.Time) bool {
	return !id.Expiration.IsZero() && !now.Before(id.Expiration)
}

// Session is the login state of one client.
type Session struct {
	IsAuthenticated bool
	Identity        *Identity
}

var AnonymousSession = Session{}

// Principal is the caller identity the backend sees for this session.
func (s Session) Principal() Principal {
	if !s.IsAuthenticated || s.Identity == nil {
		return AnonymousPrincipal
	}
	return s.Identity.Principal
}
