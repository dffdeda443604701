package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/inkblock/util"
)

// AuthMiddleware only lets sessions with a public key through; the key
// decides which stored identity the session gets.
func AuthMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			if s.PublicKey() == nil {
				wish.Fatalln(s, "inkblock needs public key authentication")
				return
			}
			util.LogPublicKey(s)
			h(s)
		}
	}
}

// Owner is the identity store key of an ssh session.
func Owner(s ssh.Session) string {
	return util.PkToHash(util.PublicKeyToString(s.PublicKey()))
}
