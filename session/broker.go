package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrLoginCancelled reports a login the user abandoned, either locally or
	// at the identity provider.
	ErrLoginCancelled    = errors.New("login cancelled")
	ErrUnknownLoginState = errors.New("unknown or expired login state")
)

// Delegation is what the identity provider hands back for a session key.
// Chain is opaque to the client and forwarded to the backend as is.
type Delegation struct {
	Chain         string
	UserPublicKey []byte
	Expiration    time.Time
}

type outcome struct {
	delegation *Delegation
	err        error
}

// Broker pairs identity provider callbacks with the logins waiting for them.
type Broker struct {
	mu      sync.Mutex
	pending map[string]chan outcome
}

func NewBroker() *Broker {
	return &Broker{pending: map[string]chan outcome{}}
}

// Register opens a one-shot slot for state.
func (b *Broker) Register(state string) <-chan outcome {
	ch := make(chan outcome, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[state] = ch
	return ch
}

func (b *Broker) Resolve(state string, delegation Delegation) error {
	return b.deliver(state, outcome{delegation: &delegation})
}

// Reject completes the login as cancelled, reason is what the provider said.
func (b *Broker) Reject(state, reason string) error {
	return b.deliver(state, outcome{err: fmt.Errorf("%w: %s", ErrLoginCancelled, reason)})
}

// Forget drops a pending state without completing it.
func (b *Broker) Forget(state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, state)
}

func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Broker) deliver(state string, o outcome) error {
	b.mu.Lock()
	ch, ok := b.pending[state]
	delete(b.pending, state)
	b.mu.Unlock()

	if !ok {
		return ErrUnknownLoginState
	}
	ch <- o
	return nil
}
