package remote

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/util"
)

const (
	HeaderSender     = "X-Sender"
	HeaderSessionKey = "X-Session-Key"
	HeaderDelegation = "X-Delegation"

	callKindQuery  = "query"
	callKindUpdate = "call"

	maxReplyBytes = 8 << 20
)

// Envelope is the request body of every canister call.
type Envelope struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// Agent sends calls to one canister, signing them when it carries an identity.
type Agent struct {
	endpoint   string
	canisterId string
	identity   *domain.Identity
	privateKey *rsa.PrivateKey
	client     *http.Client
}

// NewAgent builds an agent for the canister behind endpoint. A nil identity
// makes an anonymous agent.
func NewAgent(endpoint, canisterId string, identity *domain.Identity) (*Agent, error) {
	if endpoint == "" || canisterId == "" {
		return nil, fmt.Errorf("backend endpoint and canister id are required")
	}

	agent := &Agent{
		endpoint:   strings.TrimRight(endpoint, "/"),
		canisterId: canisterId,
		identity:   identity,
		client:     &http.Client{},
	}

	if identity != nil {
		key, err := ParsePrivateKey(identity.PrivateKeyPem)
		if err != nil {
			return nil, fmt.Errorf("session key of %s: %w", identity.Principal, err)
		}
		agent.privateKey = key
	}

	return agent, nil
}

// WithClient replaces the HTTP client, mostly for tests.
func (a *Agent) WithClient(client *http.Client) *Agent {
	a.client = client
	return a
}

func (a *Agent) Principal() domain.Principal {
	if a.identity == nil {
		return domain.AnonymousPrincipal
	}
	return a.identity.Principal
}

func (a *Agent) IsAnonymous() bool {
	return a.identity == nil
}

// Query performs a read-only call.
func (a *Agent) Query(ctx context.Context, method string, args []any, out any) error {
	return a.call(ctx, callKindQuery, method, args, out)
}

// Update performs a call that may change canister state.
func (a *Agent) Update(ctx context.Context, method string, args []any, out any) error {
	return a.call(ctx, callKindUpdate, method, args, out)
}

func (a *Agent) url(kind string) string {
	return fmt.Sprintf("%s/api/v2/canister/%s/%s", a.endpoint, a.canisterId, kind)
}

func (a *Agent) call(ctx context.Context, kind, method string, args []any, out any) error {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(Envelope{Method: method, Args: args})
	if err != nil {
		return fmt.Errorf("failed to encode %s arguments: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url(kind), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	if a.identity != nil {
		req.Header.Set(HeaderSender, a.identity.Principal.String())
		req.Header.Set(HeaderSessionKey, base64.StdEncoding.EncodeToString([]byte(a.identity.PublicKeyPem)))
		req.Header.Set(HeaderDelegation, a.identity.Delegation)
		if err := SignRequest(req, a.privateKey, a.identity.Principal.String(), body); err != nil {
			return fmt.Errorf("failed to sign request: %w", err)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s reply: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("canister %s returned status %d for %s: %s", a.canisterId, resp.StatusCode, method, strings.TrimSpace(string(reply)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("failed to decode %s reply: %w", method, err)
	}
	return nil
}
