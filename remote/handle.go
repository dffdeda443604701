package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/deemkeen/inkblock/domain"
)

// Remote method names of the blog canister.
const (
	MethodCreatePost            = "createPost"
	MethodGetPosts              = "getPosts"
	MethodGetProfile            = "getProfile"
	MethodGetProfileByPrincipal = "getProfileByPrincipal"
	MethodUpdateProfile         = "updateProfile"
)

type Mode int

const (
	Anonymous Mode = iota
	Authenticated
)

func (m Mode) String() string {
	if m == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Handle is the typed call surface of the blog canister over one agent.
// Every error it returns is a *domain.CallError.
type Handle struct {
	mode  Mode
	agent *Agent
}

func NewHandle(agent *Agent) *Handle {
	mode := Authenticated
	if agent.IsAnonymous() {
		mode = Anonymous
	}
	return &Handle{mode: mode, agent: agent}
}

func (h *Handle) Mode() Mode {
	return h.mode
}

func (h *Handle) Principal() domain.Principal {
	return h.agent.Principal()
}

func (h *Handle) CreatePost(ctx context.Context, title, body string) error {
	return h.unit(ctx, true, MethodCreatePost, []any{title, body})
}

func (h *Handle) GetPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if err := h.agent.Query(ctx, MethodGetPosts, nil, &posts); err != nil {
		return nil, domain.NewTransportError(MethodGetPosts, err)
	}
	return posts, nil
}

func (h *Handle) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return h.profile(ctx, true, MethodGetProfile, nil)
}

func (h *Handle) GetProfileByPrincipal(ctx context.Context, principal domain.Principal) (*domain.Profile, error) {
	return h.profile(ctx, false, MethodGetProfileByPrincipal, []any{principal.String()})
}

// UpdateProfile sends a nil picture as the empty optional, leaving the stored
// picture to the canister's policy.
func (h *Handle) UpdateProfile(ctx context.Context, username, bio string, picture []byte) error {
	var pic any
	if picture != nil {
		pic = picture
	}
	return h.unit(ctx, true, MethodUpdateProfile, []any{username, bio, pic})
}

func (h *Handle) profile(ctx context.Context, update bool, method string, args []any) (*domain.Profile, error) {
	raw, err := h.result(ctx, update, method, args)
	if err != nil {
		return nil, err
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, domain.NewTransportError(method, fmt.Errorf("malformed profile: null"))
	}

	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, domain.NewTransportError(method, fmt.Errorf("malformed profile: %w", err))
	}
	return &profile, nil
}

func (h *Handle) unit(ctx context.Context, update bool, method string, args []any) error {
	_, err := h.result(ctx, update, method, args)
	return err
}

// result performs the call and unwraps the {"ok": ...} / {"err": "..."} variant.
func (h *Handle) result(ctx context.Context, update bool, method string, args []any) (json.RawMessage, error) {
	var variant map[string]json.RawMessage

	var err error
	if update {
		err = h.agent.Update(ctx, method, args, &variant)
	} else {
		err = h.agent.Query(ctx, method, args, &variant)
	}
	if err != nil {
		return nil, domain.NewTransportError(method, err)
	}

	if raw, ok := variant["err"]; ok {
		var message string
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, domain.NewTransportError(method, fmt.Errorf("malformed error variant: %w", err))
		}
		return nil, domain.NewApplicationError(method, message)
	}

	raw, ok := variant["ok"]
	if !ok {
		return nil, domain.NewTransportError(method, fmt.Errorf("reply is neither ok nor err"))
	}
	return raw, nil
}
