// Package remotetest runs an in-memory blog canister for tests.
package remotetest

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/util"
	"github.com/gin-gonic/gin"
)

const CanisterId = "rrkah-fqaaa-aaaaa-aaaaq-cai"

const testKeyBits = 1024

type envelope struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

// Backend is a fake blog canister. Posts are kept newest first.
type Backend struct {
	mu        sync.Mutex
	posts     []domain.Post
	profiles  map[string]domain.Profile
	nextId    uint64
	calls     map[string]int
	lastArgs  map[string][]json.RawMessage
	appErrors map[string]string
	broken    map[string]bool
	delays    map[string]time.Duration

	server *httptest.Server
}

func New() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		profiles:  map[string]domain.Profile{},
		nextId:    1,
		calls:     map[string]int{},
		lastArgs:  map[string][]json.RawMessage{},
		appErrors: map[string]string{},
		broken:    map[string]bool{},
		delays:    map[string]time.Duration{},
	}

	g := gin.New()
	g.POST("/api/v2/canister/:canister/:kind", b.handle)
	b.server = httptest.NewServer(g)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) Close() {
	b.server.Close()
}

// Agent returns an agent for this backend, anonymous when identity is nil.
func (b *Backend) Agent(identity *domain.Identity) (*remote.Agent, error) {
	return remote.NewAgent(b.URL(), CanisterId, identity)
}

// Handle is the Agent wrapped in a typed handle.
func (b *Backend) Handle(identity *domain.Identity) (*remote.Handle, error) {
	agent, err := b.Agent(identity)
	if err != nil {
		return nil, err
	}
	return remote.NewHandle(agent), nil
}

// Gateway returns a gateway with only the anonymous handle installed.
func (b *Backend) Gateway() *remote.Gateway {
	h, err := b.Handle(nil)
	if err != nil {
		panic(err)
	}
	return remote.NewGateway(h)
}

// NewIdentity creates a logged in identity with a random user key.
func NewIdentity() (*domain.Identity, error) {
	keys, err := util.GeneratePemKeypair(testKeyBits)
	if err != nil {
		return nil, err
	}

	userKey := make([]byte, 44)
	if _, err := rand.Read(userKey); err != nil {
		return nil, err
	}

	return &domain.Identity{
		Principal:     domain.SelfAuthenticating(userKey),
		PrivateKeyPem: keys.Private,
		PublicKeyPem:  keys.Public,
		Delegation:    base64.StdEncoding.EncodeToString(userKey),
		Expiration:    time.Now().Add(time.Hour),
		CreatedAt:     time.Now(),
	}, nil
}

// Calls reports how many times method was invoked.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// LastArgs returns the raw JSON arguments of the last call of method.
func (b *Backend) LastArgs(method string) []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastArgs[method]
}

// SetPosts replaces the stored posts; they are served in the given order.
func (b *Backend) SetPosts(posts []domain.Post) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append([]domain.Post(nil), posts...)
}

func (b *Backend) Posts() []domain.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Post(nil), b.posts...)
}

func (b *Backend) SetProfile(principal domain.Principal, profile domain.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[principal.String()] = profile
}

func (b *Backend) Profile(principal domain.Principal) (domain.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[principal.String()]
	return p, ok
}

// FailWith makes method answer with the err variant carrying message.
func (b *Backend) FailWith(method, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appErrors[method] = message
}

// Break makes method answer with a 500.
func (b *Backend) Break(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken[method] = true
}

// Delay holds replies to method for d.
func (b *Backend) Delay(method string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[method] = d
}

func (b *Backend) handle(c *gin.Context) {
	if c.Param("canister") != CanisterId {
		c.String(http.StatusNotFound, "canister %s not found", c.Param("canister"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}

	caller, err := authenticate(c.Request, body)
	if err != nil {
		c.String(http.StatusUnauthorized, err.Error())
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.String(http.StatusBadRequest, "malformed envelope: %v", err)
		return
	}

	b.mu.Lock()
	b.calls[env.Method]++
	b.lastArgs[env.Method] = env.Args
	delay := b.delays[env.Method]
	broken := b.broken[env.Method]
	appErr, failing := b.appErrors[env.Method]
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if broken {
		c.String(http.StatusInternalServerError, "canister trapped")
		return
	}

	wantKind := "call"
	if env.Method == remote.MethodGetPosts || env.Method == remote.MethodGetProfileByPrincipal {
		wantKind = "query"
	}
	if c.Param("kind") != wantKind {
		c.String(http.StatusBadRequest, "%s must be sent as %s", env.Method, wantKind)
		return
	}

	if failing {
		c.JSON(http.StatusOK, gin.H{"err": appErr})
		return
	}

	switch env.Method {
	case remote.MethodGetPosts:
		c.JSON(http.StatusOK, b.Posts())
	case remote.MethodCreatePost:
		b.createPost(c, caller, env.Args)
	case remote.MethodGetProfile:
		b.getProfile(c, caller)
	case remote.MethodGetProfileByPrincipal:
		b.getProfileByPrincipal(c, env.Args)
	case remote.MethodUpdateProfile:
		b.updateProfile(c, caller, env.Args)
	default:
		c.String(http.StatusBadRequest, "unknown method %s", env.Method)
	}
}

// authenticate returns the anonymous principal for unsigned calls and the
// signer for signed ones.
func authenticate(req *http.Request, body []byte) (domain.Principal, error) {
	sender := req.Header.Get(remote.HeaderSender)
	if sender == "" {
		return domain.AnonymousPrincipal, nil
	}

	principal, err := domain.ParsePrincipal(sender)
	if err != nil {
		return nil, err
	}

	if req.Header.Get(remote.HeaderDelegation) == "" {
		return nil, fmt.Errorf("missing delegation")
	}

	keyPem, err := base64.StdEncoding.DecodeString(req.Header.Get(remote.HeaderSessionKey))
	if err != nil {
		return nil, fmt.Errorf("malformed session key: %w", err)
	}

	keyId, err := remote.VerifyRequest(req, string(keyPem))
	if err != nil {
		return nil, err
	}
	if keyId != sender {
		return nil, fmt.Errorf("signed by %s, sent as %s", keyId, sender)
	}

	if req.Header.Get("Digest") != remote.Digest(body) {
		return nil, fmt.Errorf("digest mismatch")
	}

	return principal, nil
}

func (b *Backend) createPost(c *gin.Context, caller domain.Principal, args []json.RawMessage) {
	var title, body string
	if err := decodeArgs(args, &title, &body); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if caller.IsAnonymous() {
		c.JSON(http.StatusOK, gin.H{"err": "Anonymous users cannot post"})
		return
	}

	b.mu.Lock()
	post := domain.Post{
		Id:             b.nextId,
		Title:          title,
		Body:           body,
		Author:         caller,
		AuthorUsername: b.profiles[caller.String()].Username,
		Timestamp:      time.Now().UnixNano(),
	}
	b.nextId++
	b.posts = append([]domain.Post{post}, b.posts...)
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"ok": nil})
}

func (b *Backend) getProfile(c *gin.Context, caller domain.Principal) {
	profile, ok := b.Profile(caller)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"err": domain.ProfileNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": profile})
}

func (b *Backend) getProfileByPrincipal(c *gin.Context, args []json.RawMessage) {
	var text string
	if err := decodeArgs(args, &text); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	principal, err := domain.ParsePrincipal(text)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"err": err.Error()})
		return
	}
	b.getProfile(c, principal)
}

func (b *Backend) updateProfile(c *gin.Context, caller domain.Principal, args []json.RawMessage) {
	var (
		username, bio string
		picture       []byte
	)
	if err := decodeArgs(args, &username, &bio, &picture); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if caller.IsAnonymous() {
		c.JSON(http.StatusOK, gin.H{"err": "Anonymous users cannot have a profile"})
		return
	}

	b.mu.Lock()
	existing := b.profiles[caller.String()]
	if picture == nil {
		picture = existing.Picture
	}
	b.profiles[caller.String()] = domain.Profile{Username: username, Bio: bio, Picture: picture}
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"ok": nil})
}

func decodeArgs(args []json.RawMessage, out ...any) error {
	if len(args) != len(out) {
		return fmt.Errorf("expected %d arguments, got %d", len(out), len(args))
	}
	for i, raw := range args {
		if err := json.Unmarshal(raw, out[i]); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}
