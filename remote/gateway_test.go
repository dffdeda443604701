package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/remote/remotetest"
	"github.com/gin-gonic/gin"
)

func setupBackend(t *testing.T) *remotetest.Backend {
	t.Helper()
	backend := remotetest.New()
	t.Cleanup(backend.Close)
	return backend
}

func login(t *testing.T, backend *remotetest.Backend, gw *remote.Gateway) *domain.Identity {
	t.Helper()
	identity, err := remotetest.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity failed: %v", err)
	}
	handle, err := backend.Handle(identity)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if handle.Mode() != remote.Authenticated {
		t.Fatalf("Expected an authenticated handle, got %s", handle.Mode())
	}
	gw.Authenticate(handle)
	return identity
}

func TestNewAgentValidation(t *testing.T) {
	if _, err := remote.NewAgent("", "abc", nil); err == nil {
		t.Error("Expected error for missing endpoint")
	}
	if _, err := remote.NewAgent("http://localhost", "", nil); err == nil {
		t.Error("Expected error for missing canister id")
	}

	bad := &domain.Identity{Principal: domain.AnonymousPrincipal, PrivateKeyPem: "nope"}
	if _, err := remote.NewAgent("http://localhost", "abc", bad); err == nil {
		t.Error("Expected error for an unparsable session key")
	}
}

func TestAnonymousHandle(t *testing.T) {
	backend := setupBackend(t)

	handle, err := backend.Handle(nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if handle.Mode() != remote.Anonymous {
		t.Errorf("Expected anonymous mode, got %s", handle.Mode())
	}
	if !handle.Principal().IsAnonymous() {
		t.Errorf("Expected anonymous principal, got %s", handle.Principal())
	}
}

func TestMutatingCallsNeedLogin(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	ctx := context.Background()

	checks := map[string]error{
		remote.MethodCreatePost:    gw.CreatePost(ctx, "Hello", "<p>World</p>"),
		remote.MethodUpdateProfile: gw.UpdateProfile(ctx, "alice", "bio", nil),
	}
	_, err := gw.GetProfile(ctx)
	checks[remote.MethodGetProfile] = err

	for method, err := range checks {
		if domain.KindOf(err) != domain.Unauthenticated {
			t.Errorf("%s: expected Unauthenticated, got %v", method, err)
		}
		if backend.Calls(method) != 0 {
			t.Errorf("%s: expected no remote call, got %d", method, backend.Calls(method))
		}
	}
}

func TestCreatePostAndGetPosts(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	identity := login(t, backend, gw)
	ctx := context.Background()

	if err := gw.CreatePost(ctx, "Hello", "<p>World</p>"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := gw.CreatePost(ctx, "Second", "<p>Again</p>"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	posts, err := gw.GetPosts(ctx)
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	// server order is kept
	if posts[0].Title != "Second" || posts[1].Title != "Hello" {
		t.Errorf("Unexpected order: %s, %s", posts[0].Title, posts[1].Title)
	}
	if !posts[1].Author.Equal(identity.Principal) {
		t.Errorf("Expected author %s, got %s", identity.Principal, posts[1].Author)
	}
	if posts[1].Body != "<p>World</p>" {
		t.Errorf("Unexpected body %q", posts[1].Body)
	}
	if posts[1].Timestamp == 0 {
		t.Error("Expected a timestamp")
	}
}

func TestGetPostsEmpty(t *testing.T) {
	backend := setupBackend(t)

	posts, err := backend.Gateway().GetPosts(context.Background())
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected no posts, got %d", len(posts))
	}
}

func TestGetProfileNotFound(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	login(t, backend, gw)

	_, err := gw.GetProfile(context.Background())
	if !domain.IsProfileNotFound(err) {
		t.Fatalf("Expected profile not found, got %v", err)
	}
	if domain.NoticeOf(err) != domain.ProfileNotFound {
		t.Errorf("Expected server text as notice, got %q", domain.NoticeOf(err))
	}
}

func TestUpdateAndGetProfile(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	identity := login(t, backend, gw)
	ctx := context.Background()

	picture := []byte{0x89, 'P', 'N', 'G'}
	if err := gw.UpdateProfile(ctx, "alice", "writes things", picture); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	profile, err := gw.GetProfile(ctx)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Username != "alice" || profile.Bio != "writes things" {
		t.Errorf("Unexpected profile %s", profile.ToString())
	}
	if string(profile.Picture) != string(picture) {
		t.Errorf("Expected picture to round trip, got %v", profile.Picture)
	}

	other, err := gw.GetProfileByPrincipal(ctx, identity.Principal)
	if err != nil {
		t.Fatalf("GetProfileByPrincipal failed: %v", err)
	}
	if other.Username != "alice" {
		t.Errorf("Expected alice, got %s", other.Username)
	}
}

func TestUpdateProfileNilPictureIsEmptyOptional(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	login(t, backend, gw)
	ctx := context.Background()

	if err := gw.UpdateProfile(ctx, "", "", nil); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	args := backend.LastArgs(remote.MethodUpdateProfile)
	if len(args) != 3 {
		t.Fatalf("Expected 3 arguments, got %d", len(args))
	}
	if string(args[2]) != "null" {
		t.Errorf("Expected picture to be null, got %s", args[2])
	}

	var username string
	if err := json.Unmarshal(args[0], &username); err != nil || username != "" {
		t.Errorf("Expected empty username, got %q (%v)", username, err)
	}
}

func TestGetProfileByPrincipalUnknown(t *testing.T) {
	backend := setupBackend(t)

	identity, err := remotetest.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity failed: %v", err)
	}

	_, err = backend.Gateway().GetProfileByPrincipal(context.Background(), identity.Principal)
	if domain.KindOf(err) != domain.ApplicationError {
		t.Fatalf("Expected application error, got %v", err)
	}
	if backend.Calls(remote.MethodGetProfileByPrincipal) != 1 {
		t.Errorf("Expected exactly one call, got %d", backend.Calls(remote.MethodGetProfileByPrincipal))
	}
}

func TestApplicationErrorKeepsServerText(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	login(t, backend, gw)

	backend.FailWith(remote.MethodCreatePost, "Title too long")

	err := gw.CreatePost(context.Background(), "t", "b")
	var ce *domain.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a CallError, got %v", err)
	}
	if ce.Kind != domain.ApplicationError || ce.Notice() != "Title too long" {
		t.Errorf("Unexpected error %v", ce)
	}
}

func TestTransportFailureIsGeneric(t *testing.T) {
	backend := setupBackend(t)
	backend.Break(remote.MethodGetPosts)

	_, err := backend.Gateway().GetPosts(context.Background())
	if domain.KindOf(err) != domain.TransportFailure {
		t.Fatalf("Expected transport failure, got %v", err)
	}
	if domain.NoticeOf(err) != "An error occurred while contacting the backend" {
		t.Errorf("Unexpected notice %q", domain.NoticeOf(err))
	}
}

func TestTransportFailureUnreachable(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	backend.Close()

	_, err := gw.GetPosts(context.Background())
	if domain.KindOf(err) != domain.TransportFailure {
		t.Fatalf("Expected transport failure, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	backend := setupBackend(t)
	backend.Delay(remote.MethodGetPosts, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := backend.Gateway().GetPosts(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestDeauthenticate(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()
	identity := login(t, backend, gw)

	if !gw.IsAuthenticated() || !gw.Principal().Equal(identity.Principal) {
		t.Fatal("Expected gateway to be authenticated")
	}

	gw.Deauthenticate()
	if gw.IsAuthenticated() {
		t.Error("Expected gateway to be anonymous")
	}
	if !gw.Principal().IsAnonymous() {
		t.Errorf("Expected anonymous principal, got %s", gw.Principal())
	}
	if err := gw.CreatePost(context.Background(), "a", "b"); domain.KindOf(err) != domain.Unauthenticated {
		t.Errorf("Expected Unauthenticated after logout, got %v", err)
	}
}

func TestForgedSignatureRejected(t *testing.T) {
	backend := setupBackend(t)
	gw := backend.Gateway()

	identity, err := remotetest.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity failed: %v", err)
	}
	other, err := remotetest.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity failed: %v", err)
	}
	// sign with one key, present another
	identity.PublicKeyPem = other.PublicKeyPem

	handle, err := backend.Handle(identity)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	gw.Authenticate(handle)

	if err := gw.CreatePost(context.Background(), "a", "b"); domain.KindOf(err) != domain.TransportFailure {
		t.Errorf("Expected the backend to reject the call, got %v", err)
	}
	if len(backend.Posts()) != 0 {
		t.Error("No post should have been created")
	}
}

func TestNullProfileIsTransportFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v2/canister/:canister/:kind", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": nil})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	agent, err := remote.NewAgent(server.URL, remotetest.CanisterId, nil)
	if err != nil {
		t.Fatalf("NewAgent failed: %v", err)
	}
	gw := remote.NewGateway(remote.NewHandle(agent))

	identity, err := remotetest.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity failed: %v", err)
	}

	profile, err := gw.GetProfileByPrincipal(context.Background(), identity.Principal)
	if err == nil {
		t.Fatal("Expected an error for a null profile")
	}
	if domain.KindOf(err) != domain.TransportFailure {
		t.Fatalf("Expected transport failure, got %v", err)
	}
	if profile != nil {
		t.Errorf("Expected no profile, got %+v", profile)
	}
}
