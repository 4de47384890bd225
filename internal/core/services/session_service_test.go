package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/config"
	"collections-console/internal/core/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Store:   config.StoreConfig{SealSecret: "seal"},
		JWT:     config.JWTConfig{Secret: "test-secret", SessionMinutes: 60},
	}
}

func newSessionFixture(t *testing.T) (*SessionService, *fakeAPI, *kvstore.SessionStore) {
	t.Helper()
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	api := newFakeAPI()
	api.loginFn = func(username, password string) (*upstream.LoginResult, error) {
		if username == "jane" && password == "pw" {
			return &upstream.LoginResult{Token: "upstream-tok", User: upstream.LoginUser{ID: "U1", Name: "Jane", Role: domain.RoleSupervisor}}, nil
		}
		return nil, domain.ErrUnauthenticated
	}

	sessions := kvstore.NewSessionStore(store)
	return NewSessionService(api, sessions, testConfig()), api, sessions
}

func TestLoginResolveLogout(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	res, err := svc.Login(context.Background(), LoginInput{Username: " jane ", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.Name != "Jane" || res.User.Role != domain.RoleSupervisor {
		t.Fatalf("unexpected user %+v", res.User)
	}

	sess, err := svc.Resolve(res.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess.AuthToken != "upstream-tok" || sess.UserID != "U1" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := svc.Logout(sess.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Resolve(res.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestTokenIsSealedAtRest(t *testing.T) {
	svc, _, sessions := newSessionFixture(t)

	res, err := svc.Login(context.Background(), LoginInput{Username: "jane", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, _ := svc.Resolve(res.Token)

	stored, _, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored == "upstream-tok" {
		t.Fatal("upstream token stored in clear text")
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	if _, err := svc.Login(context.Background(), LoginInput{Username: "", Password: "pw"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Username: "jane", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Resolve("garbage"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for a bad token, got %v", err)
	}
}

func TestInvalidateClearsSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	res, _ := svc.Login(context.Background(), LoginInput{Username: "jane", Password: "pw"})
	sess, _ := svc.Resolve(res.Token)

	svc.Invalidate(sess.ID)
	if _, err := svc.Get(sess.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
}

func TestServiceSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	if _, err := svc.ServiceSession(context.Background()); !errors.Is(err, ErrServiceAccount) {
		t.Fatalf("expected ErrServiceAccount, got %v", err)
	}

	svc.cfg.Service = config.ServiceAccountConfig{Username: "jane", Password: "pw"}
	sess, err := svc.ServiceSession(context.Background())
	if err != nil {
		t.Fatalf("ServiceSession: %v", err)
	}
	if sess.AuthToken != "upstream-tok" {
		t.Fatalf("unexpected token %q", sess.AuthToken)
	}
}

func TestSessionEndHooks(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	var ended []string
	svc.OnEnd(func(sessionID string) { ended = append(ended, sessionID) })

	login := func() string {
		res, err := svc.Login(context.Background(), LoginInput{Username: "jane", Password: "pw"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		sess, err := svc.Resolve(res.Token)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		return sess.ID
	}

	first := login()
	if err := svc.Logout(first); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	second := login()
	svc.Invalidate(second)
	svc.Invalidate("")

	if len(ended) != 2 || ended[0] != first || ended[1] != second {
		t.Fatalf("ended = %v, want [%s %s]", ended, first, second)
	}
}
