package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"estimator/internal/amqp"
	"estimator/internal/auth"
	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/gateway/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, *msg)
	return p.err
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Op+":"+m.ID)
	}
	return out
}

func TestPublishingBackendAnnouncesEstimationChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	b := NewPublishingBackend(memory.New(), pub)

	e, err := b.CreateEstimation(ctx, core.Estimation{Name: "Quote"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sec, _ := b.AddSection(ctx, e.ID, core.NewSection())
	_, _ = b.AddItem(ctx, e.ID, sec.ID, core.Item{Title: "x"})
	if _, err := b.CreateProject(ctx, core.Project{Name: "P"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := b.DeleteEstimation(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{"created:" + e.ID, "updated:" + e.ID, "updated:" + e.ID, "deleted:" + e.ID}
	got := pub.ops()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
	if pub.msgs[0].Resource != amqp.ResourceEstimation {
		t.Fatalf("resource = %q", pub.msgs[0].Resource)
	}
}

func TestPublishingBackendFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("failed store call publishes nothing", func(t *testing.T) {
		pub := &recordingPublisher{}
		b := NewPublishingBackend(memory.New(), pub)
		if err := b.DeleteEstimation(ctx, "missing"); !errors.Is(err, gateway.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if len(pub.ops()) != 0 {
			t.Fatalf("unexpected messages %v", pub.ops())
		}
	})

	t.Run("publish failure does not fail the change", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		b := NewPublishingBackend(memory.New(), pub)
		if _, err := b.CreateEstimation(ctx, core.Estimation{Name: "Quote"}); err != nil {
			t.Fatalf("create should succeed, got %v", err)
		}
	})

	t.Run("nil publisher", func(t *testing.T) {
		b := NewPublishingBackend(memory.New(), nil)
		if _, err := b.CreateEstimation(ctx, core.Estimation{Name: "Quote"}); err != nil {
			t.Fatalf("create should succeed, got %v", err)
		}
	})
}

func newAuthService(t *testing.T, store CredentialStore) (*AuthService, *gateway.Session) {
	t.Helper()
	accounts := auth.NewService(memory.New(), auth.NewTokens("secret", 0))
	session := gateway.NewSession()
	return NewAuthService(accounts, session, store), session
}

func TestAuthServiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := FileCredentialStore{Path: filepath.Join(t.TempDir(), "estimator", "session.json")}
	svc, session := newAuthService(t, store)

	u, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !session.Authenticated() || session.User().ID != u.ID {
		t.Fatalf("register should sign in")
	}

	svc.Logout(ctx)
	if session.Authenticated() {
		t.Fatalf("logout should clear the session")
	}
	if svc.Restore(ctx) {
		t.Fatalf("logout should clear the saved credential")
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong"); gateway.Message(err, "") != "Invalid credentials" {
		t.Fatalf("unexpected login error %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	fresh := gateway.NewSession()
	restored := NewAuthService(nil, fresh, store)
	if !restored.Restore(ctx) || fresh.Token() != session.Token() {
		t.Fatalf("credential should survive a restart")
	}
}

func TestAuthServiceHandleUnauthorized(t *testing.T) {
	ctx := context.Background()
	svc, session := newAuthService(t, nil)
	if _, err := svc.Register(ctx, "Ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if svc.HandleUnauthorized(ctx, gateway.NotFound("Estimation")) || !session.Authenticated() {
		t.Fatalf("a 404 must not sign out")
	}
	if !svc.HandleUnauthorized(ctx, gateway.NewError(401, "Token expired")) || session.Authenticated() {
		t.Fatalf("a 401 should sign out")
	}
}

func TestAuthServiceForgotPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)
	if _, err := svc.ForgotPassword(ctx, "nobody@example.com"); gateway.Message(err, "") != "User not found" {
		t.Fatalf("unexpected error %v", err)
	}
	_, _ = svc.Register(ctx, "Ada", "ada@example.com", "pw")
	msg, err := svc.ForgotPassword(ctx, "ada@example.com")
	if err != nil || msg != auth.ResetMessage {
		t.Fatalf("forgot password = %q, %v", msg, err)
	}
}
