package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

// CredentialStore persists the signed-in credential between runs.
type CredentialStore interface {
	Load() (gateway.Credential, bool, error)
	Save(gateway.Credential) error
	Clear() error
}

// AuthService signs a client in against a remote account store and keeps the
// resulting credential in the session the gateway clients read from.
type AuthService struct {
	accounts gateway.Accounts
	session  *gateway.Session
	store    CredentialStore
}

// NewAuthService returns a service writing into session. store may be nil.
func NewAuthService(accounts gateway.Accounts, session *gateway.Session, store CredentialStore) *AuthService {
	return &AuthService{accounts: accounts, session: session, store: store}
}

// Restore loads a previously saved credential into the session. It reports
// whether one was found.
func (s *AuthService) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	cred, ok, err := s.store.Load()
	if err != nil {
		slog.WarnContext(ctx, "Failed to read saved credential", "error", err)
		return false
	}
	if !ok || cred.Token == "" {
		return false
	}
	s.session.SetCredential(cred.Token, cred.User)
	return true
}

func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, error) {
	cred, err := s.accounts.Login(ctx, email, password)
	if err != nil {
		s.session.ClearCredential()
		return core.User{}, gateway.Normalize(err, "Login failed")
	}
	s.signIn(ctx, cred)
	return cred.User, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (core.User, error) {
	cred, err := s.accounts.Register(ctx, name, email, password)
	if err != nil {
		s.session.ClearCredential()
		return core.User{}, gateway.Normalize(err, "Registration failed")
	}
	s.signIn(ctx, cred)
	return cred.User, nil
}

// ForgotPassword returns the confirmation message of the account store.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	msg, err := s.accounts.ForgotPassword(ctx, email)
	if err != nil {
		return "", gateway.Normalize(err, "Failed to send reset instructions")
	}
	return msg, nil
}

// Logout clears the session and any saved credential.
func (s *AuthService) Logout(ctx context.Context) {
	s.session.ClearCredential()
	if s.store == nil {
		return
	}
	if err := s.store.Clear(); err != nil {
		slog.WarnContext(ctx, "Failed to clear saved credential", "error", err)
	}
}

// HandleUnauthorized logs out when err reports an expired or missing
// credential, and reports whether it did.
func (s *AuthService) HandleUnauthorized(ctx context.Context, err error) bool {
	if !errors.Is(err, gateway.ErrUnauthorized) {
		return false
	}
	slog.InfoContext(ctx, "Credential rejected, signing out", "user_id", s.session.User().ID)
	s.Logout(ctx)
	return true
}

func (s *AuthService) signIn(ctx context.Context, cred gateway.Credential) {
	s.session.SetCredential(cred.Token, cred.User)
	if s.store == nil {
		return
	}
	if err := s.store.Save(cred); err != nil {
		slog.WarnContext(ctx, "Failed to save credential", "error", err)
	}
}

// FileCredentialStore keeps the credential as JSON in a user-only file.
type FileCredentialStore struct {
	Path string
}

var _ CredentialStore = FileCredentialStore{}

func (f FileCredentialStore) Load() (gateway.Credential, bool, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return gateway.Credential{}, false, nil
	}
	if err != nil {
		return gateway.Credential{}, false, fmt.Errorf("read credential file: %w", err)
	}
	var cred gateway.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return gateway.Credential{}, false, fmt.Errorf("parse credential file: %w", err)
	}
	return cred, true, nil
}

func (f FileCredentialStore) Save(cred gateway.Credential) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := os.WriteFile(f.Path, b, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (f FileCredentialStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
