// Package auth implements the account side of the mock server: password
// hashing, bearer tokens and the login/register/forgot-password flow.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

const ResetMessage = "Password reset instructions sent to your email"

// Account is a stored user with its password hash.
type Account struct {
	core.User
	PasswordHash string `json:"passwordHash"`
}

// AccountStore persists accounts. AccountByEmail returns an error matching
// gateway.ErrNotFound when no account exists.
type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) (Account, error)
	AccountByEmail(ctx context.Context, email string) (Account, error)
}

// Service implements gateway.Accounts on top of an AccountStore.
type Service struct {
	store  AccountStore
	tokens *Tokens
}

var _ gateway.Accounts = (*Service)(nil)

func NewService(store AccountStore, tokens *Tokens) *Service {
	return &Service{store: store, tokens: tokens}
}

// Tokens returns the issuer used to sign credentials.
func (s *Service) Tokens() *Tokens { return s.tokens }

func (s *Service) Register(ctx context.Context, name, email, password string) (gateway.Credential, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return gateway.Credential{}, gateway.NewError(http.StatusBadRequest, "Email and password are required")
	}
	if _, err := s.store.AccountByEmail(ctx, email); err == nil {
		return gateway.Credential{}, gateway.NewError(http.StatusBadRequest, "User already exists")
	} else if !errors.Is(err, gateway.ErrNotFound) {
		return gateway.Credential{}, internal(ctx, "Registration error", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return gateway.Credential{}, internal(ctx, "Registration error", err)
	}
	acc, err := s.store.CreateAccount(ctx, Account{
		User:         core.User{Name: strings.TrimSpace(name), Email: email},
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return gateway.Credential{}, gateway.NewError(http.StatusBadRequest, "User already exists")
		}
		return gateway.Credential{}, internal(ctx, "Registration error", err)
	}
	return s.credential(ctx, acc.User)
}

func (s *Service) Login(ctx context.Context, email, password string) (gateway.Credential, error) {
	acc, err := s.store.AccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return gateway.Credential{}, gateway.NewError(http.StatusUnauthorized, "Invalid credentials")
		}
		return gateway.Credential{}, internal(ctx, "Login error", err)
	}
	if !CheckPassword(password, acc.PasswordHash) {
		return gateway.Credential{}, gateway.NewError(http.StatusUnauthorized, "Invalid credentials")
	}
	return s.credential(ctx, acc.User)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	if _, err := s.store.AccountByEmail(ctx, normalizeEmail(email)); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return "", gateway.NewError(http.StatusNotFound, "User not found")
		}
		return "", internal(ctx, "Forgot password error", err)
	}
	// Delivery is out of scope; the request is only acknowledged.
	slog.InfoContext(ctx, "Password reset requested", "email", email)
	return ResetMessage, nil
}

// Authenticate returns the user id a bearer token was issued for.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

func (s *Service) credential(ctx context.Context, u core.User) (gateway.Credential, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return gateway.Credential{}, internal(ctx, "Token error", err)
	}
	return gateway.Credential{Token: token, User: u}, nil
}

func internal(ctx context.Context, msg string, err error) error {
	slog.ErrorContext(ctx, msg, "error", err)
	return &gateway.Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
