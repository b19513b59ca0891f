package account

import (
	"context"
	"log/slog"

	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/pkg"
	"github.com/simp-lee/dinesync/internal/rest"
)

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterRequest is the account creation form.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Service signs users in and out. A successful login installs the
// issued token on the shared API client, so every subsequent call
// carries it.
type Service struct {
	api *rest.Client
	log *slog.Logger
}

// NewService creates an account service.
func NewService(api *rest.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, log: log}
}

// Login exchanges credentials for a token and returns the session
// carried in its claims.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*identity.Session, error) {
	if err := pkg.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := s.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}

	session, err := identity.FromToken(resp.Token)
	if err != nil {
		return nil, err
	}
	s.api.SetToken(session.Token)

	s.log.Info("signed in",
		slog.String("email", session.Email),
		slog.String("role", session.Role),
	)
	return session, nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identity.Session, error) {
	if err := pkg.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := s.api.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}

	session, err := identity.FromToken(resp.Token)
	if err != nil {
		return nil, err
	}
	s.api.SetToken(session.Token)
	return session, nil
}

// Logout clears the installed token. Tokens are stateless, so there is
// nothing to revoke server-side; they simply expire.
func (s *Service) Logout() {
	s.api.SetToken("")
}
