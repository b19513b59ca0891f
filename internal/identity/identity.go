// Package identity is the boundary to the external authentication
// provider. It turns a provider-issued bearer token into a read-only
// Session injected into each resource module at construction. The core
// never mutates identity state; it only reads it to gate member-only
// actions client-side and to attach admin-identity headers. The server
// remains the authority on every permission.
package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simp-lee/dinesync/internal/domain"
)

// Session is the process-wide read-only identity of the signed-in user.
// A nil *Session means signed out.
type Session struct {
	Email string
	Name  string
	Role  string
	Tier  string
	// Token is the raw bearer token attached to authorized calls.
	Token string
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == domain.RoleAdmin
}

// IsMember reports whether the user holds a paid membership tier.
// Like and request actions are gated on this client-side; the gate is
// purely cosmetic; the server re-checks.
func (s *Session) IsMember() bool {
	if s == nil {
		return false
	}
	switch s.Tier {
	case domain.TierSilver, domain.TierGold, domain.TierPlatinum:
		return true
	default:
		return false
	}
}

// Badge returns the display badge for the session's subscription state.
func (s *Session) Badge() string {
	if s == nil || s.Tier == "" || s.Tier == domain.TierNone {
		return "Bronze"
	}
	return s.Tier
}

// claims is the provider's token claim shape.
type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

// FromToken extracts the session from a provider-issued JWT. The token
// signature is not verified here: the client holds no signing secret,
// and the claims drive display and UX gating only. Every privileged
// call carries the raw token for the server to verify. Expired tokens
// are rejected so the UI prompts a fresh sign-in instead of issuing
// calls doomed to 401.
func FromToken(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "missing auth token", nil)
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "malformed auth token", err)
	}

	if c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()) {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "auth token expired", nil)
	}

	email := c.Email
	if email == "" {
		email = c.Subject
	}
	if email == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "auth token carries no identity", nil)
	}

	role := c.Role
	if role == "" {
		role = domain.RoleUser
	}
	tier := c.Tier
	if tier == "" {
		tier = domain.TierNone
	}

	return &Session{
		Email: email,
		Name:  c.Name,
		Role:  role,
		Tier:  tier,
		Token: token,
	}, nil
}
