package devserver

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/dinesync/internal/domain"
)

// context keys set by the auth middleware.
const (
	ctxUserEmail = "user_email"
	ctxUserName  = "user_name"
	ctxUserRole  = "user_role"
	ctxUserTier  = "user_tier"
)

// adminHeader is the header carrying the acting admin's email on
// privileged calls.
const adminHeader = "X-Admin-Email"

// Auth issues and verifies the fixture server's bearer tokens.
type Auth struct {
	secret []byte
	expiry time.Duration
}

// NewAuth creates an Auth with the given signing secret and token lifetime.
func NewAuth(secret string, expiry time.Duration) *Auth {
	return &Auth{secret: []byte(secret), expiry: expiry}
}

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

// IssueToken signs a token carrying the user's identity claims.
func (a *Auth) IssueToken(u *domain.HostelUser) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		Tier:  u.Tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// parseToken verifies the signature and expiry and returns the claims.
func (a *Auth) parseToken(raw string) (*tokenClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid or expired token", err)
	}
	return &claims, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// requireUser aborts the request unless it carries a valid bearer
// token. The token's identity lands in the gin context for handlers.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
		if raw == "" {
			fail(c, domain.NewAppError(domain.CodeUnauthorized, "authentication required", nil))
			c.Abort()
			return
		}
		claims, err := s.auth.parseToken(raw)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserName, claims.Name)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxUserTier, claims.Tier)
		c.Next()
	}
}

// requireMember aborts unless the token belongs to a paying member or
// an admin. Runs after requireUser.
func (s *Server) requireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) == domain.RoleAdmin {
			c.Next()
			return
		}
		switch c.GetString(ctxUserTier) {
		case domain.TierSilver, domain.TierGold, domain.TierPlatinum:
			c.Next()
		default:
			fail(c, domain.NewAppError(domain.CodeUnauthorized, "membership required for this action", nil))
			c.Abort()
		}
	}
}

// requireAdmin aborts unless the token role is admin AND the admin
// identity header names the same account. The doubled check mirrors
// how the real backend audits which admin performed an action.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) != domain.RoleAdmin {
			fail(c, domain.NewAppError(domain.CodeUnauthorized, "admin access required", nil))
			c.Abort()
			return
		}
		headerEmail := strings.ToLower(strings.TrimSpace(c.GetHeader(adminHeader)))
		if headerEmail == "" || headerEmail != strings.ToLower(c.GetString(ctxUserEmail)) {
			fail(c, domain.NewAppError(domain.CodeUnauthorized, "admin identity header missing or mismatched", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
