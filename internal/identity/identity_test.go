package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simp-lee/dinesync/internal/domain"
)

func signToken(t *testing.T, c claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestFromToken(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name      string
		token     string
		wantErr   bool
		wantEmail string
		wantRole  string
		wantTier  string
	}{
		{
			name: "full claims",
			token: signToken(t, claims{
				Email: "gold@hostel.test", Name: "Asha", Role: "admin", Tier: "Gold",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			wantEmail: "gold@hostel.test", wantRole: "admin", wantTier: "Gold",
		},
		{
			name: "defaults applied",
			token: signToken(t, claims{
				Email:            "plain@hostel.test",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			wantEmail: "plain@hostel.test", wantRole: domain.RoleUser, wantTier: domain.TierNone,
		},
		{
			name: "subject fallback for email",
			token: signToken(t, claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "sub@hostel.test", ExpiresAt: future},
			}),
			wantEmail: "sub@hostel.test", wantRole: domain.RoleUser, wantTier: domain.TierNone,
		},
		{
			name: "bearer prefix stripped",
			token: "Bearer " + signToken(t, claims{
				Email:            "b@hostel.test",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			wantEmail: "b@hostel.test", wantRole: domain.RoleUser, wantTier: domain.TierNone,
		},
		{
			name: "expired token rejected",
			token: signToken(t, claims{
				Email:            "old@hostel.test",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			}),
			wantErr: true,
		},
		{
			name: "no identity rejected",
			token: signToken(t, claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			}),
			wantErr: true,
		},
		{name: "empty token", token: "", wantErr: true},
		{name: "garbage token", token: "not-a-jwt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromToken(tt.token)
			if tt.wantErr {
				if !domain.IsUnauthorized(err) {
					t.Errorf("err = %v; want unauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Email != tt.wantEmail {
				t.Errorf("email = %q; want %q", s.Email, tt.wantEmail)
			}
			if s.Role != tt.wantRole {
				t.Errorf("role = %q; want %q", s.Role, tt.wantRole)
			}
			if s.Tier != tt.wantTier {
				t.Errorf("tier = %q; want %q", s.Tier, tt.wantTier)
			}
			if s.Token == "" {
				t.Error("session should keep the raw token")
			}
		})
	}
}

func TestSession_Gating(t *testing.T) {
	tests := []struct {
		name       string
		session    *Session
		wantAdmin  bool
		wantMember bool
		wantBadge  string
	}{
		{"nil session", nil, false, false, "Bronze"},
		{"unsubscribed user", &Session{Role: domain.RoleUser, Tier: domain.TierNone}, false, false, "Bronze"},
		{"silver member", &Session{Role: domain.RoleUser, Tier: domain.TierSilver}, false, true, "Silver"},
		{"platinum admin", &Session{Role: domain.RoleAdmin, Tier: domain.TierPlatinum}, true, true, "Platinum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsAdmin(); got != tt.wantAdmin {
				t.Errorf("IsAdmin = %v; want %v", got, tt.wantAdmin)
			}
			if got := tt.session.IsMember(); got != tt.wantMember {
				t.Errorf("IsMember = %v; want %v", got, tt.wantMember)
			}
			if got := tt.session.Badge(); got != tt.wantBadge {
				t.Errorf("Badge = %q; want %q", got, tt.wantBadge)
			}
		})
	}
}
