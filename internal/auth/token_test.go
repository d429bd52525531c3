package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testIdentity(role domain.Role) *domain.Identity {
	return &domain.Identity{
		ID:   "2f0c7a5e-0000-4000-8000-000000000001",
		Name: "Ana",
		Role: role,
	}
}

func TestIssueAndParse(t *testing.T) {
	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 0)
	tm.now = fixedClock(issued)

	identity := testIdentity(domain.RoleBroker)
	identity.Settings = withBrokerAccess(true)

	token, expiresAt, err := tm.Issue(identity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if want := issued.Add(30 * 24 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.AccountID != identity.ID || claims.Role != domain.RoleBroker {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.Settings.General.BrokerAdminAccess {
		t.Fatal("settings snapshot lost")
	}

	session := claims.Session()
	if !session.ExpiresAt.Equal(expiresAt) || !session.IssuedAt.Equal(issued) {
		t.Fatalf("session times = %v/%v", session.IssuedAt, session.ExpiresAt)
	}
}

func TestParseExpired(t *testing.T) {
	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 0)
	tm.now = fixedClock(issued)

	token, _, err := tm.Issue(testIdentity(domain.RoleAdmin))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tm.now = fixedClock(issued.Add(29 * 24 * time.Hour))
	if _, err := tm.Parse(token); err != nil {
		t.Fatalf("token should still be valid on day 29: %v", err)
	}

	tm.now = fixedClock(issued.Add(30*24*time.Hour + time.Second))
	if _, err := tm.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	foreign, _, err := other.Issue(testIdentity(domain.RoleAdmin))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := tm.Parse(foreign); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	valid, _, err := tm.Issue(testIdentity(domain.RoleAdmin))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	support, _, err := tm.Issue(testIdentity(domain.RoleSupport))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	validParts := strings.Split(valid, ".")
	supportParts := strings.Split(support, ".")
	tampered := strings.Join([]string{validParts[0], validParts[1], supportParts[2]}, ".")
	if validParts[1] == supportParts[1] {
		t.Fatal("payloads should differ")
	}
	if _, err := tm.Parse(tampered); err == nil {
		t.Fatal("tampered token must be rejected")
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		AccountID: "x",
		Role:      domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tm.Parse(noneToken); err == nil {
		t.Fatal("alg none must be rejected")
	}

	if _, err := tm.Parse("garbage"); err == nil {
		t.Fatal("garbage must be rejected")
	}
}

func TestParseRequiresExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		AccountID:        "x",
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.Parse(signed); err == nil {
		t.Fatal("token without exp must be rejected")
	}
}

func TestIssueRequiresIdentity(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	if _, _, err := tm.Issue(nil); err == nil {
		t.Fatal("expected error for nil identity")
	}
	if _, _, err := tm.Issue(&domain.Identity{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

// A token keeps the role it was issued with even after the account changes.
func TestSessionIsSnapshot(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	identity := testIdentity(domain.RoleUser)

	token, _, err := tm.Issue(identity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	identity.Role = domain.RoleBroker

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("role = %s, want USER", claims.Role)
	}
}
