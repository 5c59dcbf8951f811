package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestInviteRoundTrip(t *testing.T) {
	s := NewInviteSigner("secret", 7*24*time.Hour)
	now := time.Now()

	token, exp, err := s.Issue(42, "ABCD2345", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := exp.Sub(now); d < 7*24*time.Hour-time.Second || d > 7*24*time.Hour {
		t.Errorf("expiry offset = %v", d)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.FamilyID != 42 || claims.Code != "ABCD2345" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestInviteRejects(t *testing.T) {
	s := NewInviteSigner("secret", time.Hour)

	expired, _, err := s.Issue(1, "CODE", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	otherKey, _, _ := NewInviteSigner("other", time.Hour).Issue(1, "CODE", time.Now())

	none := jwt.NewWithClaims(jwt.SigningMethodNone, InviteClaims{
		FamilyID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    inviteIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"alg none":  unsigned,
		"garbage":   "not.a.token",
		"empty":     "",
	} {
		if _, err := s.Parse(token); !errors.Is(err, ErrInvalidInvite) {
			t.Errorf("%s: err = %v, want ErrInvalidInvite", name, err)
		}
	}
}
