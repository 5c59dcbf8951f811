package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidInvite = errors.New("invalid or expired invite")

const inviteIssuer = "foodian"

// InviteClaims are carried by a signed family invite link.
type InviteClaims struct {
	FamilyID int64  `json:"fid"`
	Code     string `json:"code"`
	jwt.RegisteredClaims
}

// InviteSigner issues and verifies HS256 invite tokens.
type InviteSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewInviteSigner(secret string, ttl time.Duration) *InviteSigner {
	return &InviteSigner{secret: []byte(secret), ttl: ttl}
}

func (s *InviteSigner) Issue(familyID int64, code string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl).Truncate(time.Second)
	claims := InviteClaims{
		FamilyID: familyID,
		Code:     code,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    inviteIssuer,
			Subject:   strconv.FormatInt(familyID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign invite: %w", err)
	}
	return token, exp, nil
}

// Parse verifies the signature and expiry of an invite token.
func (s *InviteSigner) Parse(token string) (*InviteClaims, error) {
	var claims InviteClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(inviteIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.FamilyID == 0 {
		return nil, ErrInvalidInvite
	}
	return &claims, nil
}
