package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Identity is the result of a successful credential check.
type Identity struct {
	UserID      string
	Permissions []string
}

// TokenVerifier validates bearer tokens for the realtime handshake. It
// collapses jwt library failures into the two kinds clients can act on:
// expired (get a new token) and invalid (give up).
type TokenVerifier struct {
	secret string
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

func (v *TokenVerifier) Verify(token string) (*Identity, error) {
	claims, err := ParseToken(token, v.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return &Identity{UserID: claims.UserId, Permissions: claims.Permissions}, nil
}
