package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wilbur-realtime/internal/realtime"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier validates bearer credentials issued by the platform's auth
// service. Token issuance lives there; this side only verifies.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify checks the signature and expiry of a JWT and extracts the principal.
// The subject claim carries the user id; email doubles as the display label.
func (v *TokenVerifier) Verify(tokenString string) (realtime.Principal, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return realtime.Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return realtime.Principal{}, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return realtime.Principal{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return realtime.Principal{}, fmt.Errorf("%w: sub is not a uuid", ErrInvalidToken)
	}

	displayName, _ := claims["email"].(string)

	return realtime.Principal{ID: userID, DisplayName: displayName}, nil
}
