package auth

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers any access token that fails signature, expiry, or
// claim validation.
var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims is the subset of the provider-issued access token consumed locally.
type AccessClaims struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// ParseAccessToken validates an HS256 access token against the provider's JWT
// secret and extracts the subject. Expiry is enforced by the parser.
func ParseAccessToken(raw string, secret []byte) (*AccessClaims, error) {
	token, err := jwtv5.Parse(raw, func(*jwtv5.Token) (any, error) {
		return secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	out := &AccessClaims{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	return out, nil
}
