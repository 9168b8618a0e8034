// Package token mints and validates the opaque session tokens that bind a
// user identity to a validity window.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldmon/fieldmon/util/common"
)

// SessionToken is the persisted session record. Email is a cross-check
// against the stored user, not an authorization input.
type SessionToken struct {
	UserID    int       `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiry"`
}

// Service signs and verifies session tokens with an HMAC secret and a
// rolling lifetime.
type Service struct {
	secret   []byte
	lifetime time.Duration
}

func NewService(secret []byte, lifetime time.Duration) *Service {
	return &Service{secret: secret, lifetime: lifetime}
}

// Generate mints a fresh token for the user. The jti claim makes every token
// unique even for back-to-back logins of the same user. Persistence is the
// caller's job.
func (s *Service) Generate(userID int, email string) (*SessionToken, error) {
	expiresAt := time.Now().Add(s.lifetime)
	claims := jwt.MapClaims{
		"uid":   userID,
		"email": email,
		"jti":   uuid.NewString(),
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &SessionToken{
		UserID:    userID,
		Email:     email,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate reports whether the token string is well-formed, untampered and
// unexpired. Any parse failure counts as invalid; arbitrary input never
// panics.
func (s *Service) Validate(tokenString string) bool {
	if tokenString == "" {
		return false
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.NewErrorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	return err == nil && parsed.Valid
}
