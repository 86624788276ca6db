package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// AuthService issues and validates the bearer tokens guarding the history
// endpoints.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, ttl time.Duration, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{secret: []byte(secret), ttl: ttl, logger: logger}
}

// GenerateToken issues a signed token with the configured lifetime.
func (a *AuthService) GenerateToken() (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	a.logger.Auth().Debug("Token issued", "expiresAt", now.Add(a.ttl))
	return signed, nil
}

// ValidateToken checks a bearer token's signature and expiry.
func (a *AuthService) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
