package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenService issues and validates session tokens.
type TokenService interface {
	// Issue signs a new token for the user and returns it with its claims.
	Issue(ctx context.Context, user *models.User) (string, *Claims, error)

	// Validate verifies the token signature, issuer and expiry, and checks
	// that the token has not been revoked.
	Validate(ctx context.Context, tokenString string) (*Claims, error)

	// Revoke invalidates the token described by claims until it expires.
	Revoke(ctx context.Context, claims *Claims) error
}

// TokenConfig configures the token service.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// tokenService implements TokenService with HS256-signed JWTs.
type tokenService struct {
	cfg         TokenConfig
	revocations RevocationStore
	now         func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg TokenConfig, revocations RevocationStore) TokenService {
	return &tokenService{
		cfg:         cfg,
		revocations: revocations,
		now:         time.Now,
	}
}

// Issue signs a new token for the user.
func (s *tokenService) Issue(ctx context.Context, user *models.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, claims, nil
}

// Validate verifies a token and returns its claims.
func (s *tokenService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if err := claims.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke invalidates the token until its expiry.
func (s *tokenService) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return fmt.Errorf("%w: missing token ID", ErrInvalidToken)
	}

	until := s.now().Add(s.cfg.TTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}

	if err := s.revocations.Revoke(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Ensure tokenService implements TokenService at compile time.
var _ TokenService = (*tokenService)(nil)
