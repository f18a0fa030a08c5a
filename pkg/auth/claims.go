// Package auth provides session-token authentication for nautilus-reporting.
// It issues and validates signed tokens, hashes passwords and guards routes.
package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing token claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw token string.
	TokenKey contextKey = "token"
)

// Claims represents the session token claims.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, jti, etc.)
// and adds the principal's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

// Principal returns the authenticated actor described by the claims.
func (c *Claims) Principal() models.Principal {
	return models.Principal{
		ID:       c.UserID,
		Username: c.Username,
		Role:     c.Role,
	}
}

// validate checks the custom claims after signature and registered-claim validation.
func (c *Claims) validate() error {
	if c.UserID <= 0 {
		return fmt.Errorf("missing user ID in token")
	}
	if c.Subject != strconv.FormatInt(c.UserID, 10) {
		return fmt.Errorf("token subject does not match user ID")
	}
	if !models.IsValidRole(c.Role) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, c.Role)
	}
	if c.ID == "" {
		return fmt.Errorf("missing token ID")
	}
	return nil
}

// GetClaims retrieves token claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithClaims stores claims and the raw token in the context.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}
