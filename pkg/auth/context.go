package auth

import (
	"context"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// GetPrincipal extracts the authenticated principal from the context.
// Returns false if the request was not authenticated.
func GetPrincipal(ctx context.Context) (models.Principal, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return models.Principal{}, false
	}
	return claims.Principal(), true
}

// RequirePrincipal extracts the principal and returns apperrors.ErrUnauthenticated
// if the request was not authenticated.
func RequirePrincipal(ctx context.Context) (models.Principal, error) {
	p, ok := GetPrincipal(ctx)
	if !ok || p.ID == 0 {
		return models.Principal{}, apperrors.ErrUnauthenticated
	}
	return p, nil
}

// GetUserIDFromContext extracts the user ID from the context.
// Returns 0 if not authenticated.
func GetUserIDFromContext(ctx context.Context) int64 {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return 0
	}
	return p.ID
}
