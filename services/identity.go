package services

import (
	"context"

	"github.com/PrayerLoop/recordsync/models"
)

// IdentityProvider exposes the principal behind the current operation.
type IdentityProvider interface {
	CurrentPrincipal(ctx context.Context) (*models.Principal, bool)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	if !ok || p.ID == "" {
		return nil, false
	}
	return &p, true
}

// ContextIdentity reads the principal that CheckAuth placed on the request
// context.
type ContextIdentity struct{}

func (ContextIdentity) CurrentPrincipal(ctx context.Context) (*models.Principal, bool) {
	return PrincipalFromContext(ctx)
}

// StaticIdentity always answers with the same principal, or none when nil.
type StaticIdentity struct {
	Principal *models.Principal
}

func (s StaticIdentity) CurrentPrincipal(context.Context) (*models.Principal, bool) {
	if s.Principal == nil {
		return nil, false
	}
	p := *s.Principal
	return &p, true
}
