// Package authz carries the acting user's identity through request contexts.
// Authentication itself happens upstream; this package only answers ownership
// and staff-override questions for the booking lifecycle.
package authz

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Identity is the acting user as supplied by the external auth collaborator.
type Identity struct {
	UserID  int64
	IsStaff bool
}

type identityContextKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the Identity stored in ctx. It returns nil if
// ctx is nil, if no identity is stored, or if the stored value has a
// different type.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// RequireIdentity returns the acting identity or ErrUnauthenticated.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	return identity, nil
}

// CanActOn reports whether the identity may cancel or modify a booking owned
// by ownerID: owners may, and staff may override.
func CanActOn(identity *Identity, ownerID int64) bool {
	if identity == nil {
		return false
	}
	return identity.IsStaff || identity.UserID == ownerID
}

// VerifyOperatorKey checks a presented operator key against the configured
// bcrypt hash. An empty hash means no operator key is configured and every
// presented key is rejected.
func VerifyOperatorKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
