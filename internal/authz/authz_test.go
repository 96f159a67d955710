package authz

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	identity := &Identity{UserID: 42, IsStaff: true}
	ctx := ContextWithIdentity(context.Background(), identity)

	got := IdentityFromContext(ctx)
	if got == nil || got.UserID != 42 || !got.IsStaff {
		t.Errorf("IdentityFromContext = %+v, want %+v", got, identity)
	}
}

func TestIdentityFromContextMissing(t *testing.T) {
	if got := IdentityFromContext(context.Background()); got != nil {
		t.Errorf("expected nil identity, got %+v", got)
	}
	if got := IdentityFromContext(nil); got != nil {
		t.Errorf("expected nil identity for nil ctx, got %+v", got)
	}
}

func TestRequireIdentity(t *testing.T) {
	if _, err := RequireIdentity(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}

	ctx := ContextWithIdentity(context.Background(), &Identity{UserID: 7})
	identity, err := RequireIdentity(ctx)
	if err != nil {
		t.Fatalf("RequireIdentity: %v", err)
	}
	if identity.UserID != 7 {
		t.Errorf("UserID = %d, want 7", identity.UserID)
	}
}

func TestCanActOn(t *testing.T) {
	owner := &Identity{UserID: 1}
	staff := &Identity{UserID: 2, IsStaff: true}
	other := &Identity{UserID: 3}

	if !CanActOn(owner, 1) {
		t.Error("owner should act on own booking")
	}
	if !CanActOn(staff, 1) {
		t.Error("staff should override ownership")
	}
	if CanActOn(other, 1) {
		t.Error("non-owner non-staff should be denied")
	}
	if CanActOn(nil, 1) {
		t.Error("nil identity should be denied")
	}
}

func TestVerifyOperatorKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("front-desk-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if !VerifyOperatorKey(string(hash), "front-desk-key") {
		t.Error("correct key should verify")
	}
	if VerifyOperatorKey(string(hash), "wrong") {
		t.Error("wrong key should fail")
	}
	if VerifyOperatorKey("", "front-desk-key") {
		t.Error("unconfigured hash should reject every key")
	}
	if VerifyOperatorKey(string(hash), "") {
		t.Error("empty key should fail")
	}
}
