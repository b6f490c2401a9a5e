package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schedly/auth-service/internal/domain"
	"github.com/schedly/auth-service/internal/metrics"
	"github.com/schedly/auth-service/internal/security"
)

// TokenAuthority mints and revokes session tokens. A token is good only when
// all three hold: valid signature, unexpired, and a live registry row for
// (user, token). The registry is what makes sign-out effective before the
// token's own expiry.
type TokenAuthority struct {
	keys     *security.Keyring
	registry TokenRegistry
	ttl      time.Duration
}

func NewTokenAuthority(keys *security.Keyring, registry TokenRegistry, ttl time.Duration) *TokenAuthority {
	return &TokenAuthority{keys: keys, registry: registry, ttl: ttl}
}

// Issue signs a token for userID and persists its registry row. The token is
// returned only after the write succeeds; on write failure the minted string
// is dropped so no valid-looking orphan escapes. The write runs detached
// from request cancellation: a token minted but never returned is acceptable
// garbage, a token returned but never persisted is not.
func (a *TokenAuthority) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	now := time.Now()
	tok, err := a.keys.MakeAccess(userID.Hex(), a.ttl)
	if err != nil {
		return "", fmt.Errorf("sign token: %v: %w", err, domain.ErrInternal)
	}
	if err := a.registry.SaveSessionToken(context.WithoutCancel(ctx), userID, tok, now.Add(a.ttl)); err != nil {
		return "", fmt.Errorf("register token: %v: %w", err, domain.ErrInternal)
	}
	metrics.TokensIssued.Inc()
	return tok, nil
}

// Validate resolves a raw token to its owning user id. Signature and expiry
// are checked first (local, cheap), registry membership second (one storage
// round-trip, which is what makes revocation immediately visible). Both
// failure causes collapse into ErrUnauthorized.
func (a *TokenAuthority) Validate(ctx context.Context, raw string) (primitive.ObjectID, error) {
	c, err := a.keys.ParseAccess(raw)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	userID, err := primitive.ObjectIDFromHex(c.UID)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	ok, err := a.registry.SessionTokenExists(ctx, userID, raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("registry lookup: %v: %w", err, domain.ErrInternal)
	}
	if !ok {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	return userID, nil
}

// Revoke deletes the registry row for raw. A malformed token, or one the
// registry never held, is ErrUnauthorized: signing out a token the system
// doesn't recognize is suspicious input, not a no-op.
func (a *TokenAuthority) Revoke(ctx context.Context, raw string) (primitive.ObjectID, error) {
	c, err := a.keys.ParseAccess(raw)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	userID, err := primitive.ObjectIDFromHex(c.UID)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	deleted, err := a.registry.DeleteSessionToken(context.WithoutCancel(ctx), userID, raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("registry delete: %v: %w", err, domain.ErrInternal)
	}
	if !deleted {
		return primitive.NilObjectID, domain.ErrUnauthorized
	}
	metrics.TokensRevoked.Inc()
	return userID, nil
}

// RevokeAll voids every live session of a user. Used by account removal.
func (a *TokenAuthority) RevokeAll(ctx context.Context, userID primitive.ObjectID) error {
	if err := a.registry.DeleteSessionTokensByUser(context.WithoutCancel(ctx), userID); err != nil {
		return fmt.Errorf("registry purge: %v: %w", err, domain.ErrInternal)
	}
	return nil
}
