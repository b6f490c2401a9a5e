// Package service holds the authentication workflows and the token
// authority. It talks to storage through the narrow interfaces below;
// internal/repo provides the mongo implementations and tests substitute
// in-memory fakes.
package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schedly/auth-service/internal/domain"
	"github.com/schedly/auth-service/internal/oauth"
)

// UserDirectory is the canonical user store. Find* methods return (nil, nil)
// when no record matches; only the FindCredential* reads include the
// password hash.
type UserDirectory interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindCredentialByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindCredentialByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindUserByProviderID(ctx context.Context, provider domain.Provider, sub string) (*domain.User, error)
	AttachProviderID(ctx context.Context, id primitive.ObjectID, provider domain.Provider, sub string) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

// TokenRegistry is the revocation registry. A session token authorizes only
// while its (user, token) row exists.
type TokenRegistry interface {
	SaveSessionToken(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error
	SessionTokenExists(ctx context.Context, userID primitive.ObjectID, token string) (bool, error)
	DeleteSessionToken(ctx context.Context, userID primitive.ObjectID, token string) (bool, error)
	DeleteSessionTokensByUser(ctx context.Context, userID primitive.ObjectID) error
}

// StateStore keeps one-time OAuth state nonces for the browser flow.
type StateStore interface {
	SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

// GoogleVerifier is the Google adapter surface the orchestrator needs.
type GoogleVerifier interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Claim, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (*oauth.Claim, error)
}

// AppleVerifier is the Apple adapter surface the orchestrator needs.
type AppleVerifier interface {
	Verify(ctx context.Context, proof oauth.AppleProof) (*oauth.Claim, error)
}
