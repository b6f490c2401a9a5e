package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/schedly/auth-service/internal/domain"
	"github.com/schedly/auth-service/internal/log"
	"github.com/schedly/auth-service/internal/metrics"
	"github.com/schedly/auth-service/internal/oauth"
	"github.com/schedly/auth-service/internal/queue"
	"github.com/schedly/auth-service/internal/security"
)

const oauthStateTTL = 10 * time.Minute

// AuthService drives sign-up, sign-in, federated login, sign-out and account
// removal. Provider verification always happens before any storage write so
// no store operation waits on a third-party round-trip.
type AuthService struct {
	users  UserDirectory
	tokens *TokenAuthority
	google GoogleVerifier
	apple  AppleVerifier
	states StateStore
	events queue.Publisher
}

func NewAuthService(users UserDirectory, tokens *TokenAuthority, google GoogleVerifier, apple AppleVerifier, states StateStore, events queue.Publisher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		google: google,
		apple:  apple,
		states: states,
		events: events,
	}
}

// AuthResult is what a successful login returns: the bearer token, and for
// federated logins a non-sensitive profile projection.
type AuthResult struct {
	AccessToken string
	User        domain.Profile
}

// SignUp creates a local user. No token is issued here; sign-up and sign-in
// are separate steps.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %v: %w", err, domain.ErrInternal)
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %v: %w", err, domain.ErrInternal)
	}
	u := &domain.User{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name})
	return u, nil
}

// SignIn exchanges local credentials for a session token. Unknown email and
// wrong password produce the same error so callers can't enumerate accounts.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)

	u, err := s.users.FindCredentialByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup credential: %v: %w", err, domain.ErrInternal)
	}
	if u == nil || u.PasswordHash == "" || !security.CheckPassword(u.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("local", "denied").Inc()
		return "", domain.ErrUnauthorized
	}

	tok, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return "", err
	}
	metrics.LoginsTotal.WithLabelValues("local", "ok").Inc()
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Email: u.Email, Provider: "local"})
	return tok, nil
}

// SignOut revokes the presented bearer token.
func (s *AuthService) SignOut(ctx context.Context, rawToken string) error {
	userID, err := s.tokens.Revoke(ctx, rawToken)
	if err != nil {
		return err
	}
	s.publish(ctx, queue.KeyUserSignedOut, queue.UserSignedOut{UserID: userID.Hex()})
	return nil
}

// GoogleLoginURL starts the browser flow: a one-time state nonce is parked in
// the state store and baked into the consent URL.
func (s *AuthService) GoogleLoginURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.states.SaveOAuthState(ctx, state, oauthStateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %v: %w", err, domain.ErrInternal)
	}
	return s.google.AuthURL(state), nil
}

// GoogleCallback finishes the browser flow. The state must consume exactly
// once; the code exchange and user-info fetch happen before any store write.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*AuthResult, error) {
	ok, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %v: %w", err, domain.ErrInternal)
	}
	if !ok {
		metrics.LoginsTotal.WithLabelValues("google", "denied").Inc()
		return nil, domain.ErrUnauthorized
	}
	claim, err := s.google.Exchange(ctx, code)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("google", "denied").Inc()
		return nil, err
	}
	return s.loginWithClaim(ctx, claim, domain.ProviderGoogle)
}

// GoogleToken verifies a provider access token handed over directly by a
// non-browser client.
func (s *AuthService) GoogleToken(ctx context.Context, accessToken string) (*AuthResult, error) {
	claim, err := s.google.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("google", "denied").Inc()
		return nil, err
	}
	return s.loginWithClaim(ctx, claim, domain.ProviderGoogle)
}

// AppleLogin verifies an Apple identity proof and runs the shared federated
// flow.
func (s *AuthService) AppleLogin(ctx context.Context, proof oauth.AppleProof) (*AuthResult, error) {
	claim, err := s.apple.Verify(ctx, proof)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("apple", "denied").Inc()
		return nil, err
	}
	return s.loginWithClaim(ctx, claim, domain.ProviderApple)
}

// loginWithClaim resolves a verified claim to a user and issues a token.
// Resolution order: provider subject id, then email (attaching the provider
// id to the matched account), then a fresh provider-backed user.
func (s *AuthService) loginWithClaim(ctx context.Context, claim *oauth.Claim, provider domain.Provider) (*AuthResult, error) {
	u, err := s.users.FindUserByProviderID(ctx, provider, claim.Subject)
	if err != nil {
		return nil, fmt.Errorf("lookup provider id: %v: %w", err, domain.ErrInternal)
	}

	if u == nil && claim.Email != "" {
		u, err = s.users.FindUserByEmail(ctx, normalizeEmail(claim.Email))
		if err != nil {
			return nil, fmt.Errorf("lookup email: %v: %w", err, domain.ErrInternal)
		}
		if u != nil {
			if err := s.users.AttachProviderID(ctx, u.ID, provider, claim.Subject); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					// email already belongs to an account bound to a
					// different subject at this provider
					metrics.LoginsTotal.WithLabelValues(string(provider), "denied").Inc()
					return nil, err
				}
				return nil, fmt.Errorf("attach provider: %v: %w", err, domain.ErrInternal)
			}
		}
	}

	if u == nil {
		u, err = s.createFromClaim(ctx, claim, provider)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: u.ID.Hex(), Email: u.Email, Name: u.Name})
	}

	tok, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(string(provider), "ok").Inc()
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Email: u.Email, Provider: string(provider)})
	return &AuthResult{AccessToken: tok, User: u.Profile()}, nil
}

func (s *AuthService) createFromClaim(ctx context.Context, claim *oauth.Claim, provider domain.Provider) (*domain.User, error) {
	email := normalizeEmail(claim.Email)
	if email == "" {
		// Apple withholds the email on relay opt-out; synthesize a sentinel
		// so the email-uniqueness invariant still holds. Known gap: a later
		// local sign-up using this literal address fails with a conflict.
		email = claim.Subject + "@apple.signin"
	}
	u := &domain.User{
		Email:   email,
		Name:    claim.Name,
		Picture: claim.Picture,
	}
	switch provider {
	case domain.ProviderGoogle:
		u.GoogleID = claim.Subject
	case domain.ProviderApple:
		u.AppleID = claim.Subject
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Me returns the authenticated user's profile record (no credential fields).
func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	u, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %v: %w", err, domain.ErrInternal)
	}
	if u == nil {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

// RemoveAccount deletes the user and every live session. Local accounts must
// present their current password; provider-only accounts (no hash stored)
// remove on the strength of the bearer token alone. Tokens are purged before
// the user row so a half-done removal never leaves live tokens behind.
func (s *AuthService) RemoveAccount(ctx context.Context, userID primitive.ObjectID, password string) error {
	u, err := s.users.FindCredentialByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup credential: %v: %w", err, domain.ErrInternal)
	}
	if u == nil {
		return domain.ErrUnauthorized
	}
	if u.PasswordHash != "" && !security.CheckPassword(u.PasswordHash, password) {
		return domain.ErrUnauthorized
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %v: %w", err, domain.ErrInternal)
	}
	s.publish(ctx, queue.KeyUserDeleted, queue.UserDeleted{UserID: userID.Hex(), Email: u.Email})
	return nil
}

// publish emits a lifecycle event off the request path. Event loss is logged,
// never surfaced to the caller.
func (s *AuthService) publish(ctx context.Context, key string, event any) {
	reqID := log.RequestID(ctx)
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.events.Publish(ctx, queue.Exchange, key, event, reqID); err != nil {
			log.WithDD(ctx, log.L()).Warn("publish event",
				zap.String("key", key), zap.Error(err))
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
