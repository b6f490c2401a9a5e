package http_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schedly/auth-service/internal/domain"
	api "github.com/schedly/auth-service/internal/http"
	"github.com/schedly/auth-service/internal/oauth"
	"github.com/schedly/auth-service/internal/queue"
	"github.com/schedly/auth-service/internal/security"
	"github.com/schedly/auth-service/internal/service"
)

// memStore is an in-memory UserDirectory + TokenRegistry + StateStore, enough
// to drive the router end to end without mongo or redis.
type memStore struct {
	mu     sync.Mutex
	users  map[primitive.ObjectID]*domain.User
	tokens map[string]struct{}
	states map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[primitive.ObjectID]*domain.User{},
		tokens: map[string]struct{}{},
		states: map[string]struct{}{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.users {
		if e.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) find(match func(*domain.User) bool, withCredential bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.users {
		if match(e) {
			cp := *e
			if !withCredential {
				cp.PasswordHash = ""
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }, false)
}

func (m *memStore) FindCredentialByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }, true)
}

func (m *memStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id }, false)
}

func (m *memStore) FindCredentialByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id }, true)
}

func (m *memStore) FindUserByProviderID(_ context.Context, p domain.Provider, sub string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool {
		if p == domain.ProviderGoogle {
			return u.GoogleID == sub
		}
		return u.AppleID == sub
	}, false)
}

func (m *memStore) AttachProviderID(_ context.Context, id primitive.ObjectID, p domain.Provider, sub string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		switch p {
		case domain.ProviderGoogle:
			if u.GoogleID == "" {
				u.GoogleID = sub
			} else if u.GoogleID != sub {
				return domain.ErrConflict
			}
		case domain.ProviderApple:
			if u.AppleID == "" {
				u.AppleID = sub
			} else if u.AppleID != sub {
				return domain.ErrConflict
			}
		}
	}
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memStore) SaveSessionToken(_ context.Context, userID primitive.ObjectID, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID.Hex()+"|"+token] = struct{}{}
	return nil
}

func (m *memStore) SessionTokenExists(_ context.Context, userID primitive.ObjectID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[userID.Hex()+"|"+token]
	return ok, nil
}

func (m *memStore) DeleteSessionToken(_ context.Context, userID primitive.ObjectID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID.Hex() + "|" + token
	if _, ok := m.tokens[k]; !ok {
		return false, nil
	}
	delete(m.tokens, k)
	return true, nil
}

func (m *memStore) DeleteSessionTokensByUser(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := userID.Hex() + "|"
	for k := range m.tokens {
		if strings.HasPrefix(k, prefix) {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memStore) SaveOAuthState(_ context.Context, state string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = struct{}{}
	return nil
}

func (m *memStore) ConsumeOAuthState(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[state]; !ok {
		return false, nil
	}
	delete(m.states, state)
	return true, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

// stubGoogle resolves a fixed access token to a fixed claim.
type stubGoogle struct {
	claim *oauth.Claim
}

func (s *stubGoogle) AuthURL(state string) string { return "https://example.com/?state=" + state }

func (s *stubGoogle) Exchange(_ context.Context, code string) (*oauth.Claim, error) {
	return s.VerifyAccessToken(nil, code)
}

func (s *stubGoogle) VerifyAccessToken(_ context.Context, token string) (*oauth.Claim, error) {
	if s.claim != nil && token == "good-google-token" {
		cp := *s.claim
		return &cp, nil
	}
	return nil, domain.ErrProviderVerification
}

type testEnv struct {
	Store  *memStore
	Router *gin.Engine
	Tokens *service.TokenAuthority
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys, err := security.NewKeyring([]string{"test-secret"})
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore()
	tokens := service.NewTokenAuthority(keys, store, time.Hour)
	google := &stubGoogle{claim: &oauth.Claim{Subject: "g-1", Email: "g@x.com", Name: "G", Picture: "pic"}}
	auth := service.NewAuthService(store, tokens, google, oauth.NewApple(), store, queue.NewNoop())

	h := api.NewHandler(auth, tokens, store, "http://localhost:3001")
	return &testEnv{Store: store, Router: api.NewRouter(h), Tokens: tokens}
}
