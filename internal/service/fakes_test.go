package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schedly/auth-service/internal/domain"
	"github.com/schedly/auth-service/internal/oauth"
)

// In-memory stand-ins for the mongo/redis repos. They mirror the uniqueness
// and projection behavior of internal/repo so the workflows can be exercised
// without containers.

type fakeDirectory struct {
	mu    sync.Mutex
	users []*domain.User
}

func (f *fakeDirectory) CreateUser(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.Email == u.Email {
			return domain.ErrConflict
		}
		if u.GoogleID != "" && e.GoogleID == u.GoogleID {
			return domain.ErrConflict
		}
		if u.AppleID != "" && e.AppleID == u.AppleID {
			return domain.ErrConflict
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users = append(f.users, &cp)
	return nil
}

func (f *fakeDirectory) find(match func(*domain.User) bool, withCredential bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
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

func (f *fakeDirectory) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email == email }, false)
}

func (f *fakeDirectory) FindCredentialByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email == email }, true)
}

func (f *fakeDirectory) FindUserByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.ID == id }, false)
}

func (f *fakeDirectory) FindCredentialByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.ID == id }, true)
}

func (f *fakeDirectory) FindUserByProviderID(_ context.Context, provider domain.Provider, sub string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool {
		switch provider {
		case domain.ProviderGoogle:
			return u.GoogleID == sub
		case domain.ProviderApple:
			return u.AppleID == sub
		}
		return false
	}, false)
}

func (f *fakeDirectory) AttachProviderID(_ context.Context, id primitive.ObjectID, provider domain.Provider, sub string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.ID != id {
			continue
		}
		switch provider {
		case domain.ProviderGoogle:
			if e.GoogleID == "" {
				e.GoogleID = sub
			} else if e.GoogleID != sub {
				return domain.ErrConflict
			}
		case domain.ProviderApple:
			if e.AppleID == "" {
				e.AppleID = sub
			} else if e.AppleID != sub {
				return domain.ErrConflict
			}
		}
		return nil
	}
	return errors.New("no such user")
}

func (f *fakeDirectory) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.users {
		if e.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	rows    map[string]struct{}
	saveErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{rows: map[string]struct{}{}}
}

func regKey(userID primitive.ObjectID, token string) string {
	return userID.Hex() + "|" + token
}

func (f *fakeRegistry) SaveSessionToken(_ context.Context, userID primitive.ObjectID, token string, _ time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[regKey(userID, token)] = struct{}{}
	return nil
}

func (f *fakeRegistry) SessionTokenExists(_ context.Context, userID primitive.ObjectID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[regKey(userID, token)]
	return ok, nil
}

func (f *fakeRegistry) DeleteSessionToken(_ context.Context, userID primitive.ObjectID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := regKey(userID, token)
	if _, ok := f.rows[k]; !ok {
		return false, nil
	}
	delete(f.rows, k)
	return true, nil
}

func (f *fakeRegistry) DeleteSessionTokensByUser(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID.Hex() + "|"
	for k := range f.rows {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(f.rows, k)
		}
	}
	return nil
}

type fakeStates struct {
	mu     sync.Mutex
	states map[string]struct{}
}

func newFakeStates() *fakeStates { return &fakeStates{states: map[string]struct{}{}} }

func (f *fakeStates) SaveOAuthState(_ context.Context, state string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = struct{}{}
	return nil
}

func (f *fakeStates) ConsumeOAuthState(_ context.Context, state string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[state]; !ok {
		return false, nil
	}
	delete(f.states, state)
	return true, nil
}

// fakeGoogle maps access tokens / codes to claims.
type fakeGoogle struct {
	claims map[string]*oauth.Claim
}

func (f *fakeGoogle) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*oauth.Claim, error) {
	return f.lookup(code)
}

func (f *fakeGoogle) VerifyAccessToken(_ context.Context, token string) (*oauth.Claim, error) {
	return f.lookup(token)
}

func (f *fakeGoogle) lookup(key string) (*oauth.Claim, error) {
	if c, ok := f.claims[key]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrProviderVerification
}
