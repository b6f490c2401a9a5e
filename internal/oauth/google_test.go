package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/schedly/auth-service/internal/domain"
)

func googleStub(t *testing.T, status int, body string) *GoogleOAuth {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization header: %q", got)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g := NewGoogle("cid", "csec", "http://localhost/cb")
	g.SetUserInfoURL(srv.URL)
	return g
}

func TestVerifyAccessToken(t *testing.T) {
	g := googleStub(t, 200, `{"sub":"g-123","email":"g@x.com","name":"G","picture":"http://p"}`)
	claim, err := g.VerifyAccessToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if claim.Subject != "g-123" || claim.Email != "g@x.com" || claim.Name != "G" || claim.Picture != "http://p" {
		t.Fatalf("claim mismatch: %#v", claim)
	}
}

func TestVerifyAccessTokenRejected(t *testing.T) {
	g := googleStub(t, 401, `{"error":"invalid_token"}`)
	if _, err := g.VerifyAccessToken(context.Background(), "tok-1"); !errors.Is(err, domain.ErrProviderVerification) {
		t.Fatalf("want provider verification failure, got %v", err)
	}
}

func TestVerifyAccessTokenMalformed(t *testing.T) {
	g := googleStub(t, 200, `not json`)
	if _, err := g.VerifyAccessToken(context.Background(), "tok-1"); !errors.Is(err, domain.ErrProviderVerification) {
		t.Fatalf("want provider verification failure, got %v", err)
	}
}

func TestVerifyAccessTokenMissingSub(t *testing.T) {
	g := googleStub(t, 200, `{"email":"g@x.com"}`)
	if _, err := g.VerifyAccessToken(context.Background(), "tok-1"); !errors.Is(err, domain.ErrProviderVerification) {
		t.Fatalf("want provider verification failure, got %v", err)
	}
}

func TestAuthURLCarriesState(t *testing.T) {
	g := NewGoogle("cid", "csec", "http://localhost/cb")
	u := g.AuthURL("state-xyz")
	if !strings.Contains(u, "state=state-xyz") || !strings.Contains(u, "client_id=cid") {
		t.Fatalf("auth url: %q", u)
	}
}
