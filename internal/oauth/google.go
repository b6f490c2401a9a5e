package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/schedly/auth-service/internal/domain"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleOAuth verifies Google proofs. Browser clients go through the
// authorization-code flow (AuthURL + Exchange); mobile and other non-browser
// clients POST an access token which is verified directly against the
// user-info endpoint.
type GoogleOAuth struct {
	cfg         *oauth2.Config
	userInfoURL string
	client      *http.Client
}

func NewGoogle(clientID, clientSecret, redirectURI string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
		client:      http.DefaultClient,
	}
}

// SetUserInfoURL overrides the user-info endpoint. Tests point it at a local
// httptest server.
func (g *GoogleOAuth) SetUserInfoURL(url string) { g.userInfoURL = url }

// AuthURL builds the consent redirect for the browser flow.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange swaps an authorization code for an access token and verifies it.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*Claim, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", domain.ErrProviderVerification)
	}
	return g.VerifyAccessToken(ctx, tok.AccessToken)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// VerifyAccessToken asks Google's user-info endpoint who the token belongs to
// and maps the answer to a Claim. Any non-200 status or malformed payload
// fails verification.
func (g *GoogleOAuth) VerifyAccessToken(ctx context.Context, accessToken string) (*Claim, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %v: %w", err, domain.ErrProviderVerification)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("google userinfo read: %w", domain.ErrProviderVerification)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo status %d: %w", resp.StatusCode, domain.ErrProviderVerification)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("google userinfo payload: %w", domain.ErrProviderVerification)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("google userinfo missing sub/email: %w", domain.ErrProviderVerification)
	}

	return &Claim{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
