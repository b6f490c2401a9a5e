package oauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/schedly/auth-service/internal/domain"
)

// AppleProof is the payload a client sends after Sign in with Apple. Name
// parts arrive only on the first consent; Apple never resends them, and email
// is absent when the user opted into relay hiding.
type AppleProof struct {
	IdentityToken string
	AppleID       string
	Email         string
	GivenName     string
	FamilyName    string
}

// AppleVerifier checks Apple identity proofs.
//
// Verification is a deliberate stub: the proof's shape is validated (subject
// id and identity token must be present) but the identity token's signature
// is NOT checked against Apple's published JWKS. Production deployments must
// replace Verify's body with real signature verification; the rest of the
// service only sees the Claim and does not change.
type AppleVerifier struct{}

func NewApple() *AppleVerifier { return &AppleVerifier{} }

func (a *AppleVerifier) Verify(ctx context.Context, proof AppleProof) (*Claim, error) {
	if strings.TrimSpace(proof.AppleID) == "" || strings.TrimSpace(proof.IdentityToken) == "" {
		return nil, fmt.Errorf("apple proof missing subject or identity token: %w", domain.ErrProviderVerification)
	}
	return &Claim{
		Subject: proof.AppleID,
		Email:   strings.ToLower(strings.TrimSpace(proof.Email)),
		Name:    appleName(proof.GivenName, proof.FamilyName),
	}, nil
}

func appleName(given, family string) string {
	given, family = strings.TrimSpace(given), strings.TrimSpace(family)
	switch {
	case given != "" && family != "":
		return given + " " + family
	case given != "":
		return given
	case family != "":
		return family
	default:
		return "Apple User"
	}
}
