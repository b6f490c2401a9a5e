// Package oauth verifies third-party identity proofs and normalizes them to
// one claim shape. Nothing outside this package sees raw provider payloads.
package oauth

// Claim is the normalized identity extracted from a verified provider proof.
// Email may be empty (Apple withholds it on relay opt-out); Picture is only
// populated by Google.
type Claim struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
