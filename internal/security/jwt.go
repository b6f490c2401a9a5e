package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the owning user id as the token's sole identity claim.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Keyring holds the HS256 secrets accepted by the service. Secrets are
// ordered: the first signs new tokens, all of them verify, so a secret can be
// rotated in without invalidating tokens signed by its predecessor.
type Keyring struct {
	secrets [][]byte
}

var ErrNoSecrets = errors.New("keyring requires at least one secret")

func NewKeyring(secrets []string) (*Keyring, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecrets
	}
	kr := &Keyring{}
	for _, s := range secrets {
		kr.secrets = append(kr.secrets, []byte(s))
	}
	return kr, nil
}

// MakeAccess signs a time-bounded access token for uid with the active secret.
func (kr *Keyring) MakeAccess(uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   uid,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(kr.secrets[0])
}

// ParseAccess verifies signature and expiry against every secret in order and
// returns the claims of the first match.
func (kr *Keyring) ParseAccess(token string) (*Claims, error) {
	var lastErr error
	for _, secret := range kr.secrets {
		t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			lastErr = err
			continue
		}
		c, ok := t.Claims.(*Claims)
		if !ok || !t.Valid || c.UID == "" {
			lastErr = errors.New("invalid token")
			continue
		}
		return c, nil
	}
	return nil, lastErr
}
