package security

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes pw with bcrypt (cost 12). The plaintext is never logged
// or stored anywhere else.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), 12)
	return string(b), err
}

// CheckPassword reports whether pw matches hash. bcrypt's own comparison is
// used; no custom equality.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
