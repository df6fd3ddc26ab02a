package auth

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes a plaintext secret with bcrypt. The per-call random salt
// is embedded in the returned digest.
func HashSecret(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifySecret recomputes the hash under the salt embedded in digest and
// compares in constant time.
func VerifySecret(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
