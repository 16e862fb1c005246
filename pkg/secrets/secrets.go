// Package secrets hashes and verifies API key secrets with bcrypt.
package secrets

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// GenerateSecret returns a URL-safe random secret of n bytes of entropy.
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the bcrypt hash of a plaintext secret.
func Hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether the plaintext secret matches the stored hash.
func Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// MustHash is a seed-data helper; it panics on hashing failure, which can
// only happen on an invalid cost.
func MustHash(secret string) string {
	h, err := Hash(secret)
	if err != nil {
		panic(err)
	}
	return h
}
