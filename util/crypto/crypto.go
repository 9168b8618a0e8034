// Package crypto provides salted password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100_000
)

// HashPassword derives a PBKDF2-HMAC-SHA256 hash of the password under a
// fresh random salt. Both values are returned base64-encoded.
func HashPassword(password string) (hash string, salt string, err error) {
	if password == "" {
		return "", "", errors.New("password can not be empty")
	}

	rawSalt := make([]byte, saltSize)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}

	rawHash := pbkdf2.Key([]byte(password), rawSalt, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(rawHash), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// CheckPasswordHash verifies the password against a stored hash and salt.
// Malformed stored values count as a mismatch; it never panics.
func CheckPasswordHash(password, hash, salt string) bool {
	if password == "" || hash == "" || salt == "" {
		return false
	}

	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}

	computed := pbkdf2.Key([]byte(password), rawSalt, iterations, keySize, sha256.New)
	return subtle.ConstantTimeCompare(computed, rawHash) == 1
}
