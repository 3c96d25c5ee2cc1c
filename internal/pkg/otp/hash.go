package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-api-otp/internal/domain"
)

// Hash returns the lowercase hex SHA-256 digest of code.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Verify reports whether candidate has the policy's length and composition and
// hashes to storedHash. Mismatches return false; only an invalid policy is an error.
func Verify(candidate, storedHash string, policy domain.Policy) (bool, error) {
	if err := policy.Validate(); err != nil {
		return false, err
	}
	if len(candidate) != policy.Length {
		return false, nil
	}
	if !MatchesPolicy(candidate, policy.Mode) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(Hash(candidate)), []byte(storedHash)) == 1, nil
}
