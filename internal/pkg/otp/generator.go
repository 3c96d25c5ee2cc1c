// Package otp generates, hashes and verifies one-time passcodes and decides
// the resend/expiry timing of a pending passcode. Nothing here does I/O.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-api-otp/internal/domain"
)

const (
	digits  = "0123456789"
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator produces passcodes for a single policy.
type Generator struct {
	policy domain.Policy
}

func NewGenerator(policy domain.Policy) *Generator {
	return &Generator{policy: policy}
}

func (g *Generator) Policy() domain.Policy { return g.policy }

// Generate returns a passcode of exactly policy.Length characters drawn with
// crypto/rand from the policy's alphabet.
func (g *Generator) Generate() (string, error) {
	if err := g.policy.Validate(); err != nil {
		return "", err
	}
	switch g.policy.Mode {
	case domain.ModeNumeric:
		return randomString(digits, g.policy.Length)
	case domain.ModeAlphabetic:
		return randomString(letters, g.policy.Length)
	case domain.ModeAlphanumericStrict:
		return strictAlphanumeric(g.policy.Length)
	}
	return "", fmt.Errorf("unknown passcode mode %s: %w", g.policy.Mode, domain.ErrBadRequest)
}

// strictAlphanumeric seeds one digit and one letter, fills the rest from the
// combined alphabet and shuffles so the seeded positions are not fixed.
func strictAlphanumeric(n int) (string, error) {
	if n < domain.ModeAlphanumericStrict.MinLength() {
		return "", domain.ErrInvalidPolicyLength
	}
	b := make([]byte, 0, n)
	for _, alphabet := range []string{digits, letters} {
		c, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		b = append(b, c)
	}
	if n > 2 {
		rest, err := randomString(digits+letters, n-2)
		if err != nil {
			return "", err
		}
		b = append(b, rest...)
	}

	// Fisher-Yates
	for i := len(b) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		b[i], b[j] = b[j], b[i]
	}
	return string(b), nil
}

func randomString(alphabet string, n int) (string, error) {
	if n < 1 || len(alphabet) == 0 {
		return "", domain.ErrInvalidPolicyLength
	}
	b := make([]byte, n)
	for i := range b {
		c, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		b[i] = c
	}
	return string(b), nil
}

func randomChar(alphabet string) (byte, error) {
	idx, err := randomIndex(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[idx], nil
}

func randomIndex(n int) (int, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("generate passcode: %w", err)
	}
	return int(idx.Int64()), nil
}

// MatchesPolicy reports whether code is composed according to mode.
// Length is not checked here.
func MatchesPolicy(code string, mode domain.CharacterMode) bool {
	if code == "" {
		return false
	}
	var hasDigit, hasLetter bool
	for i := 0; i < len(code); i++ {
		switch c := code[i]; {
		case isDigit(c):
			hasDigit = true
		case isLetter(c):
			hasLetter = true
		default:
			return false
		}
	}
	switch mode {
	case domain.ModeNumeric:
		return !hasLetter
	case domain.ModeAlphabetic:
		return !hasDigit
	case domain.ModeAlphanumericStrict:
		return hasDigit && hasLetter
	}
	return false
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
