package domain

import (
	"fmt"
	"strings"
)

// Purpose namespaces passcodes in the cache. It is also the key prefix.
type Purpose string

const PurposeVerifyEmail Purpose = "register:verifyEmail"

// CharacterMode is the character class a passcode is drawn from.
type CharacterMode int

const (
	ModeNumeric CharacterMode = iota
	ModeAlphabetic
	// ModeAlphanumericStrict guarantees at least one digit and one letter.
	ModeAlphanumericStrict
)

func (m CharacterMode) String() string {
	switch m {
	case ModeNumeric:
		return "numeric"
	case ModeAlphabetic:
		return "alphabetic"
	case ModeAlphanumericStrict:
		return "alphanumeric"
	default:
		return fmt.Sprintf("CharacterMode(%d)", int(m))
	}
}

// MinLength is the structural minimum passcode length for the mode.
func (m CharacterMode) MinLength() int {
	if m == ModeAlphanumericStrict {
		return 2
	}
	return 1
}

// ParseCharacterMode maps a config value onto a CharacterMode.
func ParseCharacterMode(s string) (CharacterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "numeric":
		return ModeNumeric, nil
	case "alphabetic":
		return ModeAlphabetic, nil
	case "alphanumeric", "alphanumeric_strict":
		return ModeAlphanumericStrict, nil
	default:
		return 0, fmt.Errorf("unknown passcode mode %q: %w", s, ErrBadRequest)
	}
}

// Policy is the structural rule a purpose's passcodes must satisfy.
type Policy struct {
	Length int
	Mode   CharacterMode
}

// Validate reports whether the policy can produce passcodes at all.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeNumeric, ModeAlphabetic, ModeAlphanumericStrict:
	default:
		return fmt.Errorf("unknown passcode mode %s: %w", p.Mode, ErrBadRequest)
	}
	if p.Length < p.Mode.MinLength() {
		return fmt.Errorf("%s policy needs length >= %d, got %d: %w",
			p.Mode, p.Mode.MinLength(), p.Length, ErrInvalidPolicyLength)
	}
	return nil
}

// PasscodeRecord is the pending passcode held in the cache.
// Timestamps are unix seconds; ExpiresAt is authoritative once stored.
type PasscodeRecord struct {
	Code      string
	ExpiresAt int64
	CreatedAt int64
}
