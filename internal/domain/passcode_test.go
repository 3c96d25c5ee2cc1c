package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{"numeric length 1", Policy{Length: 1, Mode: ModeNumeric}, nil},
		{"numeric length 0", Policy{Length: 0, Mode: ModeNumeric}, ErrInvalidPolicyLength},
		{"alphabetic length 0", Policy{Length: 0, Mode: ModeAlphabetic}, ErrInvalidPolicyLength},
		{"strict length 2", Policy{Length: 2, Mode: ModeAlphanumericStrict}, nil},
		{"strict length 1", Policy{Length: 1, Mode: ModeAlphanumericStrict}, ErrInvalidPolicyLength},
		{"unknown mode", Policy{Length: 6, Mode: CharacterMode(42)}, ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseCharacterMode(t *testing.T) {
	m, err := ParseCharacterMode("Alphanumeric")
	require.NoError(t, err)
	assert.Equal(t, ModeAlphanumericStrict, m)

	m, err = ParseCharacterMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNumeric, m)

	_, err = ParseCharacterMode("hex")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestErrors_Unwrap(t *testing.T) {
	assert.True(t, errors.Is(ErrEmailExist, ErrConflict))
	assert.True(t, errors.Is(ErrInvalidPasscode, ErrUnauthorized))

	var pending error = &PendingVerificationError{RemainingMs: 1000}
	assert.True(t, errors.Is(pending, ErrTooManyRequests))

	var expired error = &PendingExpiredError{ResendAvailable: true}
	assert.True(t, errors.Is(expired, ErrGone))
}
