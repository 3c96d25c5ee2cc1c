package passcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-api-otp/internal/domain"
)

// encode renders a record as "<code>-<expiresAt>-<createdAt>".
func encode(rec domain.PasscodeRecord) string {
	return rec.Code + "-" + strconv.FormatInt(rec.ExpiresAt, 10) + "-" + strconv.FormatInt(rec.CreatedAt, 10)
}

func decode(value string) (*domain.PasscodeRecord, error) {
	parts := strings.Split(value, "-")
	if len(parts) != 3 || parts[0] == "" {
		return nil, fmt.Errorf("malformed passcode record: want 3 fields, got %d", len(parts))
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed passcode record expiry: %w", err)
	}
	createdAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed passcode record creation time: %w", err)
	}
	return &domain.PasscodeRecord{Code: parts[0], ExpiresAt: expiresAt, CreatedAt: createdAt}, nil
}
