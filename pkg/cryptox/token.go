package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// ResetCodeBytes is the entropy of a password reset code: 4 bytes render as
// 8 hex characters, short enough to copy from an email by hand.
const ResetCodeBytes = 4

// GenerateResetCode returns size random bytes as an upper-case hex string.
func GenerateResetCode(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("code size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NormalizeResetCode trims whitespace and upper-cases user input so codes
// typed in lower case still verify.
func NormalizeResetCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashResetCode hashes a normalized reset code for storage. The plaintext
// is never persisted.
func HashResetCode(code string) (string, error) {
	return HashPassword(NormalizeResetCode(code))
}

// VerifyResetCode checks user input against a stored reset code hash in
// constant time.
func VerifyResetCode(code, encodedHash string) error {
	return VerifyPassword(NormalizeResetCode(code), encodedHash)
}
