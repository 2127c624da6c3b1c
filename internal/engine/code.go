package engine

import (
	"fmt"
	"strings"
)

const (
	CodeLength = 6
	// No 0, 1, I or O.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NormalizeCode trims and upper-cases a client supplied room code and checks
// its length and alphabet.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: want %d characters, got %d", ErrInvalidCode, CodeLength, len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidCode, r)
		}
	}
	return code, nil
}
