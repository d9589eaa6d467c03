package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxRosterSize is 256KB, enough for a few thousand recipients.
	DefaultMaxRosterSize = 256 << 10
	// EnvMaxRosterSize is the environment variable to override the default
	EnvMaxRosterSize = "CERTWIZARD_MAX_ROSTER_SIZE"
)

var (
	ErrRosterTooLarge = errors.New("roster exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("roster contains invalid UTF-8 sequences")
	ErrEmptyRoster    = errors.New("roster is empty")
)

// SanitizeRoster cleans a CSV roster by enforcing size limits,
// validating UTF-8, normalizing line endings and stripping control characters.
func SanitizeRoster(input string) (string, error) {
	limit := getMaxRosterSize()
	if len(input) > limit {
		// Reject rather than truncate: a cut roster silently drops recipients.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrRosterTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyRoster
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t'
}

func getMaxRosterSize() int {
	if val := os.Getenv(EnvMaxRosterSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxRosterSize
}
