package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// Collector names appear in URLs, metric labels and log fields, so
	// they stay lowercase alphanumeric with hyphens/underscores.
	collectorNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)

	// Username must be alphanumeric with underscores, 3-50 chars
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateCollectorName checks if a collector name is valid
func ValidateCollectorName(name string) error {
	if name == "" {
		return errors.New("collector name cannot be empty")
	}

	if !collectorNameRegex.MatchString(name) {
		return errors.New("collector name must be lowercase alphanumeric with hyphens or underscores, 2-64 characters")
	}

	return nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}

	if !usernameRegex.MatchString(username) {
		return errors.New("username must be alphanumeric with underscores, 3-50 characters")
	}

	return nil
}

// ValidatePassword enforces minimal password strength for the admin account
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return errors.New("password must not exceed 72 characters")
	}
	return nil
}
