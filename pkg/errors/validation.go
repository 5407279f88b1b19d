package errors

import (
	"regexp"
	"strings"
	"unicode"
)

var steamID64Regex = regexp.MustCompile(`^7656\d{13}$`)

// IsSteamID64 reports whether s is a 17-digit SteamID64.
func IsSteamID64(s string) bool {
	return steamID64Regex.MatchString(s)
}

// ValidateSteamID64 returns an error unless s is a 17-digit SteamID64.
func ValidateSteamID64(s string) error {
	if !IsSteamID64(s) {
		return New(ErrCodeInvalidAccount, "not a SteamID64: %q", s)
	}
	return nil
}

// ValidateLabel checks an account label from the input list.
//
// Labels end up in CSV cells and log lines, so control characters and
// unreasonable lengths are rejected.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidAccount, "label cannot be empty")
	}
	if len(label) > 128 {
		return New(ErrCodeInvalidAccount, "label too long (max 128 characters)")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidAccount, "label contains control characters")
		}
	}
	return nil
}

// ValidateIdentity checks the identity half of an input line before any
// network resolution is attempted.
func ValidateIdentity(ident string) error {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return New(ErrCodeInvalidAccount, "identity cannot be empty")
	}
	if len(ident) > 512 {
		return New(ErrCodeInvalidAccount, "identity too long (max 512 characters)")
	}
	if strings.ContainsAny(ident, "\x00\r\n") {
		return New(ErrCodeInvalidAccount, "identity contains invalid characters")
	}
	return nil
}

// ValidateURL ensures rawURL uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
