// Package redact masks credentials in database URLs and error messages
// before they are logged.
package redact

import (
	"net/url"
	"regexp"
)

// Placeholders substituted for sensitive values.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	PasswordMask          = "****"
)

var (
	// user:password@ in connection strings
	dbConnRegex = regexp.MustCompile(`(?i)\b(postgres|postgresql|mysql|db|database)://[^@\s/]+@`)

	// password=... in keyword/value DSNs and query strings
	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]+['"]?`)
)

// DatabaseURL returns dbURL with its password replaced by a mask. URLs
// that cannot be parsed are replaced entirely.
func DatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", PasswordMask)
		u.RawQuery = q.Encode()
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), PasswordMask)
		}
	}
	return u.String()
}

// String removes credentials from free text.
func String(input string) string {
	if input == "" {
		return input
	}
	out := dbConnRegex.ReplaceAllString(input, "${1}://"+CredentialPlaceholder+"@")
	return passwordRegex.ReplaceAllString(out, CredentialPlaceholder)
}

// Error redacts credentials from an error's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
