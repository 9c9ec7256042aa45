// Package auth implements the static API token that guards the mcpbridge HTTP API and MCP proxy.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MinTokenLength is the minimum length of a user-supplied API token.
const MinTokenLength = 8

// GenerateAPIToken generates a 256-bit secure random API token.
func GenerateAPIToken() (string, error) {
	const tokenLength = 32
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api token: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// ValidateAPIToken checks if a user-provided API token is acceptable.
// It doesn't impose many conditions to allow flexibility.
func ValidateAPIToken(token string) error {
	if len(token) < MinTokenLength {
		return fmt.Errorf("api token should be at least %d characters in length", MinTokenLength)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return errors.New("api token should not contain whitespace characters")
	}
	return nil
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Matches reports whether the presented token equals the expected one, in constant time.
func Matches(expected, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
