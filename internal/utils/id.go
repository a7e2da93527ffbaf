package utils

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/lithammer/shortuuid/v4"
)

const slugLength = 12

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSlug returns a short, URL-safe identifier for a public share link.
func GenerateSlug() string {
	return shortuuid.New()[:slugLength]
}
