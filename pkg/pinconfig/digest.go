// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinconfig

import "strings"

const (
	// DigestPrefix is the literal prefix every raw pin must carry.
	DigestPrefix = "sha256/"

	// DigestLength is the base64-encoded length of a 32-byte SHA-256 digest.
	DigestLength = 44
)

// ValidateDigest checks a raw pin against the digest rules and returns its
// normalized form: surrounding whitespace trimmed and prefix removed.
func ValidateDigest(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if !strings.HasPrefix(pin, DigestPrefix) {
		return "", ErrMissingPrefix
	}
	digest := strings.TrimPrefix(pin, DigestPrefix)
	if digest == "" || !isBase64Alphabet(digest) {
		return "", ErrNotBase64
	}
	if len(digest) != DigestLength {
		return "", ErrWrongLength
	}
	return digest, nil
}

// FormatDigest returns the raw textual form of a normalized digest.
func FormatDigest(digest string) string {
	return DigestPrefix + digest
}

// isBase64Alphabet reports whether s consists solely of characters from the
// standard base64 alphabet, including padding.
func isBase64Alphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}
