package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	Prefix       = "qm"
	DigestLength = 8
	randomBytes  = 16
)

// Digest is the stable 8-character fragment derived from an email address.
func Digest(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:DigestLength]
}

// Derive builds a new key of the form qm_<digest8>_<random>. Each call yields
// a fresh random segment.
func Derive(email string) (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", Prefix, Digest(email), hex.EncodeToString(buf)), nil
}

// Parse splits a key into its digest and random segments.
func Parse(key string) (digest, random string, ok bool) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != Prefix {
		return "", "", false
	}
	if len(parts[1]) != DigestLength || len(parts[2]) < 2*randomBytes {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// BelongsTo reports whether key carries the digest of email.
func BelongsTo(key, email string) bool {
	digest, _, ok := Parse(key)
	return ok && digest == Digest(email)
}
