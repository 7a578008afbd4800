// Package urlhash derives stable identity keys from URLs.
package urlhash

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyLen is the number of hex characters in a URL identity key. Archive
// file names embed the key, so the length is part of the on-disk format.
const KeyLen = 8

// Key returns the identity key for a URL: the first 8 hex characters of
// the SHA-256 digest of the normalized URL string. The same URL always
// maps to the same key, independent of day boundaries.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])[:KeyLen]
}

// Normalize canonicalizes a URL for identity purposes: trims whitespace,
// lowercases the scheme and host, and drops any fragment. Unparseable
// input is used verbatim after trimming.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}
