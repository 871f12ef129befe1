package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies a text by its SHA-256 digest in hex.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FingerprintFields digests several fields as one key. Fields are NUL
// separated so ("ab", "c") and ("a", "bc") differ.
func FingerprintFields(fields ...string) string {
	return Fingerprint(strings.Join(fields, "\x00"))
}

// ShortFingerprint fingerprints text and keeps the first n hex digits,
// enough to correlate log lines without logging user content.
func ShortFingerprint(text string, n int) string {
	fp := Fingerprint(text)
	if n <= 0 || n >= len(fp) {
		return fp
	}
	return fp[:n]
}
