// fingerprint.go generates stable hashes for grouping similar occurrences.

package errfwd

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// Fingerprint generates a hash for grouping similar occurrences.
// The fingerprint is based on:
//   - the message with numbers, memory addresses and quoted values normalized
//   - the source without query string or fragment
//   - line and column
//
// It ignores variable data like IDs, timestamps and metadata.
func Fingerprint(occ Occurrence) string {
	parts := []string{
		normalizeMessage(occ.Message),
		stripQuery(occ.Source),
		strconv.Itoa(occ.Line),
		strconv.Itoa(occ.Column),
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

var (
	// Match memory addresses like "0x1234abcd"
	memAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)

	// Match quoted values like 'foo' or "bar"
	quotedPattern = regexp.MustCompile(`'[^']*'|"[^"]*"`)

	// Match standalone numbers
	numberPattern = regexp.MustCompile(`\b\d+\b`)
)

// normalizeMessage strips variable data from a message so that the same error
// with different values groups together.
func normalizeMessage(msg string) string {
	msg = memAddrPattern.ReplaceAllString(msg, "0x")
	msg = quotedPattern.ReplaceAllString(msg, "<str>")
	msg = numberPattern.ReplaceAllString(msg, "<n>")
	return strings.TrimSpace(msg)
}
