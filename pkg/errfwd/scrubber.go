// scrubber.go implements sensitive data redaction for forwarded occurrences.

package errfwd

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// MaxMessageSize is the maximum length for messages (default: 4096).
	MaxMessageSize int

	// MaxSourceSize is the maximum length for sources (default: 2048).
	MaxSourceSize int

	// MaxMetadataValueSize is the maximum size per metadata value (default: 1024).
	MaxMetadataValueSize int

	// ScrubMessages enables scrubbing of messages for secrets/PII (default: true).
	ScrubMessages bool

	// StripSourceQuery removes query strings and fragments from sources (default: true).
	StripSourceQuery bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:       4096,
		MaxSourceSize:        2048,
		MaxMetadataValueSize: 1024,
		ScrubMessages:        true,
		StripSourceQuery:     true,
	}
}

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                                    // OpenAI-style keys
	regexp.MustCompile(`(?i)gh[po]_[a-zA-Z0-9]{36}`),                                                   // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                                             // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                                            // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),                     // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)(password|passwd|secret|credential)[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                              // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),         // Credit card
}

// Sensitive metadata key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"cookie",
}

// Path patterns to normalize in file sources
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
}

// Scrubber redacts sensitive data from occurrences.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
// Non-positive size limits fall back to the DefaultScrubberConfig values.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	defaults := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.MaxSourceSize <= 0 {
		cfg.MaxSourceSize = defaults.MaxSourceSize
	}
	if cfg.MaxMetadataValueSize <= 0 {
		cfg.MaxMetadataValueSize = defaults.MaxMetadataValueSize
	}
	return &Scrubber{cfg: cfg}
}

// ScrubOccurrence returns a scrubbed copy of occ. The error detail is replaced
// by one whose message is scrubbed and which unwraps to the original.
func (s *Scrubber) ScrubOccurrence(occ Occurrence) Occurrence {
	occ.Message = s.ScrubMessage(occ.Message)
	occ.Source = s.ScrubSource(occ.Source)
	occ.Metadata = s.ScrubMetadata(occ.Metadata)
	if occ.Err != nil {
		occ.Err = &scrubbedError{msg: s.ScrubMessage(occ.Err.Error()), cause: occ.Err}
	}
	return occ
}

// ScrubMessage scrubs sensitive patterns from an error message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages {
		return msg
	}

	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// ScrubSource strips query strings and fragments and normalizes user paths.
func (s *Scrubber) ScrubSource(source string) string {
	if source == "" {
		return source
	}

	if s.cfg.StripSourceQuery {
		source = stripQuery(source)
	}
	for _, pattern := range pathNormalizationPatterns {
		source = pattern.ReplaceAllString(source, "/[PATH]/")
	}

	if len(source) > s.cfg.MaxSourceSize {
		source = truncateWithMarker(source, s.cfg.MaxSourceSize)
	}
	return source
}

// ScrubMetadata redacts sensitive keys from metadata.
func (s *Scrubber) ScrubMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}

	result := make(map[string]string, len(meta))
	for key, value := range meta {
		if isSensitiveKey(key) {
			result[key] = "[REDACTED]"
			continue
		}
		if len(value) > s.cfg.MaxMetadataValueSize {
			value = truncateWithMarker(value, s.cfg.MaxMetadataValueSize)
		}
		result[key] = value
	}
	return result
}

// isSensitiveKey checks if a metadata key matches sensitive patterns.
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// stripQuery drops the query string and fragment of a URL-like source.
func stripQuery(source string) string {
	if !strings.ContainsAny(source, "?#") {
		return source
	}
	u, err := url.Parse(source)
	if err != nil {
		if i := strings.IndexAny(source, "?#"); i >= 0 {
			return source[:i]
		}
		return source
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// truncateWithMarker truncates a string and adds a truncation marker. The
// cut never splits a UTF-8 sequence, so the result may be shorter than maxLen.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return TruncateUTF8(s, maxLen-len(marker)) + marker
}

// TruncateUTF8 returns the longest prefix of s that is at most n bytes and
// ends on a rune boundary.
func TruncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

type scrubbedError struct {
	msg   string
	cause error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.cause }
