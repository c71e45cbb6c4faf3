package models

import (
	"strings"
	"time"
)

// EndpointClass selects which budget a request draws from.
type EndpointClass string

const (
	// ClassRead covers lookups, listings, stats and exports.
	ClassRead EndpointClass = "read"
	// ClassWrite covers escrow creation and settlement.
	ClassWrite EndpointClass = "write"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}

// NewCallerKey builds the bucket key for a caller identity and class.
func NewCallerKey(identity string, class EndpointClass) string {
	return "escrowd:ratelimit:" + string(class) + ":" + SanitizeKeySegment(identity)
}

// SanitizeKeySegment escapes the key delimiter so an identity cannot spill
// into an adjacent bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
