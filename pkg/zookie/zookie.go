// Package zookie implements the consistency token described in
// SPEC_FULL.md §5.2: a monotonic, base64(JSON)-encoded timestamp attached to
// every read and write to guard against the "new-enemy problem".
package zookie

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// MaxAge is the oldest a client-supplied zookie may be before it is
// rejected as stale.
const MaxAge = time.Hour

// Zookie is a consistency token. Order is the total order on
// TimestampMicros; NodeID and TransactionID are carried for diagnostics
// only and never affect ordering (recovered from original_source/zookie.rs,
// dropped by the distilled spec but harmless to keep on the wire).
type Zookie struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	NodeID          string `json:"node_id,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
}

// New returns a Zookie for the given timestamp with no metadata.
func New(timestampMicros int64) Zookie {
	return Zookie{TimestampMicros: timestampMicros}
}

// Encode serializes z as base64(utf-8 JSON), the wire form of a zookie.
func (z Zookie) Encode() (string, error) {
	b, err := json.Marshal(z)
	if err != nil {
		return "", fmt.Errorf("encode zookie: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// MustEncode is Encode but panics on failure; safe for zookies built from
// in-process values, where marshaling cannot fail.
func (z Zookie) MustEncode() string {
	s, err := z.Encode()
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses a zookie's wire form.
func Decode(encoded string) (Zookie, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Zookie{}, &ValidationError{Message: fmt.Sprintf("invalid zookie encoding: %v", err)}
	}

	var z Zookie
	if err := json.Unmarshal(raw, &z); err != nil {
		return Zookie{}, &ValidationError{Message: fmt.Sprintf("invalid zookie format: %v", err)}
	}
	return z, nil
}

// Compare returns -1, 0, or 1 as z's timestamp is less than, equal to, or
// greater than other's.
func (z Zookie) Compare(other Zookie) int {
	switch {
	case z.TimestampMicros < other.TimestampMicros:
		return -1
	case z.TimestampMicros > other.TimestampMicros:
		return 1
	default:
		return 0
	}
}

// IsNewerThan reports whether z is strictly newer than other.
func (z Zookie) IsNewerThan(other Zookie) bool {
	return z.TimestampMicros > other.TimestampMicros
}

// IsAtLeast reports whether z is at least as new as other.
func (z Zookie) IsAtLeast(other Zookie) bool {
	return z.TimestampMicros >= other.TimestampMicros
}

// Time converts z to a wall-clock time.
func (z Zookie) Time() time.Time {
	return time.UnixMicro(z.TimestampMicros)
}

// ValidationError marks a zookie that failed decode or freshness checks;
// handlers map it to HTTP 400 per SPEC_FULL.md §7.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid zookie: " + e.Message
}
