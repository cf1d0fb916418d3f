// Package cache defines the result-cache capability (SPEC_FULL.md §5.4):
// key/value storage with pattern invalidation, used to accelerate repeated
// permission checks. Implementations live in internal/cache/redis (production)
// and internal/cache/inmemory (tests and the memdb-backed dev profile).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the capability the evaluator and orchestrator depend on. The
// evaluator is generic over it so that an in-memory double satisfies tests
// without a live Redis connection (SPEC_FULL.md §5.4, spec.md §9).
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
}

// TTLs for the cache entries named in spec.md §4.4.
const (
	CheckTTL        = 300 * time.Second
	PermissionsTTL  = 600 * time.Second
	LatestZookieTTL = time.Hour
)

// CheckResult is the JSON value schema for a cached check outcome
// (spec.md §3 "Cache entry" / §4.4 "Value schema").
type CheckResult struct {
	Allowed        bool   `json:"allowed"`
	CachedAtMicros int64  `json:"cached_at_micros"`
	OriginalZookie string `json:"original_zookie"`
}

// Encode serializes a CheckResult for storage.
func (r CheckResult) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode cached check result: %w", err)
	}
	return string(b), nil
}

// DecodeCheckResult parses a cached check-result JSON value.
func DecodeCheckResult(raw string) (CheckResult, error) {
	var r CheckResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return CheckResult{}, fmt.Errorf("decode cached check result: %w", err)
	}
	return r, nil
}

// CheckKey builds the cache key for a single check, per spec.md §4.4:
// check:{namespace}:{object_id}#{relation}@{subject_type}:{subject_id}
func CheckKey(namespace, objectID, relation, subjectType, subjectID string) string {
	return fmt.Sprintf("check:%s:%s#%s@%s:%s", namespace, objectID, relation, subjectType, subjectID)
}

// ObjectPattern is the invalidation glob for every cached check on an object:
// check:{namespace}:{object_id}*
func ObjectPattern(namespace, objectID string) string {
	return fmt.Sprintf("check:%s:%s*", namespace, objectID)
}

// UserPattern is the invalidation glob for every cached check naming a user
// as subject: check:*@user:{user_id}
func UserPattern(userID string) string {
	return fmt.Sprintf("check:*@user:%s", userID)
}

// NamespacePattern is the invalidation glob for an entire namespace:
// check:{namespace}:*
func NamespacePattern(namespace string) string {
	return fmt.Sprintf("check:%s:*", namespace)
}
