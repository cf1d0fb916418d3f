package zookie

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// LatestCacheKey is the result-cache slot the manager uses to remember the
// most recently issued zookie (1h TTL, per SPEC_FULL.md §5.4).
const LatestCacheKey = "zookie:latest"

const latestTTL = time.Hour

// latestCache is the narrow slice of the result-cache capability the
// manager needs; internal/cache.Cache satisfies it without pkg/zookie
// importing an internal package.
type latestCache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
}

// Manager issues, validates, and compares consistency tokens for a single
// process. The only mutable process-wide state is lastMicros, a single
// atomic word.
type Manager struct {
	lastMicros atomic.Int64
	cache      latestCache
	nodeID     string
}

// NewManager constructs a Manager. nodeID defaults to "sentinel-<pid>" when
// empty, matching spec.md §6's NODE_ID default.
func NewManager(cache latestCache, nodeID string) *Manager {
	if nodeID == "" {
		nodeID = fmt.Sprintf("sentinel-%d", os.Getpid())
	}
	m := &Manager{cache: cache, nodeID: nodeID}
	m.lastMicros.Store(time.Now().UnixMicro())
	return m
}

// Generate issues a new, strictly monotonic zookie and caches it as the
// latest. Two calls within the same microsecond still produce distinct,
// increasing timestamps via the fetch-max/fetch-add dance described in
// SPEC_FULL.md §5.2.
func (m *Manager) Generate(ctx context.Context) (Zookie, error) {
	now := time.Now().UnixMicro()

	// Mirrors atomic_fetch_max(last, now) followed by a fetch_add on
	// same-microsecond collisions: only a strict advance past the stored
	// value reuses now directly; prev == now (two calls in the same
	// microsecond, routine on modern hardware) and prev > now both fall
	// through to Add(1) so every issued timestamp is strictly greater
	// than the last.
	var final int64
	for {
		prev := m.lastMicros.Load()
		if prev < now {
			if m.lastMicros.CompareAndSwap(prev, now) {
				final = now
				break
			}
			continue
		}
		final = m.lastMicros.Add(1)
		break
	}

	z := Zookie{
		TimestampMicros: final,
		NodeID:          m.nodeID,
	}

	if err := m.cacheLatest(ctx, z); err != nil {
		log.Warn().Err(err).Msg("failed to cache latest zookie")
	}

	return z, nil
}

// ValidateAndPickSnapshot implements the validation algorithm of
// SPEC_FULL.md §5.2 / spec.md §4.2: a supplied token is decoded and checked
// for "future" and "stale"; an absent token falls back to Generate.
func (m *Manager) ValidateAndPickSnapshot(ctx context.Context, requested string) (Zookie, error) {
	if requested == "" {
		return m.Generate(ctx)
	}

	z, err := Decode(requested)
	if err != nil {
		return Zookie{}, err
	}

	now := time.Now().UnixMicro()
	if z.TimestampMicros > now {
		return Zookie{}, &ValidationError{Message: "future zookie not allowed"}
	}

	if now-z.TimestampMicros > MaxAge.Microseconds() {
		return Zookie{}, &ValidationError{Message: "stale zookie"}
	}

	return z, nil
}

// EnsureConsistencyAfterWrite implements spec.md §4.2's new-enemy-problem
// check: the read snapshot must be at least as new as the write it must
// observe.
func (m *Manager) EnsureConsistencyAfterWrite(write Zookie, read *Zookie) bool {
	if read == nil {
		return time.Now().UnixMicro() >= write.TimestampMicros
	}
	return read.IsAtLeast(write)
}

// GetLatestCached returns the most recently issued zookie, if the result
// cache still has it within its TTL.
func (m *Manager) GetLatestCached(ctx context.Context) (Zookie, bool, error) {
	raw, ok, err := m.cache.Get(ctx, LatestCacheKey)
	if err != nil || !ok {
		return Zookie{}, false, err
	}

	z, err := Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse cached zookie")
		return Zookie{}, false, nil
	}
	return z, true, nil
}

func (m *Manager) cacheLatest(ctx context.Context, z Zookie) error {
	encoded, err := z.Encode()
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, LatestCacheKey, encoded, latestTTL)
}
