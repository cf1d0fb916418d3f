// Package graph implements the permission evaluator and batch evaluator
// (SPEC_FULL.md §5.5, spec.md §4.5/§4.6): a depth-first search over direct,
// inherited, and userset edges with cycle detection, and a concurrent
// fan-out/fan-in batch layer built on the same reduceable-result pattern.
package graph

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sentinel-authz/sentinel/internal/cache"
	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/pkg/relation"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
	"github.com/sentinel-authz/sentinel/pkg/zookie"
)

// CheckRequest names the permission question: does subject hold relation on
// (namespace, object_id)? Zookie is the caller's resolved snapshot token,
// optional -- when set, it lets Check detect a cached entry that predates
// the snapshot and treat it as a miss (SPEC_FULL.md §9, Open Question #2).
type CheckRequest struct {
	Namespace   string
	ObjectID    string
	Relation    string
	SubjectType string
	SubjectID   string
	Zookie      string
}

// CheckResult is the evaluator's answer. StrongestRelation is a diagnostic
// only (spec.md §4.5) -- it is never required for the allow/deny decision.
type CheckResult struct {
	Allowed           bool
	StrongestRelation string
}

// ReduceableCheckFunc is one branch of a fan-out; it reports its outcome on
// resultChan, mirroring the teacher's ReduceableExpandFunc/resultChan
// concurrency shape used here for inherited and userset edges.
type ReduceableCheckFunc func(ctx context.Context, resultChan chan<- checkBranch)

type checkBranch struct {
	result CheckResult
	err    error
}

// Checker evaluates single permission checks against a Datastore and
// optionally consults a Cache. Construct with NewChecker.
type Checker struct {
	store datastore.Datastore
	cache cache.Cache
}

// NewChecker builds a Checker. cache may be nil to bypass caching entirely.
func NewChecker(store datastore.Datastore, c cache.Cache) *Checker {
	return &Checker{store: store, cache: c}
}

// Check runs the full check pipeline of spec.md §4.5: cache lookup, then
// (on miss) recursive evaluation, then a best-effort cache write.
func (c *Checker) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	if req.SubjectType == "" {
		req.SubjectType = tuple.UserTypeUser
	}

	key := cache.CheckKey(req.Namespace, req.ObjectID, req.Relation, req.SubjectType, req.SubjectID)

	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed, falling back to evaluator")
		} else if ok {
			cached, err := cache.DecodeCheckResult(raw)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache entry malformed, treating as miss")
			} else if !staleForSnapshot(cached, req.Zookie) {
				return CheckResult{Allowed: cached.Allowed}, nil
			}
		}
	}

	result, err := c.evaluate(ctx, req)
	if err != nil {
		return CheckResult{}, err
	}

	if c.cache != nil {
		entry := cache.CheckResult{
			Allowed:        result.Allowed,
			CachedAtMicros: time.Now().UnixMicro(),
			OriginalZookie: req.Zookie,
		}
		if encoded, encErr := entry.Encode(); encErr != nil {
			log.Warn().Err(encErr).Msg("failed to encode check result for caching")
		} else if setErr := c.cache.Set(ctx, key, encoded, cache.CheckTTL); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("cache set failed")
		}
	}

	return result, nil
}

// evaluate is the recursive DFS of spec.md §4.5, entered fresh (a new
// visited set) for every top-level check.
func (c *Checker) evaluate(ctx context.Context, req CheckRequest) (CheckResult, error) {
	v := &visitedSet{seen: make(map[string]struct{})}
	return c.check(ctx, req, v)
}

type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// enter returns false if key was already visited (the caller must return
// false immediately per spec.md §4.5's cycle-detection rule), otherwise
// marks it visited and returns true.
func (v *visitedSet) enter(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (c *Checker) check(ctx context.Context, req CheckRequest, visited *visitedSet) (CheckResult, error) {
	key := tuple.CanonicalKey(req.Namespace, req.ObjectID, req.Relation, req.SubjectType, req.SubjectID)
	if !visited.enter(key) {
		return CheckResult{Allowed: false}, nil
	}

	// 1. Direct edge.
	direct := tuple.RelationTuple{
		Namespace:   req.Namespace,
		ObjectID:    req.ObjectID,
		Relation:    req.Relation,
		SubjectType: req.SubjectType,
		SubjectID:   req.SubjectID,
	}
	_, found, err := c.store.FindDirect(ctx, direct)
	if err != nil {
		return CheckResult{}, err
	}
	if found {
		return CheckResult{Allowed: true, StrongestRelation: req.Relation}, nil
	}

	// 2 & 3. Inherited edges and userset edges, dispatched concurrently;
	// first allow wins (short-circuit OR, spec.md §4.5).
	var branches []ReduceableCheckFunc

	for _, grantor := range relation.Grantors(req.Relation) {
		branches = append(branches, c.inheritedBranch(req, grantor, visited))
	}

	usersetRows, err := c.store.FindUsersetMembers(ctx, req.Namespace, req.ObjectID, req.Relation)
	if err != nil {
		return CheckResult{}, err
	}
	for _, row := range usersetRows {
		if row.SubjectType != "userset" {
			continue
		}
		us, ok := tuple.ParseUserset(row.SubjectID)
		if !ok {
			continue
		}
		branches = append(branches, c.usersetBranch(req, us, visited))
	}

	if len(branches) == 0 {
		return CheckResult{Allowed: false}, nil
	}

	return anyCheck(ctx, branches)
}

func (c *Checker) inheritedBranch(req CheckRequest, impliedRelation string, visited *visitedSet) ReduceableCheckFunc {
	return func(ctx context.Context, resultChan chan<- checkBranch) {
		sub := req
		sub.Relation = impliedRelation
		result, err := c.check(ctx, sub, visited)
		resultChan <- checkBranch{result: result, err: err}
	}
}

func (c *Checker) usersetBranch(req CheckRequest, us tuple.Userset, visited *visitedSet) ReduceableCheckFunc {
	return func(ctx context.Context, resultChan chan<- checkBranch) {
		sub := CheckRequest{
			Namespace:   us.Namespace,
			ObjectID:    us.ObjectID,
			Relation:    us.Relation,
			SubjectType: req.SubjectType,
			SubjectID:   req.SubjectID,
		}
		result, err := c.check(ctx, sub, visited)
		resultChan <- checkBranch{result: result, err: err}
	}
}

// staleForSnapshot reports whether a cached entry predates the requested
// snapshot and must be treated as a miss. An entry with no recorded zookie,
// or a request with no (or an undecodable) zookie, is never considered
// stale; an entry whose recorded zookie cannot be decoded always is.
func staleForSnapshot(cached cache.CheckResult, requested string) bool {
	if requested == "" || cached.OriginalZookie == "" {
		return false
	}

	req, err := zookie.Decode(requested)
	if err != nil {
		return false
	}
	orig, err := zookie.Decode(cached.OriginalZookie)
	if err != nil {
		return true
	}
	return req.IsNewerThan(orig)
}

// anyCheck runs every branch concurrently and returns the first allow, or
// the first error, or a deny once all branches complete -- the concurrent
// equivalent of the teacher's ExpandAny reducer.
func anyCheck(ctx context.Context, branches []ReduceableCheckFunc) (CheckResult, error) {
	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultChan := make(chan checkBranch, len(branches))
	for _, branch := range branches {
		go branch(childCtx, resultChan)
	}

	var firstErr error
	for range branches {
		select {
		case res := <-resultChan:
			if res.err != nil {
				if firstErr == nil {
					firstErr = res.err
				}
				continue
			}
			if res.result.Allowed {
				return res.result, nil
			}
		case <-ctx.Done():
			return CheckResult{}, ctx.Err()
		}
	}

	if firstErr != nil {
		return CheckResult{}, firstErr
	}
	return CheckResult{Allowed: false}, nil
}
