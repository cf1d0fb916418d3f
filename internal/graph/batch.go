package graph

import (
	"context"
	"fmt"

	"github.com/sentinel-authz/sentinel/internal/cache"
)

// BatchCheckItem is one entry of a batch, tagged with its position in the
// caller's original request list.
type BatchCheckItem struct {
	Index   int
	Request CheckRequest
}

// BatchCheckOutcome is one reassembled result, carrying an error marker
// string instead of failing the whole batch on a per-item error (spec.md
// §4.6 step 5).
type BatchCheckOutcome struct {
	Index   int
	Allowed bool
	Error   string
}

// BatchCheck implements spec.md §4.6: dedup by canonical cache key,
// concurrent fan-out over unique keys, fan-in to every original index.
func (c *Checker) BatchCheck(ctx context.Context, items []BatchCheckItem) []BatchCheckOutcome {
	type group struct {
		request CheckRequest
		indices []int
	}

	groups := make(map[string]*group)
	var order []string
	for _, item := range items {
		req := item.Request
		if req.SubjectType == "" {
			req.SubjectType = "user"
		}
		key := cache.CheckKey(req.Namespace, req.ObjectID, req.Relation, req.SubjectType, req.SubjectID)
		g, ok := groups[key]
		if !ok {
			g = &group{request: req}
			groups[key] = g
			order = append(order, key)
		}
		g.indices = append(g.indices, item.Index)
	}

	type branchResult struct {
		key    string
		result CheckResult
		err    error
	}

	resultChan := make(chan branchResult, len(order))
	for _, key := range order {
		g := groups[key]
		go func(key string, req CheckRequest) {
			result, err := c.Check(ctx, req)
			resultChan <- branchResult{key: key, result: result, err: err}
		}(key, g.request)
	}

	outcomes := make([]BatchCheckOutcome, len(items))
	byIndex := make(map[int]BatchCheckOutcome, len(items))

	for range order {
		br := <-resultChan
		g := groups[br.key]
		for _, idx := range g.indices {
			if br.err != nil {
				byIndex[idx] = BatchCheckOutcome{Index: idx, Allowed: false, Error: fmt.Sprintf("evaluation error: %v", br.err)}
				continue
			}
			byIndex[idx] = BatchCheckOutcome{Index: idx, Allowed: br.result.Allowed}
		}
	}

	for i, item := range items {
		outcomes[i] = byIndex[item.Index]
	}
	return outcomes
}
