package memdb_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/internal/datastore/memdb"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

func byIdentity(a, b tuple.RelationTuple) bool {
	return a.String() < b.String()
}

// TestFindByObjectReturnsExactTupleSet asserts FindByObject returns the
// precise set of tuples for an object -- no more, no less, and no
// duplication across the object-relation index -- the way the teacher's
// expand tests diff whole result trees rather than spot-checking fields.
func TestFindByObjectReturnsExactTupleSet(t *testing.T) {
	ctx := context.Background()
	store, err := memdb.New()
	require.NoError(t, err)

	want := []tuple.RelationTuple{
		{Namespace: "documents", ObjectID: "doc1", Relation: "viewer", SubjectType: "user", SubjectID: "alice"},
		{Namespace: "documents", ObjectID: "doc1", Relation: "editor", SubjectType: "user", SubjectID: "bob"},
	}
	for _, tp := range want {
		require.NoError(t, store.Insert(ctx, tp))
	}
	// Belongs to a different object; must not leak into the result.
	require.NoError(t, store.Insert(ctx, tuple.RelationTuple{
		Namespace: "documents", ObjectID: "doc2", Relation: "viewer", SubjectType: "user", SubjectID: "carol",
	}))

	got, err := store.FindByObject(ctx, "documents", "doc1")
	require.NoError(t, err)

	sort.Slice(got, func(i, j int) bool { return byIdentity(got[i], got[j]) })
	sort.Slice(want, func(i, j int) bool { return byIdentity(want[i], want[j]) })

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(tuple.RelationTuple{}, "CreatedAt")); diff != "" {
		t.Fatalf("FindByObject mismatch (-want +got):\n%s", diff)
	}
}

// TestDeleteRemovesExactTuple asserts Delete removes only the matching
// identity, leaving sibling tuples on the same object untouched.
func TestDeleteRemovesExactTuple(t *testing.T) {
	ctx := context.Background()
	store, err := memdb.New()
	require.NoError(t, err)

	kept := tuple.RelationTuple{
		Namespace: "documents", ObjectID: "doc1", Relation: "viewer", SubjectType: "user", SubjectID: "alice",
	}
	removed := tuple.RelationTuple{
		Namespace: "documents", ObjectID: "doc1", Relation: "viewer", SubjectType: "user", SubjectID: "bob",
	}
	require.NoError(t, store.Insert(ctx, kept))
	require.NoError(t, store.Insert(ctx, removed))

	require.NoError(t, store.Delete(ctx, removed))

	got, err := store.FindByObject(ctx, "documents", "doc1")
	require.NoError(t, err)

	want := []tuple.RelationTuple{kept}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(tuple.RelationTuple{}, "CreatedAt")); diff != "" {
		t.Fatalf("FindByObject mismatch after delete (-want +got):\n%s", diff)
	}
}
