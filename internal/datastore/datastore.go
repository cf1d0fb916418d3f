// Package datastore defines the tuple-store capability (SPEC_FULL.md §5.3,
// spec.md §4.3): persistence across the four logical indices, changelog
// recording, and point/range lookups. Implementations live in
// internal/datastore/memdb (tests, local/dev) and internal/datastore/scylla
// (production), plus a read-only internal/datastore/proxy decorator.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

// Operation names a changelog entry's mutation kind.
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationDelete Operation = "DELETE"
)

// ChangelogEntry is an append-only record of a single tuple mutation,
// matching the `changelog` table described in spec.md §4.3/§6.
type ChangelogEntry struct {
	ID        uuid.UUID
	Tuple     tuple.RelationTuple
	Operation Operation
	Timestamp time.Time
}

// NewChangelogEntry stamps a fresh changelog entry for a mutation.
func NewChangelogEntry(t tuple.RelationTuple, op Operation) ChangelogEntry {
	return ChangelogEntry{
		ID:        uuid.New(),
		Tuple:     t,
		Operation: op,
		Timestamp: time.Now(),
	}
}

// Datastore is the tuple-store contract of spec.md §4.3. Every operation
// must be satisfied regardless of the physical storage chosen; the
// cross-index atomicity caveat in §4.3/§9 is the implementer's to surface
// as a *DatabaseError on partial failure, not to paper over.
type Datastore interface {
	// Insert writes tuple to all four logical indices and appends an
	// INSERT changelog entry.
	Insert(ctx context.Context, t tuple.RelationTuple) error

	// Delete removes tuple (matched by full identity) from all four
	// logical indices and appends a DELETE changelog entry.
	Delete(ctx context.Context, t tuple.RelationTuple) error

	// FindDirect is an equality lookup on the full tuple identity.
	FindDirect(ctx context.Context, t tuple.RelationTuple) (tuple.RelationTuple, bool, error)

	// FindByObject returns every tuple recorded on (namespace, objectID).
	FindByObject(ctx context.Context, namespace, objectID string) ([]tuple.RelationTuple, error)

	// FindByObjectRelation returns every tuple on (namespace, objectID,
	// relation), including userset entries. This is the hot path for
	// userset expansion (spec.md §4.5 step 3).
	FindByObjectRelation(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error)

	// FindUserMemberships returns every tuple where subject_type="user"
	// and subject_id=userID.
	FindUserMemberships(ctx context.Context, userID string) ([]tuple.RelationTuple, error)

	// FindUsersetMembers has the same shape as FindByObjectRelation,
	// exposed separately per spec.md §4.3 for call-site clarity.
	FindUsersetMembers(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error)

	// RecordChange appends a changelog entry without otherwise mutating
	// the indices (used by implementations that don't derive it from
	// Insert/Delete automatically).
	RecordChange(ctx context.Context, entry ChangelogEntry) error

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error
}

// ErrReadOnly is returned by the read-only proxy for any write attempt.
var ErrReadOnly = errors.New("datastore: write attempted against a read-only datastore")

// DatabaseError wraps a backend failure that the caller should treat as
// fatal for the request (spec.md §7, "Database" error class).
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("datastore: %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError wraps err as a DatabaseError tagged with the failing
// operation name.
func NewDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}

// PreconditionFailedError is returned when a caller-supplied precondition
// tuple was expected to exist (or not exist) and didn't match storage.
type PreconditionFailedError struct {
	Tuple tuple.RelationTuple
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("datastore: precondition failed for tuple %s", e.Tuple.String())
}

// NewPreconditionFailedError constructs a PreconditionFailedError for t.
func NewPreconditionFailedError(t tuple.RelationTuple) error {
	return &PreconditionFailedError{Tuple: t}
}
