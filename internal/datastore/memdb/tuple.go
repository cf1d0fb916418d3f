package memdb

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

const (
	errUnableToWrite = "unable to write tuple: %w"
	errUnableToQuery = "unable to query tuples: %w"
)

// changelogRow is the changelog table's row shape; TimestampNano backs the
// timestamp index used for time-ordered scans. ID shadows the embedded
// entry's uuid.UUID with its 36-character string form, the only shape
// go-memdb's UUIDFieldIndex reads from an object.
type changelogRow struct {
	datastore.ChangelogEntry
	ID            string
	TimestampNano uint64
}

func (s *Store) Insert(ctx context.Context, t tuple.RelationTuple) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tableTuples, &t); err != nil {
		return datastore.NewDatabaseError("insert", fmt.Errorf(errUnableToWrite, err))
	}

	if err := s.recordChangeInTxn(txn, datastore.NewChangelogEntry(t, datastore.OperationInsert)); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (s *Store) Delete(ctx context.Context, t tuple.RelationTuple) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := findTuple(txn, t)
	if err != nil {
		return datastore.NewDatabaseError("delete", fmt.Errorf(errUnableToQuery, err))
	}
	if existing == nil {
		return nil
	}

	if err := txn.Delete(tableTuples, existing); err != nil {
		return datastore.NewDatabaseError("delete", fmt.Errorf(errUnableToWrite, err))
	}

	if err := s.recordChangeInTxn(txn, datastore.NewChangelogEntry(t, datastore.OperationDelete)); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (s *Store) FindDirect(ctx context.Context, t tuple.RelationTuple) (tuple.RelationTuple, bool, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	found, err := findTuple(txn, t)
	if err != nil {
		return tuple.RelationTuple{}, false, datastore.NewDatabaseError("find_direct", fmt.Errorf(errUnableToQuery, err))
	}
	if found == nil {
		return tuple.RelationTuple{}, false, nil
	}
	return *found, true, nil
}

func (s *Store) FindByObject(ctx context.Context, namespace, objectID string) ([]tuple.RelationTuple, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tableTuples, indexObject+"_prefix", namespace, objectID)
	if err != nil {
		return nil, datastore.NewDatabaseError("find_by_object", fmt.Errorf(errUnableToQuery, err))
	}
	return collect(iter, func(t *tuple.RelationTuple) bool { return t.ObjectID == objectID }), nil
}

func (s *Store) FindByObjectRelation(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tableTuples, indexObject+"_prefix", namespace, objectID, relation)
	if err != nil {
		return nil, datastore.NewDatabaseError("find_by_object_relation", fmt.Errorf(errUnableToQuery, err))
	}
	return collect(iter, func(t *tuple.RelationTuple) bool { return t.Relation == relation }), nil
}

func (s *Store) FindUserMemberships(ctx context.Context, userID string) ([]tuple.RelationTuple, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tableTuples, indexUser+"_prefix", tuple.UserTypeUser, userID)
	if err != nil {
		return nil, datastore.NewDatabaseError("find_user_memberships", fmt.Errorf(errUnableToQuery, err))
	}
	return collect(iter, func(t *tuple.RelationTuple) bool { return t.SubjectID == userID }), nil
}

// FindUsersetMembers has the same shape as FindByObjectRelation (spec.md
// §4.3), exposed separately for call-site clarity in the evaluator.
func (s *Store) FindUsersetMembers(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	return s.FindByObjectRelation(ctx, namespace, objectID, relation)
}

func (s *Store) RecordChange(ctx context.Context, entry datastore.ChangelogEntry) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := s.recordChangeInTxn(txn, entry); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) recordChangeInTxn(txn *memdb.Txn, entry datastore.ChangelogEntry) error {
	row := &changelogRow{ChangelogEntry: entry, ID: entry.ID.String(), TimestampNano: uint64(entry.Timestamp.UnixNano())}
	if err := txn.Insert(tableChangelog, row); err != nil {
		return datastore.NewDatabaseError("record_change", fmt.Errorf(errUnableToWrite, err))
	}
	return nil
}

func findTuple(txn *memdb.Txn, t tuple.RelationTuple) (*tuple.RelationTuple, error) {
	raw, err := txn.First(tableTuples, indexID, t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*tuple.RelationTuple), nil
}

// collect drains iter, keeping rows that match exactly. A "_prefix" scan
// treats its last argument as a string prefix ("doc1" also matches
// "doc10"), so keep checks that field for equality.
func collect(iter memdb.ResultIterator, keep func(*tuple.RelationTuple) bool) []tuple.RelationTuple {
	var out []tuple.RelationTuple
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		if t := raw.(*tuple.RelationTuple); keep(t) {
			out = append(out, *t)
		}
	}
	return out
}
