package scylla

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

const (
	insertRelationTuples = `INSERT INTO relation_tuples (namespace, object_id, relation, user_type, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	insertUserMembership = `INSERT INTO user_memberships (user_id, user_type, namespace, object_id, relation, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	insertObjectPerm     = `INSERT INTO object_permissions (namespace, object_id, relation, user_type, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	insertRelationIndex  = `INSERT INTO relation_index (namespace, relation, object_id, user_type, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	insertChangelog      = `INSERT INTO changelog (id, namespace, object_id, relation, user_type, user_id, operation, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	deleteRelationTuples = `DELETE FROM relation_tuples WHERE namespace = ? AND object_id = ? AND relation = ? AND user_type = ? AND user_id = ?`
	deleteUserMembership = `DELETE FROM user_memberships WHERE user_id = ? AND user_type = ? AND namespace = ? AND object_id = ? AND relation = ?`
	deleteObjectPerm     = `DELETE FROM object_permissions WHERE namespace = ? AND object_id = ? AND relation = ? AND user_type = ? AND user_id = ?`
	deleteRelationIndex  = `DELETE FROM relation_index WHERE namespace = ? AND relation = ? AND object_id = ? AND user_type = ? AND user_id = ?`

	selectDirect           = `SELECT namespace, object_id, relation, user_type, user_id, created_at FROM relation_tuples WHERE namespace = ? AND object_id = ? AND relation = ? AND user_type = ? AND user_id = ?`
	selectByObject         = `SELECT namespace, object_id, relation, user_type, user_id, created_at FROM relation_tuples WHERE namespace = ? AND object_id = ?`
	selectByObjectRelation = `SELECT namespace, object_id, relation, user_type, user_id, created_at FROM relation_tuples WHERE namespace = ? AND object_id = ? AND relation = ?`
)

// Insert fans out to all four logical index tables and appends a
// changelog entry. Per spec.md §4.3/§9, this store provides no
// cross-table atomicity: a failure partway through surfaces as a database
// error, and the caller may retry idempotently on the tuple-identity key.
func (s *Store) Insert(ctx context.Context, t tuple.RelationTuple) error {
	ns, oid, rel, ut, uid := t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID

	statements := []struct {
		cql  string
		args []any
	}{
		{insertRelationTuples, []any{ns, oid, rel, ut, uid, t.CreatedAt}},
		{insertUserMembership, []any{uid, ut, ns, oid, rel, t.CreatedAt}},
		{insertObjectPerm, []any{ns, oid, rel, ut, uid, t.CreatedAt}},
		{insertRelationIndex, []any{ns, rel, oid, ut, uid, t.CreatedAt}},
	}

	for _, stmt := range statements {
		if err := s.session.Query(stmt.cql, stmt.args...).WithContext(ctx).Exec(); err != nil {
			return datastore.NewDatabaseError("insert", fmt.Errorf("partial index write failed: %w", err))
		}
	}

	return s.RecordChange(ctx, datastore.NewChangelogEntry(t, datastore.OperationInsert))
}

// Delete removes t from all four logical index tables by full identity
// and appends a changelog entry, with the same non-atomicity caveat as
// Insert.
func (s *Store) Delete(ctx context.Context, t tuple.RelationTuple) error {
	ns, oid, rel, ut, uid := t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID

	statements := []struct {
		cql  string
		args []any
	}{
		{deleteRelationTuples, []any{ns, oid, rel, ut, uid}},
		{deleteUserMembership, []any{uid, ut, ns, oid, rel}},
		{deleteObjectPerm, []any{ns, oid, rel, ut, uid}},
		{deleteRelationIndex, []any{ns, rel, oid, ut, uid}},
	}

	for _, stmt := range statements {
		if err := s.session.Query(stmt.cql, stmt.args...).WithContext(ctx).Exec(); err != nil {
			return datastore.NewDatabaseError("delete", fmt.Errorf("partial index delete failed: %w", err))
		}
	}

	return s.RecordChange(ctx, datastore.NewChangelogEntry(t, datastore.OperationDelete))
}

func (s *Store) FindDirect(ctx context.Context, t tuple.RelationTuple) (tuple.RelationTuple, bool, error) {
	var found tuple.RelationTuple
	err := s.session.Query(selectDirect, t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID).
		WithContext(ctx).
		Scan(&found.Namespace, &found.ObjectID, &found.Relation, &found.SubjectType, &found.SubjectID, &found.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return tuple.RelationTuple{}, false, nil
	}
	if err != nil {
		return tuple.RelationTuple{}, false, datastore.NewDatabaseError("find_direct", err)
	}
	return found, true, nil
}

func (s *Store) FindByObject(ctx context.Context, namespace, objectID string) ([]tuple.RelationTuple, error) {
	return s.scanAll(ctx, selectByObject, namespace, objectID)
}

func (s *Store) FindByObjectRelation(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	return s.scanAll(ctx, selectByObjectRelation, namespace, objectID, relation)
}

func (s *Store) FindUsersetMembers(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	return s.FindByObjectRelation(ctx, namespace, objectID, relation)
}

func (s *Store) FindUserMemberships(ctx context.Context, userID string) ([]tuple.RelationTuple, error) {
	iter := s.session.Query(`SELECT namespace, object_id, relation, user_type, user_id, created_at
		FROM user_memberships WHERE user_id = ? AND user_type = ?`, userID, tuple.UserTypeUser).WithContext(ctx).Iter()

	var out []tuple.RelationTuple
	var t tuple.RelationTuple
	for iter.Scan(&t.Namespace, &t.ObjectID, &t.Relation, &t.SubjectType, &t.SubjectID, &t.CreatedAt) {
		out = append(out, t)
	}
	if err := iter.Close(); err != nil {
		return nil, datastore.NewDatabaseError("find_user_memberships", err)
	}
	return out, nil
}

func (s *Store) RecordChange(ctx context.Context, entry datastore.ChangelogEntry) error {
	id := entry.ID
	if id == (uuid.UUID{}) {
		id = uuid.New()
	}
	t := entry.Tuple
	err := s.session.Query(insertChangelog,
		id, t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID, string(entry.Operation), entry.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		return datastore.NewDatabaseError("record_change", err)
	}
	return nil
}

func (s *Store) scanAll(ctx context.Context, cql string, args ...any) ([]tuple.RelationTuple, error) {
	iter := s.session.Query(cql, args...).WithContext(ctx).Iter()

	var out []tuple.RelationTuple
	var t tuple.RelationTuple
	for iter.Scan(&t.Namespace, &t.ObjectID, &t.Relation, &t.SubjectType, &t.SubjectID, &t.CreatedAt) {
		out = append(out, t)
	}
	if err := iter.Close(); err != nil {
		return nil, datastore.NewDatabaseError("query", err)
	}
	return out, nil
}
