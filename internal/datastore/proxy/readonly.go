// Package proxy provides datastore decorators that wrap a
// datastore.Datastore without changing its storage backend.
package proxy

import (
	"context"

	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

type roDatastore struct {
	delegate datastore.Datastore
}

// NewReadOnlyDatastore wraps delegate so that Insert, Delete, and
// RecordChange always fail with datastore.ErrReadOnly, while every read
// operation passes through unchanged. Used to run a replica node that
// serves Check/Read traffic without accepting Write requests.
func NewReadOnlyDatastore(delegate datastore.Datastore) datastore.Datastore {
	return roDatastore{delegate: delegate}
}

func (rd roDatastore) Insert(ctx context.Context, t tuple.RelationTuple) error {
	return datastore.ErrReadOnly
}

func (rd roDatastore) Delete(ctx context.Context, t tuple.RelationTuple) error {
	return datastore.ErrReadOnly
}

func (rd roDatastore) RecordChange(ctx context.Context, entry datastore.ChangelogEntry) error {
	return datastore.ErrReadOnly
}

func (rd roDatastore) FindDirect(ctx context.Context, t tuple.RelationTuple) (tuple.RelationTuple, bool, error) {
	return rd.delegate.FindDirect(ctx, t)
}

func (rd roDatastore) FindByObject(ctx context.Context, namespace, objectID string) ([]tuple.RelationTuple, error) {
	return rd.delegate.FindByObject(ctx, namespace, objectID)
}

func (rd roDatastore) FindByObjectRelation(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	return rd.delegate.FindByObjectRelation(ctx, namespace, objectID, relation)
}

func (rd roDatastore) FindUserMemberships(ctx context.Context, userID string) ([]tuple.RelationTuple, error) {
	return rd.delegate.FindUserMemberships(ctx, userID)
}

func (rd roDatastore) FindUsersetMembers(ctx context.Context, namespace, objectID, relation string) ([]tuple.RelationTuple, error) {
	return rd.delegate.FindUsersetMembers(ctx, namespace, objectID, relation)
}

func (rd roDatastore) Ping(ctx context.Context) error {
	return rd.delegate.Ping(ctx)
}
