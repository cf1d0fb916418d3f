// Package memdb is the in-memory Datastore implementation backing unit
// tests and the local/dev profile (SPEC_FULL.md §5.3), adapted from the
// teacher's memdb tuple store. Four logical index tables are simulated by
// storing each tuple entry once per index schema.
package memdb

import (
	"github.com/hashicorp/go-memdb"
)

// Store is a datastore.Datastore backed by an in-process hashicorp/go-memdb
// database. It is not durable across restarts.
type Store struct {
	db *memdb.MemDB
}

// New constructs an empty Store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}
