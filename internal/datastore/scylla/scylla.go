// Package scylla is the production Datastore implementation, backed by
// ScyllaDB over gocql (SPEC_FULL.md §5.3). It fans out writes to the four
// logical index tables named in spec.md §4.3/§6 with raw CQL -- no query
// builder is needed since every statement here is a fixed shape.
package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
)

// Store is a datastore.Datastore backed by a gocql session against the
// sentinel keyspace.
type Store struct {
	session *gocql.Session
}

// Connect dials ScyllaDB at addr (host:port), bootstraps the keyspace and
// tables if missing, then reopens the session scoped to the keyspace.
func Connect(addr string) (*Store, error) {
	cluster := gocql.NewCluster(addr)
	cluster.Consistency = gocql.Quorum

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to scylla at %s: %w", addr, err)
	}
	defer bootstrap.Close()

	for _, stmt := range bootstrapStatements {
		if err := bootstrap.Query(stmt).Exec(); err != nil {
			return nil, fmt.Errorf("unable to bootstrap schema: %w", err)
		}
	}
	log.Info().Str("keyspace", keyspace).Msg("scylla schema bootstrapped")

	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("unable to open keyspace session: %w", err)
	}

	return &Store{session: session}, nil
}

// Close releases the underlying gocql session.
func (s *Store) Close() {
	s.session.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
}
