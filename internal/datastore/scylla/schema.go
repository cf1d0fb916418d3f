package scylla

const keyspace = "sentinel"

// bootstrapStatements creates the keyspace and the tables named in
// spec.md §6 "Persisted state": relation_tuples plus the three additional
// index tables (user_memberships, object_permissions, relation_index),
// namespaces, and changelog.
var bootstrapStatements = []string{
	`CREATE KEYSPACE IF NOT EXISTS sentinel
		WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1}`,

	`CREATE TABLE IF NOT EXISTS sentinel.relation_tuples (
		namespace text,
		object_id text,
		relation text,
		user_type text,
		user_id text,
		created_at timestamp,
		PRIMARY KEY ((namespace, object_id), relation, user_type, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sentinel.user_memberships (
		user_id text,
		user_type text,
		namespace text,
		object_id text,
		relation text,
		created_at timestamp,
		PRIMARY KEY ((user_id), user_type, namespace, object_id, relation)
	)`,

	`CREATE TABLE IF NOT EXISTS sentinel.object_permissions (
		namespace text,
		object_id text,
		relation text,
		user_type text,
		user_id text,
		created_at timestamp,
		PRIMARY KEY ((namespace, object_id), relation, user_type, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sentinel.relation_index (
		namespace text,
		relation text,
		object_id text,
		user_type text,
		user_id text,
		created_at timestamp,
		PRIMARY KEY ((namespace, relation), object_id, user_type, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sentinel.namespaces (
		name text PRIMARY KEY,
		config text,
		created_at timestamp,
		updated_at timestamp
	)`,

	`CREATE TABLE IF NOT EXISTS sentinel.changelog (
		id uuid,
		namespace text,
		object_id text,
		relation text,
		user_type text,
		user_id text,
		operation text,
		timestamp timestamp,
		PRIMARY KEY (id, timestamp)
	) WITH CLUSTERING ORDER BY (timestamp DESC)`,
}
