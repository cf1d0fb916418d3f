package memdb

import "github.com/hashicorp/go-memdb"

// Table and index names. tableTuples backs all four logical indices named
// in spec.md §4.3 by storing the same entry under four index schemas;
// tableChangelog is the append-only mutation log.
const (
	tableTuples    = "tuples"
	tableChangelog = "changelog"

	indexID       = "id"       // full tuple identity, unique: by_object/by_object_perm shape
	indexObject   = "object"   // (namespace, object_id) prefix: find_by_object*
	indexUser     = "user"     // (subject_type, subject_id) prefix: find_user_memberships
	indexRelation = "relation" // (namespace, relation) prefix: find_by_relation (future expansion)

	indexChangelogID        = "id"
	indexChangelogTimestamp = "timestamp"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTuples: {
				Name: tableTuples,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:   indexID,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "ObjectID"},
								&memdb.StringFieldIndex{Field: "Relation"},
								&memdb.StringFieldIndex{Field: "SubjectType"},
								&memdb.StringFieldIndex{Field: "SubjectID"},
							},
						},
					},
					indexObject: {
						Name: indexObject,
						Indexer: &memdb.CompoundIndex{
							AllowMissing: true,
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "ObjectID"},
								&memdb.StringFieldIndex{Field: "Relation"},
								&memdb.StringFieldIndex{Field: "SubjectType"},
								&memdb.StringFieldIndex{Field: "SubjectID"},
							},
						},
					},
					indexUser: {
						Name: indexUser,
						Indexer: &memdb.CompoundIndex{
							AllowMissing: true,
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "SubjectType"},
								&memdb.StringFieldIndex{Field: "SubjectID"},
								&memdb.StringFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "ObjectID"},
								&memdb.StringFieldIndex{Field: "Relation"},
							},
						},
					},
					indexRelation: {
						Name: indexRelation,
						Indexer: &memdb.CompoundIndex{
							AllowMissing: true,
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "Relation"},
								&memdb.StringFieldIndex{Field: "ObjectID"},
								&memdb.StringFieldIndex{Field: "SubjectType"},
								&memdb.StringFieldIndex{Field: "SubjectID"},
							},
						},
					},
				},
			},
			tableChangelog: {
				Name: tableChangelog,
				Indexes: map[string]*memdb.IndexSchema{
					indexChangelogID: {
						Name:    indexChangelogID,
						Unique:  true,
						Indexer: &memdb.UUIDFieldIndex{Field: "ID"},
					},
					indexChangelogTimestamp: {
						Name:    indexChangelogTimestamp,
						Indexer: &memdb.UintFieldIndex{Field: "TimestampNano"},
					},
				},
			},
		},
	}
}
