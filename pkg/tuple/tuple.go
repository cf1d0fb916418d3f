// Package tuple defines the relation tuple, its canonical string form, and
// the userset-pointer encoding used by subject_type values other than "user".
package tuple

import (
	"fmt"
	"time"

	"github.com/jzelinskie/stringz"
)

// UserTypeUser is the subject_type for a direct principal.
const UserTypeUser = "user"

// UserTypeUserset is the subject_type for an indirect userset reference,
// whose SubjectID carries an encoded "NS:OBJ#REL" pointer.
const UserTypeUserset = "userset"

// RelationTuple is the atomic fact of the data model: subject S has
// relation R on object O in namespace N.
type RelationTuple struct {
	Namespace   string
	ObjectID    string
	Relation    string
	SubjectType string
	SubjectID   string
	CreatedAt   time.Time
}

// Identity returns the tuple-identity fields that form the uniqueness key.
func (t RelationTuple) Identity() (namespace, objectID, relation, subjectType, subjectID string) {
	return t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID
}

// String renders the canonical form used for logs, cache keys, and
// cycle-detection keys: namespace:object_id#relation@subject_type:subject_id
func (t RelationTuple) String() string {
	return CanonicalKey(t.Namespace, t.ObjectID, t.Relation, t.SubjectType, t.SubjectID)
}

// CanonicalKey builds the canonical string form from its parts without
// requiring a RelationTuple value.
func CanonicalKey(namespace, objectID, relation, subjectType, subjectID string) string {
	return fmt.Sprintf("%s:%s#%s@%s:%s", namespace, objectID, relation, subjectType, subjectID)
}

// Userset is a parsed "NS:OBJ#REL" subject pointer.
type Userset struct {
	Namespace string
	ObjectID  string
	Relation  string
}

// ParseUserset decodes a userset subject_id of the form "NS:OBJ#REL" by
// splitting on ':' and then on '#', each of which must occur exactly once
// (an extra ':' or '#' makes the id malformed). Malformed ids return false
// rather than an error -- callers are expected to skip the row silently
// (spec behavior, see SPEC_FULL.md §9 Open Question #4).
func ParseUserset(subjectID string) (Userset, bool) {
	var namespace, objectRelation string
	if err := stringz.SplitExact(subjectID, ":", &namespace, &objectRelation); err != nil {
		return Userset{}, false
	}

	var objectID, relation string
	if err := stringz.SplitExact(objectRelation, "#", &objectID, &relation); err != nil {
		return Userset{}, false
	}

	return Userset{Namespace: namespace, ObjectID: objectID, Relation: relation}, true
}

// EncodeUserset is the inverse of ParseUserset, producing the subject_id
// pointer stored on a userset tuple.
func EncodeUserset(namespace, objectID, relation string) string {
	return fmt.Sprintf("%s:%s#%s", namespace, objectID, relation)
}
