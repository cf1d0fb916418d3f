package services

import "github.com/sentinel-authz/sentinel/pkg/tuple"

// TupleJSON is the wire shape of a relation tuple (spec.md §6), using the
// external user_type/user_id naming over the internal subject_type/
// subject_id fields.
type TupleJSON struct {
	Namespace string `json:"namespace"`
	ObjectID  string `json:"object_id"`
	Relation  string `json:"relation"`
	UserType  string `json:"user_type,omitempty"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (t TupleJSON) toRelationTuple() tuple.RelationTuple {
	subjectType := t.UserType
	if subjectType == "" {
		subjectType = tuple.UserTypeUser
	}
	return tuple.RelationTuple{
		Namespace:   t.Namespace,
		ObjectID:    t.ObjectID,
		Relation:    t.Relation,
		SubjectType: subjectType,
		SubjectID:   t.UserID,
	}
}

func fromRelationTuple(t tuple.RelationTuple) TupleJSON {
	return TupleJSON{
		Namespace: t.Namespace,
		ObjectID:  t.ObjectID,
		Relation:  t.Relation,
		UserType:  t.SubjectType,
		UserID:    t.SubjectID,
		CreatedAt: t.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
	}
}

// CheckRequestJSON is the /api/v1/check request body.
type CheckRequestJSON struct {
	Namespace string `json:"namespace"`
	ObjectID  string `json:"object_id"`
	Relation  string `json:"relation"`
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type,omitempty"`
	Zookie    string `json:"zookie,omitempty"`
}

type CheckResponseJSON struct {
	Allowed bool   `json:"allowed"`
	Zookie  string `json:"zookie"`
}

// WriteUpdateJSON is one entry of a write batch.
type WriteUpdateJSON struct {
	Operation string    `json:"operation"`
	Tuple     TupleJSON `json:"tuple"`
}

type WriteRequestJSON struct {
	Updates       []WriteUpdateJSON `json:"updates"`
	Preconditions []TupleJSON       `json:"preconditions,omitempty"`
}

type WriteResponseJSON struct {
	Zookie string `json:"zookie,omitempty"`
}

// WritePartialFailureJSON is returned (HTTP 400) when at least one update in
// a write batch failed but processing continued across the rest, per
// spec.md §7's write-batch propagation policy: per-tuple errors are
// collected and returned alongside the successful count, and a zookie is
// still issued provided at least one update succeeded.
type WritePartialFailureJSON struct {
	Error           string            `json:"error"`
	SuccessfulCount int               `json:"successful_count"`
	Errors          []WriteErrorJSON  `json:"errors"`
	Response        WriteResponseJSON `json:"response"`
}

// WriteErrorJSON names the failing update by its position in the request's
// updates array alongside the error it produced.
type WriteErrorJSON struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// ReadFilterJSON mirrors spec.md §6's tuple_filter object.
type ReadFilterJSON struct {
	Namespace string `json:"namespace,omitempty"`
	ObjectID  string `json:"object_id,omitempty"`
	Relation  string `json:"relation,omitempty"`
	UserType  string `json:"user_type,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type ReadRequestJSON struct {
	TupleFilter ReadFilterJSON `json:"tuple_filter"`
	Zookie      string         `json:"zookie,omitempty"`
	PageSize    int            `json:"page_size,omitempty"`
	PageToken   string         `json:"page_token,omitempty"`
}

type ReadResponseJSON struct {
	Tuples        []TupleJSON `json:"tuples"`
	NextPageToken string      `json:"next_page_token"`
	Zookie        string      `json:"zookie"`
}

type BatchCheckRequestJSON struct {
	Checks []CheckRequestJSON `json:"checks"`
	Zookie string             `json:"zookie,omitempty"`
}

type BatchCheckResultJSON struct {
	RequestIndex int    `json:"request_index"`
	Allowed      bool   `json:"allowed"`
	RequestInfo  string `json:"request_info,omitempty"`
}

type BatchCheckResponseJSON struct {
	Results       []BatchCheckResultJSON `json:"results"`
	TotalRequests int                    `json:"total_requests"`
	AllowedCount  int                    `json:"allowed_count"`
	DeniedCount   int                    `json:"denied_count"`
	Zookie        string                 `json:"zookie"`
}
