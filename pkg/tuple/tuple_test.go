package tuple_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/pkg/tuple"
)

func TestCanonicalString(t *testing.T) {
	rt := tuple.RelationTuple{
		Namespace:   "documents",
		ObjectID:    "doc1",
		Relation:    "viewer",
		SubjectType: "user",
		SubjectID:   "alice",
	}
	require.Equal(t, "documents:doc1#viewer@user:alice", rt.String())
}

func TestParseUserset(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantOK  bool
		wantUS  tuple.Userset
	}{
		{
			name:   "well formed",
			in:     "team:backend#member",
			wantOK: true,
			wantUS: tuple.Userset{Namespace: "team", ObjectID: "backend", Relation: "member"},
		},
		{name: "missing colon", in: "teambackend#member", wantOK: false},
		{name: "missing hash", in: "team:backendmember", wantOK: false},
		{name: "extra colon", in: "team:backend:extra#member", wantOK: false},
		{name: "extra hash", in: "team:backend#member#extra", wantOK: false},
		{name: "empty", in: "", wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tuple.ParseUserset(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.Equal(t, tc.wantUS, got)
			}
		})
	}
}

func TestEncodeUsersetRoundTrip(t *testing.T) {
	encoded := tuple.EncodeUserset("team", "backend", "member")
	require.Equal(t, "team:backend#member", encoded)

	parsed, ok := tuple.ParseUserset(encoded)
	require.True(t, ok)
	require.Equal(t, "team", parsed.Namespace)
	require.Equal(t, "backend", parsed.ObjectID)
	require.Equal(t, "member", parsed.Relation)
}
