package services_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/internal/cache/inmemory"
	"github.com/sentinel-authz/sentinel/internal/datastore/memdb"
	"github.com/sentinel-authz/sentinel/internal/services"
	"github.com/sentinel-authz/sentinel/pkg/zookie"
)

func newTestServer(t *testing.T) (http.Handler, *memdb.Store) {
	t.Helper()
	store, err := memdb.New()
	require.NoError(t, err)

	c := inmemory.New()
	zm := zookie.NewManager(c, "test-node")
	s := services.NewServer(store, c, zm)
	return services.NewRouter(s), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteThenCheck(t *testing.T) {
	h, _ := newTestServer(t)

	writeRec := doJSON(t, h, http.MethodPost, "/api/v1/write", map[string]any{
		"updates": []map[string]any{
			{
				"operation": "Insert",
				"tuple": map[string]any{
					"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
				},
			},
		},
	})
	require.Equal(t, http.StatusOK, writeRec.Code)

	var writeResp services.WriteResponseJSON
	require.NoError(t, json.NewDecoder(writeRec.Body).Decode(&writeResp))
	require.NotEmpty(t, writeResp.Zookie)

	checkRec := doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
	})
	require.Equal(t, http.StatusOK, checkRec.Code)

	var checkResp services.CheckResponseJSON
	require.NoError(t, json.NewDecoder(checkRec.Body).Decode(&checkResp))
	require.True(t, checkResp.Allowed)
	require.NotEmpty(t, checkResp.Zookie)
}

func TestCheckDenyWhenNoTuple(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "eve",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.CheckResponseJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Allowed)
}

func TestReadValidationError(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/read", map[string]any{
		"tuple_filter": map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchCheck(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/v1/write", map[string]any{
		"updates": []map[string]any{
			{
				"operation": "Insert",
				"tuple": map[string]any{
					"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
				},
			},
		},
	})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/batch_check", map[string]any{
		"checks": []map[string]any{
			{"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice"},
			{"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "bob"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.BatchCheckResponseJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.TotalRequests)
	require.Equal(t, 1, resp.AllowedCount)
	require.Equal(t, 1, resp.DeniedCount)
}

// TestWritePartialFailureContinuesAndIssuesZookie asserts spec.md §7's
// write-batch propagation policy: a bad update among good ones doesn't
// abort the batch, the good updates still land, and a zookie is still
// issued because at least one update succeeded.
func TestWritePartialFailureContinuesAndIssuesZookie(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/write", map[string]any{
		"updates": []map[string]any{
			{
				"operation": "Insert",
				"tuple": map[string]any{
					"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
				},
			},
			{
				"operation": "Bogus",
				"tuple": map[string]any{
					"namespace": "documents", "object_id": "doc2", "relation": "viewer", "user_id": "bob",
				},
			},
			{
				"operation": "Insert",
				"tuple": map[string]any{
					"namespace": "documents", "object_id": "doc3", "relation": "viewer", "user_id": "carol",
				},
			},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp services.WritePartialFailureJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp.SuccessfulCount)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, 1, resp.Errors[0].Index)
	require.NotEmpty(t, resp.Response.Zookie, "a zookie must still be issued since at least one update succeeded")

	checkRec := doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
	})
	var checkResp services.CheckResponseJSON
	require.NoError(t, json.NewDecoder(checkRec.Body).Decode(&checkResp))
	require.True(t, checkResp.Allowed, "the update preceding the bad one must still have been applied")

	check3Rec := doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc3", "relation": "viewer", "user_id": "carol",
	})
	var check3Resp services.CheckResponseJSON
	require.NoError(t, json.NewDecoder(check3Rec.Body).Decode(&check3Resp))
	require.True(t, check3Resp.Allowed, "the update following the bad one must still have been applied")
}

func TestWriteInvalidatesCache(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/v1/write", map[string]any{
		"updates": []map[string]any{
			{"operation": "Insert", "tuple": map[string]any{
				"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
			}},
		},
	})
	doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
	})

	doJSON(t, h, http.MethodPost, "/api/v1/write", map[string]any{
		"updates": []map[string]any{
			{"operation": "Delete", "tuple": map[string]any{
				"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
			}},
		},
	})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/check", map[string]any{
		"namespace": "documents", "object_id": "doc1", "relation": "viewer", "user_id": "alice",
	})
	var resp services.CheckResponseJSON
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Allowed, "write invalidation must clear the stale cached allow")
}
