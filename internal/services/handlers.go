// Package services implements the HTTP request orchestrator (SPEC_FULL.md
// §5.7, spec.md §4.7/§6): check, write, read, batch_check, and the
// permission-dump endpoints, wired on a chi router.
package services

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sentinel-authz/sentinel/internal/cache"
	"github.com/sentinel-authz/sentinel/internal/datastore"
	"github.com/sentinel-authz/sentinel/internal/graph"
	"github.com/sentinel-authz/sentinel/pkg/tuple"
	"github.com/sentinel-authz/sentinel/pkg/zookie"
)

// Server holds the wiring every handler needs: the tuple store, result
// cache, zookie manager, and the evaluator built atop them.
type Server struct {
	store   datastore.Datastore
	cache   cache.Cache
	zookies *zookie.Manager
	checker *graph.Checker
}

// NewServer constructs a Server from its three collaborators.
func NewServer(store datastore.Datastore, c cache.Cache, zookies *zookie.Manager) *Server {
	return &Server{
		store:   store,
		cache:   c,
		zookies: zookies,
		checker: graph.NewChecker(store, c),
	}
}

// NewRouter builds the chi router for the HTTP surface of spec.md §6.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", s.handleHealth)
	r.Get("/db-test", s.handleDBTest)
	r.Get("/scylla-test", s.handleDBTest)
	r.Get("/redis-test", s.handleCacheTest)
	r.Get("/cache-test", s.handleCacheTest)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/check", s.handleCheck)
		r.Post("/write", s.handleWrite)
		r.Post("/read", s.handleRead)
		r.Post("/batch_check", s.handleBatchCheck)
		r.Get("/users/{user_id}/permissions", s.handleUserPermissions)
		r.Get("/objects/{namespace}/{object_id}/permissions", s.handleObjectPermissions)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDBTest(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("datastore ping failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheTest(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("cache ping failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequestJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	snapshot, err := s.zookies.ValidateAndPickSnapshot(r.Context(), req.Zookie)
	if err != nil {
		writeError(w, err)
		return
	}

	subjectType := req.UserType
	if subjectType == "" {
		subjectType = tuple.UserTypeUser
	}

	encoded, err := snapshot.Encode()
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.checker.Check(r.Context(), graph.CheckRequest{
		Namespace:   req.Namespace,
		ObjectID:    req.ObjectID,
		Relation:    req.Relation,
		SubjectType: subjectType,
		SubjectID:   req.UserID,
		Zookie:      encoded,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckResponseJSON{Allowed: result.Allowed, Zookie: encoded})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req WriteRequestJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Updates) == 0 {
		writeError(w, newValidationError("updates must be non-empty"))
		return
	}

	ctx := r.Context()

	for _, precondition := range req.Preconditions {
		t := precondition.toRelationTuple()
		if _, found, err := s.store.FindDirect(ctx, t); err != nil {
			writeError(w, err)
			return
		} else if !found {
			writeError(w, datastore.NewPreconditionFailedError(t))
			return
		}
	}

	affectedObjects := make(map[string]struct{})
	affectedUsers := make(map[string]struct{})

	var writeErrors []WriteErrorJSON
	successCount := 0

	for i, update := range req.Updates {
		t := update.Tuple.toRelationTuple()

		var err error
		switch update.Operation {
		case "Insert":
			err = s.store.Insert(ctx, t)
		case "Delete":
			err = s.store.Delete(ctx, t)
		default:
			err = newValidationError("unknown operation: " + update.Operation)
		}
		if err != nil {
			writeErrors = append(writeErrors, WriteErrorJSON{Index: i, Error: err.Error()})
			continue
		}

		successCount++
		affectedObjects[cache.ObjectPattern(t.Namespace, t.ObjectID)] = struct{}{}
		if t.SubjectType == tuple.UserTypeUser {
			affectedUsers[cache.UserPattern(t.SubjectID)] = struct{}{}
		}
	}

	for pattern := range affectedObjects {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation failed")
		}
	}
	for pattern := range affectedUsers {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("cache invalidation failed")
		}
	}

	var encoded string
	if successCount > 0 {
		z, err := s.zookies.Generate(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		encoded, err = z.Encode()
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if len(writeErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, WritePartialFailureJSON{
			Error:           "some operations failed",
			SuccessfulCount: successCount,
			Errors:          writeErrors,
			Response:        WriteResponseJSON{Zookie: encoded},
		})
		return
	}

	writeJSON(w, http.StatusOK, WriteResponseJSON{Zookie: encoded})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequestJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	filter := req.TupleFilter

	var (
		results []tuple.RelationTuple
		err     error
	)
	switch {
	case filter.Namespace != "" && filter.ObjectID != "" && filter.Relation != "":
		results, err = s.store.FindByObjectRelation(ctx, filter.Namespace, filter.ObjectID, filter.Relation)
	case filter.Namespace != "" && filter.ObjectID != "":
		results, err = s.store.FindByObject(ctx, filter.Namespace, filter.ObjectID)
	case filter.UserID != "":
		results, err = s.store.FindUserMemberships(ctx, filter.UserID)
	default:
		err = newValidationError("tuple_filter must set namespace+object_id or user_id")
	}
	if err != nil {
		writeError(w, err)
		return
	}

	snapshot, err := s.zookies.ValidateAndPickSnapshot(ctx, req.Zookie)
	if err != nil {
		writeError(w, err)
		return
	}
	encoded, err := snapshot.Encode()
	if err != nil {
		writeError(w, err)
		return
	}

	tuples := make([]TupleJSON, 0, len(results))
	for _, t := range results {
		tuples = append(tuples, fromRelationTuple(t))
	}

	writeJSON(w, http.StatusOK, ReadResponseJSON{Tuples: tuples, NextPageToken: "", Zookie: encoded})
}

func (s *Server) handleBatchCheck(w http.ResponseWriter, r *http.Request) {
	var req BatchCheckRequestJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	snapshot, err := s.zookies.ValidateAndPickSnapshot(ctx, req.Zookie)
	if err != nil {
		writeError(w, err)
		return
	}

	encoded, err := snapshot.Encode()
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]graph.BatchCheckItem, len(req.Checks))
	for i, c := range req.Checks {
		subjectType := c.UserType
		if subjectType == "" {
			subjectType = tuple.UserTypeUser
		}
		items[i] = graph.BatchCheckItem{
			Index: i,
			Request: graph.CheckRequest{
				Namespace:   c.Namespace,
				ObjectID:    c.ObjectID,
				Relation:    c.Relation,
				SubjectType: subjectType,
				SubjectID:   c.UserID,
				Zookie:      encoded,
			},
		}
	}

	outcomes := s.checker.BatchCheck(ctx, items)

	results := make([]BatchCheckResultJSON, len(outcomes))
	allowedCount := 0
	for i, o := range outcomes {
		results[i] = BatchCheckResultJSON{RequestIndex: o.Index, Allowed: o.Allowed, RequestInfo: o.Error}
		if o.Allowed {
			allowedCount++
		}
	}

	writeJSON(w, http.StatusOK, BatchCheckResponseJSON{
		Results:       results,
		TotalRequests: len(results),
		AllowedCount:  allowedCount,
		DeniedCount:   len(results) - allowedCount,
		Zookie:        encoded,
	})
}

func (s *Server) handleUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	results, err := s.store.FindUserMemberships(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	tuples := make([]TupleJSON, 0, len(results))
	for _, t := range results {
		tuples = append(tuples, fromRelationTuple(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "permissions": tuples})
}

func (s *Server) handleObjectPermissions(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	objectID := chi.URLParam(r, "object_id")

	results, err := s.store.FindByObject(r.Context(), namespace, objectID)
	if err != nil {
		writeError(w, err)
		return
	}

	tuples := make([]TupleJSON, 0, len(results))
	for _, t := range results {
		tuples = append(tuples, fromRelationTuple(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespace": namespace, "object_id": objectID, "permissions": tuples,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return newValidationError("malformed request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, message := rewriteError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": message})
}
