package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/schema"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": string(s.intro.Backend()),
	})
}

func (s *Server) listSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.intro.ListSchemas(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(schemas))
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	candidates := r.URL.Query()["schema"]
	if len(candidates) == 0 {
		candidates = s.searchPath
	}
	tables, err := s.intro.ListVisibleTables(r.Context(), candidates...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(tables))
}

func (s *Server) inspectTable(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := schema.InspectTable(r.Context(), s.intro, table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) describeColumns(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cols, err := s.intro.DescribeColumns(r.Context(), table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(cols))
}

func (s *Server) listForeignKeys(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fks, err := s.intro.ListForeignKeys(r.Context(), table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(fks))
}

func (s *Server) resolveRelations(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rel, err := schema.ResolveRelations(r.Context(), s.intro, table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rel)
}

func (s *Server) listIndexes(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.intro.ListIndexes(r.Context(), table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, idx)
}

func (s *Server) primaryKey(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pk, err := schema.PrimaryKeyColumn(r.Context(), s.intro, table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"column": pk})
}

// --- snapshots ---

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.writeError(w, errs.New(errs.ErrKindUnsupported, "snapshot storage is not configured"))
		return
	}
	objs, err := s.exporter.List(r.Context(), r.URL.Query().Get("backend"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(objs))
}

func (s *Server) captureSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.writeError(w, errs.New(errs.ErrKindUnsupported, "snapshot storage is not configured"))
		return
	}
	candidates := r.URL.Query()["schema"]
	if len(candidates) == 0 {
		candidates = s.searchPath
	}
	info, err := s.exporter.Capture(r.Context(), s.intro, candidates...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) snapshotURL(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.writeError(w, errs.New(errs.ErrKindUnsupported, "snapshot storage is not configured"))
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "key is required"))
		return
	}
	ttl := 15 * time.Minute
	if v := r.URL.Query().Get("ttl"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			s.writeError(w, errs.Newf(errs.ErrKindInvalidInput, "invalid ttl %q", v))
			return
		}
		ttl = d
	}
	u, err := s.exporter.URL(r.Context(), key, ttl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// --- helpers ---

// tableParam reads {table}, which may be "schema.table".
func tableParam(r *http.Request) (database.QName, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "table"))
	if err != nil {
		return database.QName{}, errs.Wrap(errs.ErrKindInvalidInput, "invalid table name", err)
	}
	name := database.ParseQName(raw)
	if err := name.Validate(); err != nil {
		return database.QName{}, err
	}
	return name, nil
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound, errs.ErrKindLookup:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindUnsupported:
		return http.StatusNotImplemented
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WarnErr("request failed", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WarnErr("failed to encode JSON response", err)
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
