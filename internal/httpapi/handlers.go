package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/panlens/internal/service"
)

const (
	defaultPageSize = 100
)

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.svc.Configs()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, err := intParam(q.Get("page"), 1)
	if err != nil {
		s.writeError(w, &service.ValidationError{Msg: "page must be an integer"})
		return
	}
	size, err := intParam(q.Get("page_size"), defaultPageSize)
	if err != nil {
		s.writeError(w, &service.ValidationError{Msg: "page_size must be an integer"})
		return
	}
	disable := q.Get("disable_paging") == "true"

	result, err := s.svc.List(r.PathValue("config"), r.PathValue("kind"), q, pageNum, size, disable)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetByName(r.PathValue("config"), r.PathValue("kind"), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleFindByPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, &service.ValidationError{Msg: "path query parameter is required"})
		return
	}
	rec, err := s.svc.FindBySourcePath(r.PathValue("config"), path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.DeviceGroupSummary(r.PathValue("config"), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := s.svc.DeviceGroupSummaries(r.PathValue("config"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"summaries": sums})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.PathValue("config"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"statuses": s.svc.StatusAll()})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Retry(r.PathValue("config")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// writeError maps the service error taxonomy onto status codes. Filter
// degradation never reaches here; it is absorbed into empty results.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		failed     *service.ParseFailedError
	)
	switch {
	case errors.As(err, &validation):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": validation.Msg})
	case errors.As(err, &notFound):
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, service.ErrNotReady):
		w.Header().Set("Retry-After", "2")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	case errors.As(err, &failed):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := oj.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
