package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/view"
)

type pageRequest struct {
	Page int `json:"page"`
}

type toggleRequest struct {
	ID      int  `json:"id"`
	Checked bool `json:"checked"`
}

// togglePageRequest either reconciles the page against IDs or, when IDs is
// absent, checks or unchecks every row.
type togglePageRequest struct {
	Checked bool  `json:"checked"`
	IDs     []int `json:"ids,omitempty"`
}

type bulkRequest struct {
	Count *int `json:"count"`
}

type bulkResult struct {
	Added        []artwork.Record `json:"added"`
	Selected     int              `json:"selected"`
	FetchedPages []int            `json:"fetched_pages"`
	Skipped      int              `json:"skipped"`
	Saturated    bool             `json:"saturated"`
}

type bulkResponse struct {
	View   view.ViewState `json:"view"`
	Result bulkResult     `json:"result"`
}

type selectionResponse struct {
	Count   int              `json:"count"`
	Policy  string           `json:"policy"`
	Records []artwork.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed: redis unreachable")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	st, err := s.session.GoToPage(ctx, req.Page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleToggleRow(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.session.ToggleRow(req.ID, req.Checked)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTogglePage(w http.ResponseWriter, r *http.Request) {
	var req togglePageRequest
	if !s.decode(w, r, &req) {
		return
	}

	var (
		st  view.ViewState
		err error
	)
	if req.IDs != nil {
		st, err = s.session.ApplyPageSelection(req.IDs)
	} else {
		st, err = s.session.ToggleAll(req.Checked)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Count == nil {
		s.writeError(w, fmt.Errorf("%w: count is required", view.ErrInvalidCount))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	st, res, err := s.session.SubmitBulk(ctx, *req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{View: st, Result: toBulkResult(res)})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	records := s.session.SelectedRecords()
	writeJSON(w, http.StatusOK, selectionResponse{
		Count:   len(records),
		Policy:  s.session.Policy().String(),
		Records: records,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Clear())
}

func toBulkResult(res bulk.Result) bulkResult {
	out := bulkResult{
		Added:        res.Added,
		Selected:     res.Selected,
		FetchedPages: res.FetchedPages,
		Skipped:      res.Skipped,
		Saturated:    res.Saturated,
	}
	if out.Added == nil {
		out.Added = []artwork.Record{}
	}
	if out.FetchedPages == nil {
		out.FetchedPages = []int{}
	}
	return out
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, view.ErrInvalidPage),
		errors.Is(err, view.ErrInvalidCount),
		errors.Is(err, view.ErrNotOnPage):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrBulkInProgress),
		errors.Is(err, view.ErrStaleResponse),
		errors.Is(err, view.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Upstream request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
