package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"custos/internal/core"
	applog "custos/internal/log"
	"custos/internal/services"
)

// buildReport parses the filter from r and asks the service for the
// dashboard. It returns the HTTP status to use when err is not nil.
func (s *Server) buildReport(r *http.Request) (services.Report, int, error) {
	f, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		return services.Report{}, http.StatusBadRequest, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rep, err := s.dashboard.Report(ctx, f)
	if err != nil {
		return rep, http.StatusInternalServerError, err
	}
	return rep, http.StatusOK, nil
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "index.html")
}

// handleDashboardPartial renders only the dashboard section, for htmx swaps.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, "dashboard")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, name string) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	rep, status, err := s.buildReport(r)
	view := newDashboardView(rep)
	if err != nil {
		var se *core.SchemaError
		switch {
		case errors.As(err, &se):
			logger.ErrorContext(r.Context(), "Dashboard unavailable, sheet schema invalid",
				applog.FieldError, err, applog.FieldOperation, applog.OpRender)
			view.SchemaError = se.Error()
		case status == http.StatusBadRequest:
			BadRequestError(err.Error()).Write(w)
			return
		default:
			logger.ErrorContext(r.Context(), "Dashboard build failed", applog.FieldError, err)
			InternalServerError("Erro ao montar o painel").Write(w)
			return
		}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, view); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
		InternalServerError("Erro ao renderizar o painel").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// dashboardResponse is the JSON shape of GET /api/dashboard.
type dashboardResponse struct {
	services.Report
	Empty bool `json:"empty"`
}

// handleDashboardJSON serves the dashboard data as JSON.
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.buildReport(r)
	if err != nil {
		var se *core.SchemaError
		if errors.As(err, &se) {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard unavailable, sheet schema invalid",
				applog.FieldError, err)
			NewHTMXResponse().
				Status(http.StatusUnprocessableEntity).
				BodyJSON(map[string]any{
					"error":   se.Error(),
					"column":  se.Header,
					"outcome": rep.Outcome,
				}).
				Write(w)
			return
		}
		if status != http.StatusBadRequest {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard build failed", applog.FieldError, err)
		}
		JSONError(status, err.Error()).Write(w)
		return
	}

	NewHTMXResponse().
		Header("Cache-Control", "no-store").
		BodyJSON(dashboardResponse{Report: rep, Empty: rep.Dashboard.Empty()}).
		Write(w)
}
