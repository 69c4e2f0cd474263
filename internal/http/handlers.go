package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"custos/internal/core"
	applog "custos/internal/log"
	"custos/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		BodyJSON(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(s.started).Round(time.Second).String(),
		}).
		Write(w)
}

// handleReady reports ready once a load has completed and templates are
// parsed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.dashboard.Ready() {
		checks["data"] = "ok"
	} else {
		checks["data"] = "no successful load yet"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	limits := s.refreshLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": limits.ClientCount,
		"limited_total":  limits.TotalHits,
	}

	NewHTMXResponse().
		Status(httpStatus).
		BodyJSON(map[string]any{
			"status":    status,
			"source":    s.dashboard.SourceKey(),
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleLoads lists recent loads, newest first.
func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := s.dashboard.RecentLoads(r.Context(), ParseLimit(r.URL.Query()))
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List loads failed", applog.FieldError, err)
		JSONError(http.StatusInternalServerError, "could not read load history").Write(w)
		return
	}
	NewHTMXResponse().BodyJSON(map[string]any{"loads": loads}).Write(w)
}

// handleRefresh drops the cached sheet and loads it again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.dashboard.Refresh(ctx)
	logger.InfoContext(r.Context(), "Refresh requested",
		applog.FieldOperation, applog.OpRefresh,
		applog.FieldLoadID, res.ID,
		applog.FieldOutcome, res.Outcome.Status)

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		if errors.Is(err, core.ErrSchema) {
			status = http.StatusUnprocessableEntity
		}
	}

	resp := NewHTMXResponse().Status(status)
	if isHTMX(r) {
		resp.TriggerDashboardRefresh(res.ID, res.Outcome.Status)
		switch {
		case err != nil:
			resp.TriggerErrorNotification(err.Error())
		case res.Outcome.Status == services.StatusUpstreamFailure:
			resp.TriggerNotification(NotificationWarning, "Não foi possível carregar os dados.", 5000)
		default:
			resp.TriggerSuccessNotification("Dados atualizados.")
		}
		// failures reach the page through the notification trigger
		resp.Status(http.StatusOK)
	}
	resp.BodyJSON(res).Write(w)
}

// handleRateLimited answers a throttled refresh.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.Extract(r),
		applog.FieldPath, r.URL.Path)
	resp := JSONError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
	if isHTMX(r) {
		resp.TriggerErrorNotification("Muitas atualizações. Tente novamente em instantes.")
	}
	resp.Write(w)
}
