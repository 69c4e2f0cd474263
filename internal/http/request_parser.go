// Package http provides HTTP server and handler implementations.
//
// This file holds the parsing of dashboard query parameters.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"custos/internal/report"
)

// Query parameter names shared by the page, the partial and the JSON API.
const (
	paramCostCenter   = "cost_center"
	paramDocumentType = "document_type"
	paramFrom         = "from"
	paramTo           = "to"
	paramLimit        = "limit"
)

const (
	defaultLoadsLimit = 20
	maxLoadsLimit     = 200
	maxParamLength    = 128
)

// ParseFilterParams builds a report filter from query values. Missing
// values and "(Todos)" select everything.
func ParseFilterParams(query url.Values) (report.Filter, error) {
	for _, key := range []string{paramCostCenter, paramDocumentType, paramFrom, paramTo} {
		if len(query.Get(key)) > maxParamLength {
			return report.Filter{}, fmt.Errorf("parameter %s too long", key)
		}
	}
	f, err := report.ParseFilter(
		sanitizeInput(query.Get(paramCostCenter)),
		sanitizeInput(query.Get(paramDocumentType)),
		query.Get(paramFrom),
		query.Get(paramTo),
	)
	if err != nil {
		return report.Filter{}, fmt.Errorf("invalid date, expected YYYY-MM-DD: %w", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return report.Filter{}, fmt.Errorf("%s must not be after %s", paramFrom, paramTo)
	}
	return f, nil
}

// ParseLimit reads the limit parameter, clamped to [1, maxLoadsLimit].
func ParseLimit(query url.Values) int {
	v := strings.TrimSpace(query.Get(paramLimit))
	if v == "" {
		return defaultLoadsLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return defaultLoadsLimit
	}
	return min(n, maxLoadsLimit)
}

// RequireMethod validates the HTTP method and returns an error response if invalid.
// Returns nil if the method is allowed.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only endpoints.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for read-only endpoints.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// isHTMX reports whether r was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
