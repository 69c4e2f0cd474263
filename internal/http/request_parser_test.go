package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseFilterParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantCC    string
		wantDoc   string
		wantFrom  string
		wantTo    string
		wantError bool
	}{
		{
			name:  "empty query selects everything",
			query: url.Values{},
		},
		{
			name:     "all values provided",
			query:    url.Values{"cost_center": {"CC1001"}, "document_type": {"AA"}, "from": {"2025-01-01"}, "to": {"2025-01-31"}},
			wantCC:   "CC1001",
			wantDoc:  "AA",
			wantFrom: "2025-01-01",
			wantTo:   "2025-01-31",
		},
		{
			name:  "all option clears the select",
			query: url.Values{"cost_center": {"(Todos)"}, "document_type": {"(Todos)"}},
		},
		{
			name:   "values are trimmed and stripped of control characters",
			query:  url.Values{"cost_center": {"  CC1\x00001 "}},
			wantCC: "CC1001",
		},
		{
			name:     "same day window",
			query:    url.Values{"from": {"2025-02-10"}, "to": {"2025-02-10"}},
			wantFrom: "2025-02-10",
			wantTo:   "2025-02-10",
		},
		{
			name:      "day first date is rejected",
			query:     url.Values{"from": {"10/02/2025"}},
			wantError: true,
		},
		{
			name:      "inverted window",
			query:     url.Values{"from": {"2025-03-01"}, "to": {"2025-02-01"}},
			wantError: true,
		},
		{
			name:      "oversized value",
			query:     url.Values{"cost_center": {strings.Repeat("x", maxParamLength+1)}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilterParams(tt.query)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got filter %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.CostCenter != tt.wantCC {
				t.Errorf("CostCenter = %q, want %q", f.CostCenter, tt.wantCC)
			}
			if f.DocumentType != tt.wantDoc {
				t.Errorf("DocumentType = %q, want %q", f.DocumentType, tt.wantDoc)
			}
			if got := isoDate(f.From); got != tt.wantFrom {
				t.Errorf("From = %q, want %q", got, tt.wantFrom)
			}
			if got := isoDate(f.To); got != tt.wantTo {
				t.Errorf("To = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func TestParseFilterParamsDatesAreUTCDays(t *testing.T) {
	f, err := ParseFilterParams(url.Values{"from": {"2025-01-05"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	if !f.From.Equal(want) {
		t.Errorf("From = %v, want %v", f.From, want)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", defaultLoadsLimit},
		{"5", 5},
		{" 7 ", 7},
		{"0", defaultLoadsLimit},
		{"-3", defaultLoadsLimit},
		{"abc", defaultLoadsLimit},
		{"100000", maxLoadsLimit},
	}

	for _, tt := range tests {
		t.Run("limit="+tt.value, func(t *testing.T) {
			got := ParseLimit(url.Values{"limit": {tt.value}})
			if got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		allowed  []string
		wantNil  bool
		wantCode int
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, true, 0},
		{"GET not allowed for POST", http.MethodGet, []string{http.MethodPost}, false, http.StatusMethodNotAllowed},
		{"multiple allowed", http.MethodHead, []string{http.MethodGet, http.MethodHead}, true, 0},
		{"DELETE not allowed", http.MethodDelete, []string{http.MethodGet, http.MethodPost}, false, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantNil {
				if result != nil {
					t.Error("Expected nil, got error response")
				}
				return
			}
			if result == nil {
				t.Fatal("Expected error response, got nil")
			}
			w := httptest.NewRecorder()
			result.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Header().Get("Allow") == "" {
				t.Error("Allow header not set")
			}
		})
	}
}

func TestRequireHelpers(t *testing.T) {
	if RequirePOST(httptest.NewRequest(http.MethodPost, "/", nil)) != nil {
		t.Error("RequirePOST rejected POST")
	}
	if RequirePOST(httptest.NewRequest(http.MethodGet, "/", nil)) == nil {
		t.Error("RequirePOST accepted GET")
	}
	if RequireGET(httptest.NewRequest(http.MethodHead, "/", nil)) != nil {
		t.Error("RequireGET rejected HEAD")
	}
	if RequireGET(httptest.NewRequest(http.MethodPost, "/", nil)) == nil {
		t.Error("RequireGET accepted POST")
	}
}

func TestIsHTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTMX(req) {
		t.Error("plain request reported as htmx")
	}
	req.Header.Set("HX-Request", "true")
	if !isHTMX(req) {
		t.Error("htmx request not detected")
	}
}
