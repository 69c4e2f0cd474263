package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "custos/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})

	var observed int
	m := NewMiddleware(logger, func(*http.Request) string { return "198.51.100.1" },
		func(method string, status int, d time.Duration) { observed = status })

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		if applog.FromContext(r.Context()).Component() != applog.ComponentHTTP {
			t.Errorf("request logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard?cost_center=CC1", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("unexpected request id %q", seenID)
	}
	if rr.Header().Get(RequestIDHeader) != seenID {
		t.Fatalf("response header %q != %q", rr.Header().Get(RequestIDHeader), seenID)
	}
	if observed != http.StatusTeapot {
		t.Fatalf("observer saw %d", observed)
	}
	if m.TotalRequests() != 1 {
		t.Fatalf("total=%d", m.TotalRequests())
	}
	logged := buf.String()
	for _, want := range []string{`"status_code":418`, `"client_ip":"198.51.100.1"`, seenID} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %s: %s", want, logged)
		}
	}
}

func TestMiddlewareKeepsUpstreamRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("upstream id not kept: %q", rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.HasPrefix(rr.Header().Get(RequestIDHeader), "req_") {
		t.Fatalf("invalid upstream id should be replaced")
	}
}
