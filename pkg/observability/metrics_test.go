package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.LoginRequestsTotal.WithLabelValues("ok").Inc()
	m.ValidationFailuresTotal.WithLabelValues("expired").Inc()
	m.ValidationFailuresTotal.WithLabelValues("bad-signature").Add(2)
	m.UsersProvisionedTotal.Inc()
	m.ReplayRejectionsTotal.Inc()

	if got := testutil.ToFloat64(m.LoginRequestsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected login counter 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailuresTotal.WithLabelValues("bad-signature")); got != 2 {
		t.Errorf("Expected failure counter 2, got %v", got)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	NewMetrics(registry)
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := m.InstrumentHandler("/sso/login", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest("POST", "/sso/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/sso/login", "401")); got != 1 {
		t.Errorf("Expected request counter 1, got %v", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.LoginRequestsTotal.WithLabelValues("ok").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(registry).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hubsso_login_requests_total") {
		t.Error("Expected exposition to contain hubsso_login_requests_total")
	}
}
