package obs

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-survey-console/internal/routes"

	"github.com/gofiber/fiber/v2"
)

// value returns the sample of name whose labels contain every pair in want.
func value(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue next
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveRequest("GET", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", 401, time.Millisecond)
	m.ObserveRefresh("ok")
	m.ObserveDecision(routes.Decision{State: routes.Denied})
	m.ObserveCRUD("room", "create", nil)
	m.ObserveCRUD("room", "delete", errors.New("boom"))
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"console_upstream_requests_total", map[string]string{"method": "GET", "status": "200"}, 2},
		{"console_upstream_requests_total", map[string]string{"method": "POST", "status": "401"}, 1},
		{"console_upstream_request_duration_seconds", map[string]string{"method": "GET"}, 2},
		{"console_token_refreshes_total", map[string]string{"result": "ok"}, 1},
		{"console_gate_decisions_total", map[string]string{"state": "denied"}, 1},
		{"console_crud_operations_total", map[string]string{"schema": "room", "op": "create", "result": "ok"}, 1},
		{"console_crud_operations_total", map[string]string{"schema": "room", "op": "delete", "result": "error"}, 1},
		{"console_ws_clients", nil, 1},
	}
	for _, tt := range tests {
		if got := value(t, m, tt.name, tt.labels); got != tt.want {
			t.Fatalf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/enquiries/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	for _, path := range []string{"/enquiries/1", "/enquiries/2", "/missing"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
	}

	if got := value(t, m, "console_http_requests_total", map[string]string{"route": "/enquiries/:id", "status": "200"}); got != 2 {
		t.Fatalf("enquiry requests = %v", got)
	}
	if got := value(t, m, "console_http_requests_total", map[string]string{"route": "/missing", "status": "404"}); got != 1 {
		t.Fatalf("missing requests = %v", got)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `console_http_requests_total{method="GET",route="/enquiries/:id",status="200"} 2`) {
		t.Fatalf("exposition missing request counter:\n%s", body)
	}
}
