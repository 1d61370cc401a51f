package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/metrics"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	store    *repository.MemoryStore
	feed     *repository.MemoryActivityRepository
	registry *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	feed := repository.NewMemoryActivityRepository(100)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	clk := clock.NewManual(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))

	ticketRepo := store.Tickets()
	eventRepo := store.Events()
	resolver := service.NewCodeResolver(ticketRepo, nil, service.DefaultCodeMaxAttempts, m)
	redemption := service.NewRedemptionService(ticketRepo, service.NewDirectRedemptionPublisher(feed), m, clk)

	router := NewRouter(&RouterConfig{
		ServiceName: "scanner-test",
		Health:      NewHealthHandler(map[string]Pinger{"store": store, "redis": nil}),
		Event:       NewEventHandler(service.NewEventService(eventRepo, ticketRepo, clk)),
		Ticket: NewTicketHandler(
			service.NewTicketService(ticketRepo, eventRepo, resolver, redemption, m, clk),
			redemption,
		),
		Scan: NewScanHandler(redemption, service.NewActivityService(feed, ticketRepo, eventRepo)),
		Bulk: NewBulkHandler(service.NewBulkService(ticketRepo, eventRepo, resolver, m, clk, &service.BulkServiceConfig{MaxRows: 50})),

		HTTPMetrics: m,
		Gatherer:    reg,
	})

	return &testServer{router: router, store: store, feed: feed, registry: reg}
}

// envelope mirrors response.Response with raw data for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page    int   `json:"page"`
		PerPage int   `json:"per_page"`
		Total   int64 `json:"total"`
	} `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) createEvent(t *testing.T, name string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"name":      name,
		"startDate": "2025-01-01",
		"endDate":   "2025-01-02",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]interface{}](t, env)["id"].(string)
}

func (s *testServer) createTicket(t *testing.T, eventID, name, surname string) map[string]interface{} {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/tickets", map[string]string{
		"name":    name,
		"surname": surname,
		"eventId": eventID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]interface{}](t, env)
}

// failingPinger reports every ping as failed
type failingPinger struct{ err error }

func (p failingPinger) Ping(ctx context.Context) error { return p.err }
