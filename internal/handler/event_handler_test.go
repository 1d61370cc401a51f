package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
)

func TestEventHandler_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	id := s.createEvent(t, "Summer Fest")
	s.createTicket(t, id, "John", "Doe")

	w, env := s.do(t, http.MethodGet, "/api/v1/events/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	event := decode[dto.EventResponse](t, env)
	assert.Equal(t, "Summer Fest", event.Name)
	assert.Equal(t, "2025-01-01 - 2025-01-02", event.Date)
	assert.Equal(t, int64(1), event.TicketCount)
}

func TestEventHandler_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{
			name:    "missing name",
			body:    map[string]string{"start_date": "2025-01-01", "end_date": "2025-01-02"},
			status:  http.StatusBadRequest,
			message: "Event name is required",
		},
		{
			name:    "end before start",
			body:    map[string]string{"name": "Gig", "start_date": "2025-01-02", "end_date": "2025-01-01"},
			status:  http.StatusBadRequest,
			message: "End date must be after start date",
		},
		{
			name:   "malformed body",
			body:   "not an object",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/v1/events", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
			if tt.message != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.message, env.Error.Message)
			}
		})
	}
}

func TestEventHandler_GetUnknown(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/events/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestEventHandler_DeleteGuard(t *testing.T) {
	s := newTestServer(t)
	id := s.createEvent(t, "Summer Fest")
	ticket := s.createTicket(t, id, "John", "Doe")

	w, env := s.do(t, http.MethodDelete, "/api/v1/events/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "cannot delete event: 1 ticket still belongs to it", env.Error.Message)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/tickets/"+ticket["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/events/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEventHandler_UpdateAndList(t *testing.T) {
	s := newTestServer(t)
	id := s.createEvent(t, "Summer Fest")
	s.createEvent(t, "Winter Fest")

	w, env := s.do(t, http.MethodPut, "/api/v1/events/"+id, map[string]string{"name": "Spring Fest"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Spring Fest", decode[dto.EventResponse](t, env).Name)

	w, env = s.do(t, http.MethodPut, "/api/v1/events/"+id, map[string]string{"end_date": "2024-12-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/events?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
	assert.Equal(t, 1, env.Meta.PerPage)
	assert.Len(t, decode[[]dto.EventResponse](t, env), 1)
}
