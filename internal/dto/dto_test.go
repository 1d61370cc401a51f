package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCreateEventRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateEventRequest
		want    bool
		wantMsg string
	}{
		{
			name: "valid calendar dates",
			req:  CreateEventRequest{Name: "Demo", StartDate: "2025-01-01", EndDate: "2025-01-02"},
			want: true,
		},
		{
			name: "valid timestamps",
			req:  CreateEventRequest{Name: "Demo", StartDate: "2025-01-01T18:00:00Z", EndDate: "2025-01-01T23:00:00Z"},
			want: true,
		},
		{
			name:    "missing name",
			req:     CreateEventRequest{Name: "  ", StartDate: "2025-01-01", EndDate: "2025-01-02"},
			want:    false,
			wantMsg: "Event name is required",
		},
		{
			name:    "missing dates",
			req:     CreateEventRequest{Name: "Demo"},
			want:    false,
			wantMsg: "Start date and end date are required",
		},
		{
			name:    "malformed start",
			req:     CreateEventRequest{Name: "Demo", StartDate: "01/01/2025", EndDate: "2025-01-02"},
			want:    false,
			wantMsg: "Invalid start date",
		},
		{
			name:    "end equals start",
			req:     CreateEventRequest{Name: "Demo", StartDate: "2025-01-01", EndDate: "2025-01-01"},
			want:    false,
			wantMsg: "End date must be after start date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := tt.req.Validate()
			if got != tt.want {
				t.Errorf("Validate() got = %v, want %v", got, tt.want)
			}
			if msg != tt.wantMsg {
				t.Errorf("Validate() msg = %v, want %v", msg, tt.wantMsg)
			}
		})
	}
}

func TestUpdateEventRequest_Validate(t *testing.T) {
	if ok, _ := (&UpdateEventRequest{Name: strPtr("New")}).Validate(); !ok {
		t.Error("expected name-only update to be valid")
	}
	if ok, msg := (&UpdateEventRequest{Name: strPtr("")}).Validate(); ok || msg != "Event name cannot be empty" {
		t.Errorf("unexpected result %v %q", ok, msg)
	}
	if ok, msg := (&UpdateEventRequest{EndDate: strPtr("tomorrow")}).Validate(); ok || msg != "Invalid end date" {
		t.Errorf("unexpected result %v %q", ok, msg)
	}
}

func TestCreateTicketRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTicketRequest
		want    bool
		wantMsg string
	}{
		{"valid", CreateTicketRequest{Name: "John", Surname: "Doe", EventID: "e1"}, true, ""},
		{"missing surname", CreateTicketRequest{Name: "John", EventID: "e1"}, false, "Name and surname are required"},
		{"blank name", CreateTicketRequest{Name: " ", Surname: "Doe", EventID: "e1"}, false, "Name and surname are required"},
		{"missing event", CreateTicketRequest{Name: "John", Surname: "Doe"}, false, "Event ID is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := tt.req.Validate()
			if got != tt.want || msg != tt.wantMsg {
				t.Errorf("Validate() = (%v, %q), want (%v, %q)", got, msg, tt.want, tt.wantMsg)
			}
		})
	}
}

func TestUpdateTicketRequest_HolderUpdate(t *testing.T) {
	used := true
	req := &UpdateTicketRequest{Used: &used}
	if ok, _ := req.Validate(); !ok {
		t.Fatal("used-only update should be valid")
	}
	if req.HolderUpdate() != nil {
		t.Error("used-only update should carry no holder changes")
	}

	req = &UpdateTicketRequest{Name: strPtr("  Jane ")}
	u := req.HolderUpdate()
	if u == nil || *u.Name != "Jane" || u.Surname != nil {
		t.Errorf("unexpected holder update %+v", u)
	}

	if ok, msg := (&UpdateTicketRequest{}).Validate(); ok || msg != "No fields to update" {
		t.Errorf("unexpected result %v %q", ok, msg)
	}
}

func TestTicketListFilter(t *testing.T) {
	f := &TicketListFilter{Used: "true", EventID: "e1", Limit: 1000}
	f.SetDefaults()
	if f.Limit != 50 {
		t.Errorf("Limit = %d, want 50", f.Limit)
	}
	df := f.ToDomain()
	if df.Used == nil || !*df.Used || df.EventID == nil || *df.EventID != "e1" {
		t.Errorf("unexpected domain filter %+v", df)
	}
	if ok, _ := (&TicketListFilter{Used: "maybe"}).Validate(); ok {
		t.Error("expected invalid used flag to fail")
	}
}

func TestTicketResponseFrom(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tk := domain.NewTicket("AB12CD34", "John", "Doe", nil, now)
	resp := TicketResponseFrom(tk)
	if resp.UsedAt != nil || resp.Used {
		t.Error("fresh ticket must be unused with null used_at")
	}
	if resp.Event != nil {
		t.Error("ticket without event must not embed one")
	}

	tk.Used, tk.UsedAt = true, &now
	tk.Event = &domain.EventSummary{ID: "e1", Name: "Demo", StartDate: now, EndDate: now.Add(24 * time.Hour)}
	resp = TicketResponseFrom(tk)
	if resp.UsedAt == nil || resp.Event == nil || resp.Event.EndDate != "2025-01-02T10:00:00Z" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestEventResponseFrom(t *testing.T) {
	e := &domain.Event{
		ID:        "e1",
		Name:      "Demo",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	resp := EventResponseFrom(e, 3)
	if resp.Date != "2025-01-01 - 2025-01-02" {
		t.Errorf("Date = %q", resp.Date)
	}
	if resp.TicketCount != 3 {
		t.Errorf("TicketCount = %d", resp.TicketCount)
	}
}

func TestEventResponseFrom_KeepsTimeOfDay(t *testing.T) {
	start, _ := ParseDate("2025-03-01T18:30:00+02:00")
	end, _ := ParseDate("2025-03-01T23:00:00Z")
	resp := EventResponseFrom(&domain.Event{ID: "e1", Name: "Gala", StartDate: start, EndDate: end}, 0)
	if resp.StartDate != "2025-03-01T16:30:00Z" || resp.EndDate != "2025-03-01T23:00:00Z" {
		t.Errorf("dates = %q, %q", resp.StartDate, resp.EndDate)
	}
	if resp.Date != "2025-03-01 - 2025-03-01" {
		t.Errorf("Date = %q", resp.Date)
	}
}

func TestRequests_AcceptBothKeySpellings(t *testing.T) {
	for _, body := range []string{
		`{"name":"Demo","startDate":"2025-01-01","endDate":"2025-01-02"}`,
		`{"name":"Demo","start_date":"2025-01-01","end_date":"2025-01-02"}`,
	} {
		var req CreateEventRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatal(err)
		}
		if req.Name != "Demo" || req.StartDate != "2025-01-01" || req.EndDate != "2025-01-02" {
			t.Errorf("%s decoded to %+v", body, req)
		}
	}

	var upd UpdateEventRequest
	if err := json.Unmarshal([]byte(`{"endDate":"2025-01-05"}`), &upd); err != nil {
		t.Fatal(err)
	}
	if upd.StartDate != nil || upd.EndDate == nil || *upd.EndDate != "2025-01-05" {
		t.Errorf("unexpected update %+v", upd)
	}

	for _, body := range []string{
		`{"name":"John","surname":"Doe","eventId":"e1"}`,
		`{"name":"John","surname":"Doe","event_id":"e1"}`,
	} {
		var req CreateTicketRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatal(err)
		}
		if req.EventID != "e1" || req.Surname != "Doe" {
			t.Errorf("%s decoded to %+v", body, req)
		}
	}

	var tu UpdateTicketRequest
	if err := json.Unmarshal([]byte(`{"event_id":"e2","used":true}`), &tu); err != nil {
		t.Fatal(err)
	}
	if tu.EventID == nil || *tu.EventID != "e2" || tu.Used == nil || !*tu.Used {
		t.Errorf("unexpected update %+v", tu)
	}
}

func TestTicketResponse_WireNames(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	eventID := "e1"
	raw, err := json.Marshal(TicketResponseFrom(domain.NewTicket("AB12CD34", "John", "Doe", &eventID, now)))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"eventId", "usedAt", "createdAt"} {
		if _, ok := out[key]; !ok {
			t.Errorf("missing %s in %s", key, raw)
		}
	}
	if out["usedAt"] != nil {
		t.Errorf("usedAt = %v, want null", out["usedAt"])
	}
}

func TestBulkIssueRequest_Validate(t *testing.T) {
	if ok, msg := (&BulkIssueRequest{}).Validate(10); ok || msg != "At least one ticket is required" {
		t.Errorf("unexpected result %v %q", ok, msg)
	}
	req := &BulkIssueRequest{Tickets: make([]BulkTicketRow, 3)}
	if ok, _ := req.Validate(2); ok {
		t.Error("expected row cap to be enforced")
	}
	if ok, _ := req.Validate(0); !ok {
		t.Error("zero cap means unlimited")
	}
}
