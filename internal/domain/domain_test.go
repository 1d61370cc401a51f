package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("  Demo ", day, day.Add(24*time.Hour), day)
	require.NoError(t, err)
	assert.Equal(t, "Demo", e.Name)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "2025-01-01 - 2025-01-02", e.DateRange())

	_, err = NewEvent("Demo", day, day, day)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = NewEvent(" ", day, day.Add(time.Hour), day)
	assert.ErrorIs(t, err, ErrInvalidEventName)
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{" ab12cd34 ", "AB12CD34", false},
		{"abc", "ABC", false},
		{"ab", "", true},
		{"  a  ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCode(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidTicketCode, tt.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestTicket_ConsistentAndClone(t *testing.T) {
	eventID := "evt-1"
	tk := NewTicket("AB12CD34", " John ", "Doe ", &eventID, day)
	assert.Equal(t, "John", tk.Name)
	assert.Equal(t, "John Doe", tk.HolderName())
	assert.True(t, tk.Consistent())

	tk.Used = true
	assert.False(t, tk.Consistent())
	now := day.Add(time.Hour)
	tk.UsedAt = &now
	assert.True(t, tk.Consistent())

	c := tk.Clone()
	*c.EventID = "evt-2"
	*c.UsedAt = day
	assert.Equal(t, "evt-1", *tk.EventID)
	assert.Equal(t, now, *tk.UsedAt)
}

func TestEventHasTicketsError(t *testing.T) {
	one := &EventHasTicketsError{TicketCount: 1}
	assert.Equal(t, "cannot delete event: 1 ticket still belongs to it", one.Error())
	assert.Equal(t, "cannot delete event: 4 tickets still belong to it", (&EventHasTicketsError{TicketCount: 4}).Error())

	wrapped := fmt.Errorf("delete: %w", one)
	assert.True(t, errors.Is(wrapped, ErrEventHasTickets))
	assert.True(t, IsConflictError(wrapped))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFoundError(fmt.Errorf("x: %w", ErrTicketNotFound)))
	assert.True(t, IsValidationError(NewValidationError("name", "Name is required")))
	assert.True(t, IsValidationError(ErrInvalidTicketCode))
	assert.False(t, IsValidationError(ErrExhaustedRetries))
	assert.True(t, IsConflictError(ErrDuplicateCode))
	assert.True(t, IsConflictError(ErrTicketStateChanged))
}

func TestNewTicketStats(t *testing.T) {
	s := NewTicketStats(4, 1)
	assert.Equal(t, int64(3), s.Unused)
	assert.InDelta(t, 25.0, s.UsageRate, 0.001)

	assert.Zero(t, NewTicketStats(0, 0).UsageRate)
}

func TestNewActivityEntry(t *testing.T) {
	used := day.Add(time.Hour)
	tk := NewTicket("AB12CD34", "Jane", "Roe", nil, day)
	tk.Used, tk.UsedAt = true, &used
	tk.Event = &EventSummary{ID: "evt-1", Name: "Demo"}

	entry := NewActivityEntry(&RedemptionResult{Status: RedemptionUsed, Ticket: tk}, SourceScan, used)
	assert.Equal(t, "Jane Roe", entry.HolderName)
	assert.Equal(t, "Demo", entry.EventName)
	assert.Equal(t, RedemptionUsed, entry.Status)
	assert.Equal(t, SourceScan, entry.Source)
	assert.True(t, (&RedemptionResult{Status: RedemptionReverted}).Transitioned())
	assert.False(t, (&RedemptionResult{Status: RedemptionAlreadyUsed}).Transitioned())
}

func TestNewRedemptionEvent(t *testing.T) {
	tk := NewTicket("AB12CD34", "Jane", "Roe", nil, day)
	entry := NewActivityEntry(&RedemptionResult{Status: RedemptionUsed, Ticket: tk}, SourceManual, day)

	ev := NewRedemptionEvent(entry)
	assert.Equal(t, RedemptionEventType, ev.EventType)
	assert.Equal(t, tk.ID, ev.Key())
	assert.NotEmpty(t, ev.EventID)
	assert.True(t, ev.OccurredAt.Equal(day))
}
