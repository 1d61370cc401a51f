package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinLookupCodeLength is the shortest input a code lookup will attempt
const MinLookupCodeLength = 3

// Ticket is an admission issued to a named holder
type Ticket struct {
	ID        string        `json:"id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Surname   string        `json:"surname"`
	EventID   *string       `json:"event_id"`
	Used      bool          `json:"used"`
	UsedAt    *time.Time    `json:"used_at"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Event     *EventSummary `json:"event,omitempty"`
}

// NewTicket builds an unused ticket. name and surname are trimmed.
func NewTicket(code, name, surname string, eventID *string, now time.Time) *Ticket {
	return &Ticket{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      strings.TrimSpace(name),
		Surname:   strings.TrimSpace(surname),
		EventID:   eventID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HolderName returns "Name Surname"
func (t *Ticket) HolderName() string {
	return strings.TrimSpace(t.Name + " " + t.Surname)
}

// Consistent reports whether used agrees with usedAt
func (t *Ticket) Consistent() bool {
	return t.Used == (t.UsedAt != nil)
}

// Clone returns a deep copy safe to hand across goroutines
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.EventID != nil {
		id := *t.EventID
		c.EventID = &id
	}
	if t.UsedAt != nil {
		at := *t.UsedAt
		c.UsedAt = &at
	}
	if t.Event != nil {
		ev := *t.Event
		c.Event = &ev
	}
	return &c
}

// NormalizeCode trims and upper-cases raw scanner or keyboard input and
// rejects anything too short to look up
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) < MinLookupCodeLength {
		return "", ErrInvalidTicketCode
	}
	return code, nil
}

// RedemptionStatus is the outcome of a redemption transition
type RedemptionStatus string

const (
	// RedemptionUsed means the call moved the ticket from unused to used
	RedemptionUsed RedemptionStatus = "used"
	// RedemptionAlreadyUsed means the ticket was used before the call
	RedemptionAlreadyUsed RedemptionStatus = "already_used"
	// RedemptionReverted means the call moved the ticket back to unused
	RedemptionReverted RedemptionStatus = "reverted"
	// RedemptionAlreadyUnused means there was nothing to revert
	RedemptionAlreadyUnused RedemptionStatus = "already_unused"
)

// RedemptionResult carries the ticket as stored after the call
type RedemptionResult struct {
	Status RedemptionStatus `json:"status"`
	Ticket *Ticket          `json:"ticket"`
}

// Transitioned reports whether the call changed the stored state
func (r *RedemptionResult) Transitioned() bool {
	return r.Status == RedemptionUsed || r.Status == RedemptionReverted
}

// RedemptionSource names where a redemption came from
type RedemptionSource string

const (
	SourceScan    RedemptionSource = "scan"
	SourceManual  RedemptionSource = "manual"
	SourceToggle  RedemptionSource = "toggle"
	SourceUnknown RedemptionSource = "unknown"
)

// TicketFilter narrows ticket listings
type TicketFilter struct {
	EventID *string
	Used    *bool
	Search  string
	Limit   int
	Offset  int
}

// TicketUpdate holds the holder fields a partial update may change.
// Nil fields are left untouched.
type TicketUpdate struct {
	Name    *string
	Surname *string
	EventID *string
}

// TicketStats summarises redemption progress
type TicketStats struct {
	Total     int64   `json:"total"`
	Used      int64   `json:"used"`
	Unused    int64   `json:"unused"`
	UsageRate float64 `json:"usage_rate"`
}

// NewTicketStats derives unused count and usage percentage
func NewTicketStats(total, used int64) *TicketStats {
	s := &TicketStats{Total: total, Used: used, Unused: total - used}
	if total > 0 {
		s.UsageRate = float64(used) / float64(total) * 100
	}
	return s
}

// ActivityEntry is one line of the scan activity feed
type ActivityEntry struct {
	ID         string           `json:"id"`
	TicketID   string           `json:"ticket_id"`
	Code       string           `json:"code"`
	HolderName string           `json:"holder_name"`
	EventID    *string          `json:"event_id,omitempty"`
	EventName  string           `json:"event_name,omitempty"`
	Status     RedemptionStatus `json:"status"`
	Source     RedemptionSource `json:"source"`
	UsedAt     *time.Time       `json:"used_at,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewActivityEntry records a redemption outcome for the feed
func NewActivityEntry(result *RedemptionResult, source RedemptionSource, now time.Time) *ActivityEntry {
	t := result.Ticket
	entry := &ActivityEntry{
		ID:         uuid.New().String(),
		TicketID:   t.ID,
		Code:       t.Code,
		HolderName: t.HolderName(),
		EventID:    t.EventID,
		Status:     result.Status,
		Source:     source,
		UsedAt:     t.UsedAt,
		OccurredAt: now,
	}
	if t.Event != nil {
		entry.EventName = t.Event.Name
	}
	return entry
}
