package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedEvent is returned when a transaction event is missing fields
// the rule engine needs. Rejected before any rule work begins.
var ErrMalformedEvent = errors.New("transaction event is missing required fields")

// TransactionEvent is a single monetary movement. Read-only input to the
// AML rule engine; this is the event received from the transaction service.
type TransactionEvent struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	EntityID  uuid.UUID `json:"entity_id"`
	AccountID uuid.UUID `json:"account_id"`

	Type      string  `json:"type"`      // TRANSFER, DEPOSIT, WITHDRAWAL, PAYMENT
	Direction string  `json:"direction"` // INBOUND, OUTBOUND
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`

	SourceAccount      string `json:"source_account,omitempty"`
	DestinationAccount string `json:"destination_account,omitempty"`
	SourceCountry      string `json:"source_country,omitempty"`
	DestinationCountry string `json:"destination_country,omitempty"`

	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields rule evaluation cannot proceed without.
func (t *TransactionEvent) Validate() error {
	if t.ID == uuid.Nil || t.EntityID == uuid.Nil {
		return ErrMalformedEvent
	}
	if t.Amount <= 0 {
		return ErrMalformedEvent
	}
	if t.Timestamp.IsZero() {
		return ErrMalformedEvent
	}
	return nil
}

// IsInflow reports whether the movement adds funds to the account.
func (t *TransactionEvent) IsInflow() bool {
	return t.Direction == "INBOUND" || t.Type == "DEPOSIT"
}

// IsOutflow reports whether the movement removes funds from the account.
func (t *TransactionEvent) IsOutflow() bool {
	return t.Direction == "OUTBOUND" || t.Type == "WITHDRAWAL"
}

// IsCrossBorder reports whether the movement crosses country borders.
func (t *TransactionEvent) IsCrossBorder() bool {
	return t.SourceCountry != "" && t.DestinationCountry != "" &&
		t.SourceCountry != t.DestinationCountry
}

// CounterpartyName returns the name of the other party.
func (t *TransactionEvent) CounterpartyName() string {
	if t.Direction == "OUTBOUND" {
		return t.ReceiverName
	}
	return t.SenderName
}

// CounterpartyCountry returns the country of the other party.
func (t *TransactionEvent) CounterpartyCountry() string {
	if t.Direction == "OUTBOUND" {
		return t.DestinationCountry
	}
	return t.SourceCountry
}

// HistoryWindow is a bounded, time-ordered view of a subject's prior
// transactions, supplied by the history repository. The rule engine only
// reads it.
type HistoryWindow struct {
	EntityID uuid.UUID          `json:"entity_id"`
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	Events   []TransactionEvent `json:"events"` // ascending by timestamp
}

// Since returns the events at or after the cutoff.
func (w *HistoryWindow) Since(cutoff time.Time) []TransactionEvent {
	out := make([]TransactionEvent, 0, len(w.Events))
	for _, e := range w.Events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// CountSince returns the number of events at or after the cutoff.
func (w *HistoryWindow) CountSince(cutoff time.Time) int {
	return len(w.Since(cutoff))
}

// SumSince returns the total amount of events at or after the cutoff.
func (w *HistoryWindow) SumSince(cutoff time.Time) float64 {
	var sum float64
	for _, e := range w.Since(cutoff) {
		sum += e.Amount
	}
	return sum
}

// LastActivity returns the timestamp of the most recent event, or the zero
// time when the window is empty.
func (w *HistoryWindow) LastActivity() time.Time {
	if len(w.Events) == 0 {
		return time.Time{}
	}
	return w.Events[len(w.Events)-1].Timestamp
}
