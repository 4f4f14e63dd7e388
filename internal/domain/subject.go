package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EntityType classifies the kind of entity being screened.
type EntityType string

const (
	EntityIndividual   EntityType = "INDIVIDUAL"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityVessel       EntityType = "VESSEL"
	EntityAircraft     EntityType = "AIRCRAFT"
)

// ErrMalformedSubject is returned when a screening subject is missing
// required fields. Rejected before any screening work begins.
var ErrMalformedSubject = errors.New("screening subject is missing required fields")

// ScreeningSubject is the entity checked against sanctions sources.
// Immutable input value, created per screening request.
type ScreeningSubject struct {
	EntityID uuid.UUID `json:"entity_id"`
	FullName string    `json:"full_name"`

	// Secondary attributes, empty when unknown. A missing attribute is
	// skipped during scoring, never counted as a mismatch.
	DateOfBirth string `json:"date_of_birth,omitempty"` // ISO 8601 date
	Nationality string `json:"nationality,omitempty"`   // ISO 3166-1 alpha-2
	Address     string `json:"address,omitempty"`
	Country     string `json:"country,omitempty"`

	Type EntityType `json:"type"`

	// Transaction context, present when screening a payment party.
	TransactionID       *uuid.UUID `json:"transaction_id,omitempty"`
	TransactionAmount   float64    `json:"transaction_amount,omitempty"`
	TransactionCurrency string     `json:"transaction_currency,omitempty"`
}

// Validate checks the fields screening cannot proceed without.
func (s *ScreeningSubject) Validate() error {
	if s.FullName == "" {
		return ErrMalformedSubject
	}
	if s.EntityID == uuid.Nil {
		return ErrMalformedSubject
	}
	return nil
}

// WatchlistEntry is one candidate row from a sanctions source. Entries are
// owned by their list source adapter and replaced wholesale on refresh.
type WatchlistEntry struct {
	EntryID     string     `json:"entry_id"`
	Name        string     `json:"name"`
	Aliases     []string   `json:"aliases,omitempty"`
	DateOfBirth string     `json:"date_of_birth,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
	Address     string     `json:"address,omitempty"`
	Country     string     `json:"country,omitempty"`
	Type        EntityType `json:"type"`

	Program     string `json:"program,omitempty"`     // SDGT, SDNT, etc.
	Designation string `json:"designation,omitempty"` // source-assigned designation text
	Remarks     string `json:"remarks,omitempty"`

	SourceList string    `json:"source_list"`
	ListedAt   time.Time `json:"listed_at"`
}
