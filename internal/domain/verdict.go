package domain

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the final compliance outcome for an evaluated event.
type Decision string

const (
	DecisionAllow        Decision = "ALLOW"
	DecisionBlock        Decision = "BLOCK"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// Obligation is a downstream action the surrounding service must perform.
// The core only produces the flags; the dispatcher does the side effects.
type Obligation string

const (
	ObligationBlockTransaction   Obligation = "BLOCK_TRANSACTION"
	ObligationManualReview       Obligation = "MANUAL_REVIEW"
	ObligationFileSAR            Obligation = "FILE_SAR"
	ObligationNotifyCompliance   Obligation = "NOTIFY_COMPLIANCE"
	ObligationEnhancedMonitoring Obligation = "ENHANCED_MONITORING"
)

// ComplianceVerdict is the final output of the decision aggregator.
// Created once per evaluated event, immutable thereafter.
type ComplianceVerdict struct {
	ID       uuid.UUID `json:"id"`
	EventID  uuid.UUID `json:"event_id"`
	EntityID uuid.UUID `json:"entity_id"`

	Decision  Decision `json:"decision"`
	RiskScore float64  `json:"risk_score"` // 0..1

	Screening  *ScreeningResult `json:"screening,omitempty"`
	Violations []RuleViolation  `json:"violations,omitempty"`

	Obligations []Obligation `json:"obligations"`
	SARRequired bool         `json:"sar_required"`

	// NextReviewAt recommends when the subject should be re-screened.
	NextReviewAt time.Time `json:"next_review_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Requires reports whether the verdict carries the given obligation.
func (v *ComplianceVerdict) Requires(o Obligation) bool {
	for _, ob := range v.Obligations {
		if ob == o {
			return true
		}
	}
	return false
}

// IsBlocked reports whether the event must not proceed.
func (v *ComplianceVerdict) IsBlocked() bool {
	return v.Decision == DecisionBlock
}
