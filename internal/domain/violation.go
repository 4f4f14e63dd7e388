package domain

import (
	"time"

	"github.com/google/uuid"
)

// RuleType identifies the behavioral rule that fired.
type RuleType string

const (
	RuleStructuring         RuleType = "STRUCTURING"
	RuleVelocity            RuleType = "VELOCITY"
	RuleCumulativeThreshold RuleType = "CUMULATIVE_THRESHOLD"
	RuleRapidMovement       RuleType = "RAPID_MOVEMENT"
	RuleRoundAmount         RuleType = "ROUND_AMOUNT"
	RuleDormantReactivation RuleType = "DORMANT_REACTIVATION"
	RuleGeographic          RuleType = "GEOGRAPHIC"

	// RuleEvaluationFailure marks a rule or history lookup that could not
	// run. Surfaced as a violation so a failed check is never mistaken
	// for a clean one.
	RuleEvaluationFailure RuleType = "EVALUATION_FAILURE"
)

// Severity grades a violation. Weights feed the aggregate risk score.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityWeight = map[Severity]float64{
	SeverityLow:      0.1,
	SeverityMedium:   0.2,
	SeverityHigh:     0.3,
	SeverityCritical: 0.4,
}

// Weight returns the additive risk-score contribution of the severity.
func (s Severity) Weight() float64 {
	return severityWeight[s]
}

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s ranks at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// RuleViolation is one fired AML rule. Severity and mandated actions are a
// deterministic function of the rule type and measured magnitude.
type RuleViolation struct {
	RuleID   string   `json:"rule_id"`
	Type     RuleType `json:"type"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`

	RequiresImmediateAction bool `json:"requires_immediate_action"`
	RequiresSAR             bool `json:"requires_sar"`

	RelatedTxIDs []uuid.UUID `json:"related_tx_ids,omitempty"`
	DetectedAt   time.Time   `json:"detected_at"`
}
