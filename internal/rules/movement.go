package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// RapidMovementRule flags funds leaving an account shortly after arriving,
// the classic pass-through / layering pattern.
type RapidMovementRule struct {
	cfg *config.RulesConfig
}

func (r *RapidMovementRule) ID() string { return "aml-rapid-movement" }

func (r *RapidMovementRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	if !event.IsOutflow() {
		return nil
	}

	cutoff := event.Timestamp.Add(-r.cfg.RapidMovementWindow)
	var inflows []uuid.UUID
	var inflowTotal float64
	for _, tx := range window.Since(cutoff) {
		if tx.IsInflow() && tx.AccountID == event.AccountID {
			inflows = append(inflows, tx.ID)
			inflowTotal += tx.Amount
		}
	}
	if len(inflows) == 0 {
		return nil
	}

	return []domain.RuleViolation{{
		RuleID:   r.ID(),
		Type:     domain.RuleRapidMovement,
		Severity: domain.SeverityHigh,
		Reason: fmt.Sprintf("outflow of %.2f within %s of %.2f arriving on the same account",
			event.Amount, r.cfg.RapidMovementWindow, inflowTotal),
		RequiresSAR:  true,
		RelatedTxIDs: inflows,
		DetectedAt:   time.Now(),
	}}
}

// DormantReactivationRule flags activity on an account that has been quiet
// for longer than the dormant period. A compromised or mule account often
// wakes up this way.
type DormantReactivationRule struct {
	cfg *config.RulesConfig
}

func (r *DormantReactivationRule) ID() string { return "aml-dormant" }

func (r *DormantReactivationRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	last := window.LastActivity()
	if last.IsZero() {
		// No prior history at all is a new account, not a dormant one.
		return nil
	}
	gap := event.Timestamp.Sub(last)
	if gap < r.cfg.DormantPeriod {
		return nil
	}

	return []domain.RuleViolation{{
		RuleID:   r.ID(),
		Type:     domain.RuleDormantReactivation,
		Severity: domain.SeverityMedium,
		Reason: fmt.Sprintf("first activity after %d days of dormancy",
			int(gap.Hours()/24)),
		DetectedAt: time.Now(),
	}}
}
