package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// RoundAmountRule flags amounts that look chosen rather than organic: exact
// hits on known structuring figures, and plain round multiples of 100 above
// the floor.
type RoundAmountRule struct {
	cfg *config.RulesConfig
}

func (r *RoundAmountRule) ID() string { return "aml-round-amount" }

func (r *RoundAmountRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	for _, suspicious := range r.cfg.SuspiciousAmounts {
		if event.Amount == suspicious {
			return []domain.RuleViolation{{
				RuleID:     r.ID(),
				Type:       domain.RuleRoundAmount,
				Severity:   domain.SeverityMedium,
				Reason:     fmt.Sprintf("amount %.2f matches a known structuring figure", event.Amount),
				DetectedAt: time.Now(),
			}}
		}
	}

	if event.Amount >= r.cfg.RoundAmountFloor && math.Mod(event.Amount, 100) == 0 {
		return []domain.RuleViolation{{
			RuleID:     r.ID(),
			Type:       domain.RuleRoundAmount,
			Severity:   domain.SeverityLow,
			Reason:     fmt.Sprintf("round amount %.2f above %.0f", event.Amount, r.cfg.RoundAmountFloor),
			DetectedAt: time.Now(),
		}}
	}

	return nil
}
