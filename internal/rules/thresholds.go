package rules

import (
	"fmt"
	"time"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// CumulativeThresholdRule compares running amount totals over daily, weekly
// and monthly windows against tiered limits.
type CumulativeThresholdRule struct {
	cfg *config.RulesConfig
}

func (r *CumulativeThresholdRule) ID() string { return "aml-cumulative" }

func (r *CumulativeThresholdRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	tiers := []struct {
		name     string
		lookback time.Duration
		limit    float64
		severity domain.Severity
		sar      bool
	}{
		{"daily", 24 * time.Hour, r.cfg.DailyCumulativeLimit, domain.SeverityMedium, false},
		{"weekly", 7 * 24 * time.Hour, r.cfg.WeeklyCumulativeLimit, domain.SeverityHigh, false},
		{"monthly", 30 * 24 * time.Hour, r.cfg.MonthlyCumulativeLimit, domain.SeverityCritical, true},
	}

	var violations []domain.RuleViolation
	for _, tier := range tiers {
		if tier.limit <= 0 {
			continue
		}
		total := window.SumSince(event.Timestamp.Add(-tier.lookback)) + event.Amount
		if total >= tier.limit {
			violations = append(violations, domain.RuleViolation{
				RuleID:   r.ID(),
				Type:     domain.RuleCumulativeThreshold,
				Severity: tier.severity,
				Reason: fmt.Sprintf("%s cumulative total %.2f exceeds limit %.2f",
					tier.name, total, tier.limit),
				RequiresSAR: tier.sar,
				DetectedAt:  time.Now(),
			})
		}
	}
	return violations
}
