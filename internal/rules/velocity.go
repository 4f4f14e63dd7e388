package rules

import (
	"fmt"
	"time"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// VelocityRule compares hourly and daily transaction counts against fixed
// caps. Severity scales with which cap was breached.
type VelocityRule struct {
	cfg *config.RulesConfig
}

func (r *VelocityRule) ID() string { return "aml-velocity" }

func (r *VelocityRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	var violations []domain.RuleViolation

	hourly := window.CountSince(event.Timestamp.Add(-time.Hour)) + 1
	if hourly > r.cfg.HourlyVelocityCap {
		violations = append(violations, domain.RuleViolation{
			RuleID:     r.ID(),
			Type:       domain.RuleVelocity,
			Severity:   domain.SeverityHigh,
			Reason:     fmt.Sprintf("%d transactions in one hour exceeds cap of %d", hourly, r.cfg.HourlyVelocityCap),
			DetectedAt: time.Now(),
		})
	}

	daily := window.CountSince(event.Timestamp.Add(-24*time.Hour)) + 1
	if daily > r.cfg.DailyVelocityCap {
		violations = append(violations, domain.RuleViolation{
			RuleID:      r.ID(),
			Type:        domain.RuleVelocity,
			Severity:    domain.SeverityCritical,
			Reason:      fmt.Sprintf("%d transactions in 24 hours exceeds cap of %d", daily, r.cfg.DailyVelocityCap),
			RequiresSAR: true,
			DetectedAt:  time.Now(),
		})
	}

	return violations
}
