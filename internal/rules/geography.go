package rules

import (
	"fmt"
	"time"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// GeographicRule flags transactions touching high-risk jurisdictions.
// Large amounts into those jurisdictions escalate to critical and demand
// immediate action.
type GeographicRule struct {
	cfg      *config.RulesConfig
	highRisk map[string]struct{}
}

func (r *GeographicRule) ID() string { return "aml-geographic" }

func (r *GeographicRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	country := event.CounterpartyCountry()
	if country == "" {
		return nil
	}
	if _, risky := r.highRisk[country]; !risky {
		return nil
	}

	severity := domain.SeverityHigh
	immediate := false
	sar := false
	if event.Amount >= r.cfg.LargeAmountThreshold {
		severity = domain.SeverityCritical
		immediate = true
		sar = true
	}

	return []domain.RuleViolation{{
		RuleID:   r.ID(),
		Type:     domain.RuleGeographic,
		Severity: severity,
		Reason: fmt.Sprintf("counterparty in high-risk jurisdiction %s for amount %.2f",
			country, event.Amount),
		RequiresImmediateAction: immediate,
		RequiresSAR:             sar,
		DetectedAt:              time.Now(),
	}}
}
