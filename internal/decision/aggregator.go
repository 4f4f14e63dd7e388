package decision

import (
	"time"

	"github.com/google/uuid"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Aggregator combines a screening result, the fired rule violations and the
// aggregate risk score into one final verdict. Blocking conditions dominate
// review conditions, which dominate allow: adding a violation can never make
// a verdict more permissive.
type Aggregator struct {
	cfg *config.DecisionConfig
	log *logger.Logger
}

// NewAggregator creates a decision aggregator.
func NewAggregator(cfg *config.DecisionConfig, log *logger.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, log: log.Named("decision")}
}

// Decide produces the compliance verdict for one evaluated event.
func (a *Aggregator) Decide(event *domain.TransactionEvent, screening *domain.ScreeningResult, violations []domain.RuleViolation, riskScore float64) *domain.ComplianceVerdict {
	verdict := &domain.ComplianceVerdict{
		ID:         uuid.New(),
		EventID:    event.EventID,
		EntityID:   event.EntityID,
		RiskScore:  riskScore,
		Screening:  screening,
		Violations: violations,
		CreatedAt:  time.Now(),
	}

	block := screening != nil && screening.RiskLevel.RequiresBlocking()
	review := screening != nil && screening.RequiresManualReview

	sar := riskScore > a.cfg.SARFilingScore
	for _, v := range violations {
		if v.Severity == domain.SeverityCritical && v.RequiresImmediateAction {
			block = true
		}
		if v.Severity.AtLeast(domain.SeverityHigh) {
			review = true
		}
		if v.RequiresSAR || v.Type == domain.RuleStructuring {
			sar = true
		}
	}
	if riskScore > a.cfg.HighRiskScore {
		review = true
	}

	switch {
	case block:
		verdict.Decision = domain.DecisionBlock
		verdict.Obligations = append(verdict.Obligations,
			domain.ObligationBlockTransaction, domain.ObligationNotifyCompliance)
	case review:
		verdict.Decision = domain.DecisionManualReview
		verdict.Obligations = append(verdict.Obligations,
			domain.ObligationManualReview, domain.ObligationEnhancedMonitoring)
	default:
		verdict.Decision = domain.DecisionAllow
	}

	verdict.SARRequired = sar
	if sar {
		verdict.Obligations = append(verdict.Obligations, domain.ObligationFileSAR)
		if !verdict.Requires(domain.ObligationNotifyCompliance) {
			verdict.Obligations = append(verdict.Obligations, domain.ObligationNotifyCompliance)
		}
	}

	if verdict.Decision == domain.DecisionAllow && !sar {
		verdict.NextReviewAt = verdict.CreatedAt.Add(a.cfg.ClearedReviewAfter)
	} else {
		verdict.NextReviewAt = verdict.CreatedAt.Add(a.cfg.FlaggedReviewAfter)
	}

	a.log.VerdictIssued(event.EventID.String(), string(verdict.Decision), riskScore, sar)
	return verdict
}
