package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// StructuringRule detects transactions split to stay under the reporting
// threshold, either as repeated amounts just inside the band below the
// threshold or as an aggregate that crosses it while every individual
// movement stays under.
type StructuringRule struct {
	cfg *config.RulesConfig
}

func (r *StructuringRule) ID() string { return "aml-structuring" }

func (r *StructuringRule) Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation {
	threshold := r.cfg.ReportingThreshold
	bandLower := threshold * r.cfg.StructuringBand
	cutoff := event.Timestamp.Add(-r.cfg.StructuringWindow)
	recent := window.Since(cutoff)

	var violations []domain.RuleViolation

	// Repeated amounts just under the reporting limit.
	var inBand []uuid.UUID
	for _, tx := range recent {
		if tx.Amount >= bandLower && tx.Amount < threshold {
			inBand = append(inBand, tx.ID)
		}
	}
	if len(inBand) >= r.cfg.StructuringMinCount {
		severity := domain.SeverityHigh
		immediate := false
		if len(inBand) >= 2*r.cfg.StructuringMinCount {
			severity = domain.SeverityCritical
			immediate = true
		}
		violations = append(violations, domain.RuleViolation{
			RuleID:   r.ID(),
			Type:     domain.RuleStructuring,
			Severity: severity,
			Reason: fmt.Sprintf("%d transactions within %.0f%% of the %.0f reporting threshold in the last %s",
				len(inBand), r.cfg.StructuringBand*100, threshold, r.cfg.StructuringWindow),
			RequiresImmediateAction: immediate,
			RequiresSAR:             true,
			RelatedTxIDs:            inBand,
			DetectedAt:              time.Now(),
		})
	}

	// Aggregate crossing the threshold while each movement stays under it.
	if event.Amount < threshold && len(recent) > 0 {
		allUnder := true
		var total float64
		related := make([]uuid.UUID, 0, len(recent))
		for _, tx := range recent {
			if tx.Amount >= threshold {
				allUnder = false
				break
			}
			total += tx.Amount
			related = append(related, tx.ID)
		}
		if allUnder && total+event.Amount >= threshold {
			violations = append(violations, domain.RuleViolation{
				RuleID:   r.ID(),
				Type:     domain.RuleStructuring,
				Severity: domain.SeverityHigh,
				Reason: fmt.Sprintf("aggregate %.2f over %s crosses the %.0f reporting threshold while each transaction stays under it",
					total+event.Amount, r.cfg.StructuringWindow, threshold),
				RequiresSAR:  true,
				RelatedTxIDs: related,
				DetectedAt:   time.Now(),
			})
		}
	}

	return violations
}
