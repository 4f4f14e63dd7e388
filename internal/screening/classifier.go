package screening

import (
	"strings"

	"github.com/banking/compliance-engine/internal/domain"
)

// Classifier maps a screening result to a discrete risk level. The mapping
// is a pure function of the highest confidence bucket present, the number
// of distinct sources matched, and the fail-secure flag.
type Classifier struct{}

// NewClassifier creates a risk classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the risk level for a screening result.
//
// Base level comes from the highest confidence bucket; matching on two or
// more independent sources escalates one step, capped at PROHIBITED. A
// terrorism-designated match classifies at least CRITICAL. A fail-secure
// result classifies HIGH so it always requires manual review.
func (c *Classifier) Classify(result *domain.ScreeningResult) domain.RiskLevel {
	if result.FailSecure {
		return domain.RiskHigh
	}
	if len(result.Matches) == 0 {
		return domain.RiskNone
	}

	var level domain.RiskLevel
	switch result.HighestBucket() {
	case domain.ConfidenceMaximum:
		level = domain.RiskCritical
	case domain.ConfidenceHigh:
		level = domain.RiskHigh
	case domain.ConfidenceMedium:
		level = domain.RiskMedium
	default:
		level = domain.RiskMinimal
	}

	if hasTerrorDesignation(result.Matches) && !level.AtLeast(domain.RiskCritical) {
		level = domain.RiskCritical
	}

	if result.DistinctSources() >= 2 {
		level = level.Escalate()
	}

	return level
}

func hasTerrorDesignation(matches []domain.MatchResult) bool {
	for _, m := range matches {
		if strings.Contains(strings.ToLower(m.Designation), "terror") ||
			strings.Contains(strings.ToLower(m.Program), "sdgt") {
			return true
		}
	}
	return false
}
