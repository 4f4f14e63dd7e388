package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banking/compliance-engine/internal/domain"
)

func TestClassifyNoMatches(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, domain.RiskNone, c.Classify(&domain.ScreeningResult{}))
}

func TestClassifyFailSecure(t *testing.T) {
	c := NewClassifier()
	level := c.Classify(&domain.ScreeningResult{FailSecure: true})
	assert.Equal(t, domain.RiskHigh, level)
	assert.True(t, level.RequiresManualReview())
}

func TestClassifyByBucket(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		bucket   domain.ConfidenceBucket
		expected domain.RiskLevel
	}{
		{domain.ConfidenceMaximum, domain.RiskCritical},
		{domain.ConfidenceHigh, domain.RiskHigh},
		{domain.ConfidenceMedium, domain.RiskMedium},
		{domain.ConfidenceLow, domain.RiskMinimal},
	}
	for _, tt := range tests {
		result := &domain.ScreeningResult{
			Matches: []domain.MatchResult{{Bucket: tt.bucket, SourceList: SourceOFACSDN}},
		}
		assert.Equal(t, tt.expected, c.Classify(result), "bucket %s", tt.bucket)
	}
}

func TestClassifyTerrorDesignation(t *testing.T) {
	c := NewClassifier()
	result := &domain.ScreeningResult{
		Matches: []domain.MatchResult{{
			Bucket:      domain.ConfidenceMedium,
			SourceList:  SourceOFACSDN,
			Designation: "Counter Terrorism Designation",
		}},
	}
	assert.Equal(t, domain.RiskCritical, c.Classify(result))

	result.Matches[0].Designation = ""
	result.Matches[0].Program = "SDGT"
	assert.Equal(t, domain.RiskCritical, c.Classify(result))
}

func TestClassifyMultiSourceEscalation(t *testing.T) {
	c := NewClassifier()
	result := &domain.ScreeningResult{
		Matches: []domain.MatchResult{
			{Bucket: domain.ConfidenceHigh, SourceList: SourceOFACSDN},
			{Bucket: domain.ConfidenceHigh, SourceList: SourceEU},
		},
	}
	assert.Equal(t, domain.RiskCritical, c.Classify(result),
		"matching on two independent sources escalates one step")
}

func TestClassifyEscalationCapped(t *testing.T) {
	c := NewClassifier()
	result := &domain.ScreeningResult{
		Matches: []domain.MatchResult{
			{Bucket: domain.ConfidenceMaximum, SourceList: SourceOFACSDN, Program: "SDGT"},
			{Bucket: domain.ConfidenceMaximum, SourceList: SourceEU},
			{Bucket: domain.ConfidenceMaximum, SourceList: SourceUN},
		},
	}
	assert.Equal(t, domain.RiskProhibited, c.Classify(result))
}
