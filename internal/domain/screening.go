package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceBucket discretizes a combined similarity score.
type ConfidenceBucket string

const (
	ConfidenceLow     ConfidenceBucket = "LOW"
	ConfidenceMedium  ConfidenceBucket = "MEDIUM"
	ConfidenceHigh    ConfidenceBucket = "HIGH"
	ConfidenceMaximum ConfidenceBucket = "MAXIMUM"
)

// Bucket thresholds are fixed; the bucket is a pure function of the score.
const (
	MaximumConfidenceScore = 0.95
	HighConfidenceScore    = 0.85
	MediumConfidenceScore  = 0.70
)

// BucketForScore maps a combined similarity score to its confidence bucket.
func BucketForScore(score float64) ConfidenceBucket {
	switch {
	case score >= MaximumConfidenceScore:
		return ConfidenceMaximum
	case score >= HighConfidenceScore:
		return ConfidenceHigh
	case score >= MediumConfidenceScore:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

var bucketRank = map[ConfidenceBucket]int{
	ConfidenceLow:     0,
	ConfidenceMedium:  1,
	ConfidenceHigh:    2,
	ConfidenceMaximum: 3,
}

// AtLeast reports whether b ranks at or above other.
func (b ConfidenceBucket) AtLeast(other ConfidenceBucket) bool {
	return bucketRank[b] >= bucketRank[other]
}

// MatchType indicates how a candidate was matched.
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT"
	MatchTypeFuzzy MatchType = "FUZZY"
	MatchTypeAlias MatchType = "ALIAS"
)

// MatchResult is the outcome of comparing one subject to one watchlist
// entry. Created fresh per screening call, never mutated.
type MatchResult struct {
	EntryID     string `json:"entry_id"`
	MatchedName string `json:"matched_name"`
	// MatchedAlias is set when the best score came from an alias rather
	// than the canonical name.
	MatchedAlias string             `json:"matched_alias,omitempty"`
	Score        float64            `json:"score"` // 0..1
	SubScores    map[string]float64 `json:"sub_scores,omitempty"`
	Bucket       ConfidenceBucket   `json:"bucket"`
	MatchType    MatchType          `json:"match_type"`
	SourceList   string             `json:"source_list"`
	Program      string             `json:"program,omitempty"`
	Designation  string             `json:"designation,omitempty"`
}

// RiskLevel is the discrete screening risk classification, totally ordered
// from NO_RISK up to PROHIBITED.
type RiskLevel string

const (
	RiskNone       RiskLevel = "NO_RISK"
	RiskMinimal    RiskLevel = "MINIMAL"
	RiskLow        RiskLevel = "LOW"
	RiskMedium     RiskLevel = "MEDIUM"
	RiskHigh       RiskLevel = "HIGH"
	RiskCritical   RiskLevel = "CRITICAL"
	RiskProhibited RiskLevel = "PROHIBITED"
)

var riskOrder = []RiskLevel{RiskNone, RiskMinimal, RiskLow, RiskMedium, RiskHigh, RiskCritical, RiskProhibited}

var riskRank = map[RiskLevel]int{
	RiskNone:       0,
	RiskMinimal:    1,
	RiskLow:        2,
	RiskMedium:     3,
	RiskHigh:       4,
	RiskCritical:   5,
	RiskProhibited: 6,
}

// AtLeast reports whether l ranks at or above other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[l] >= riskRank[other]
}

// Escalate returns the next level up, capped at PROHIBITED.
func (l RiskLevel) Escalate() RiskLevel {
	r := riskRank[l]
	if r >= len(riskOrder)-1 {
		return RiskProhibited
	}
	return riskOrder[r+1]
}

// RequiresManualReview is true for HIGH and above.
func (l RiskLevel) RequiresManualReview() bool {
	return l.AtLeast(RiskHigh)
}

// RequiresBlocking is true for CRITICAL and PROHIBITED.
func (l RiskLevel) RequiresBlocking() bool {
	return l.AtLeast(RiskCritical)
}

// ScreeningResult aggregates all matches from all sources for one subject.
// Created by the screening orchestrator and consumed by the decision
// aggregator; long-term storage belongs to the audit collaborator.
type ScreeningResult struct {
	ID       uuid.UUID `json:"id"`
	EntityID uuid.UUID `json:"entity_id"`

	Matches   []MatchResult `json:"matches"`
	RiskLevel RiskLevel     `json:"risk_level"`

	SourcesQueried []string `json:"sources_queried"`
	SourcesFailed  []string `json:"sources_failed,omitempty"`

	// Partial is set when some sources failed and the result reflects
	// only the sources that answered in time.
	Partial bool `json:"partial"`

	// FailSecure is set when every source failed and the result assumes a
	// sanctions match rather than reporting a clear it could not verify.
	FailSecure bool `json:"fail_secure"`

	RequiresManualReview bool `json:"requires_manual_review"`

	ScreeningDurationMs int64     `json:"screening_duration_ms"`
	CreatedAt           time.Time `json:"created_at"`
}

// HasMatches reports whether any source produced a match at or above the
// configured floor. A fail-secure result counts as matched.
func (r *ScreeningResult) HasMatches() bool {
	return len(r.Matches) > 0 || r.FailSecure
}

// HighestBucket returns the strongest confidence bucket present, or
// ConfidenceLow when there are no matches.
func (r *ScreeningResult) HighestBucket() ConfidenceBucket {
	highest := ConfidenceLow
	for _, m := range r.Matches {
		if m.Bucket.AtLeast(highest) {
			highest = m.Bucket
		}
	}
	return highest
}

// DistinctSources returns the number of distinct source lists that matched.
func (r *ScreeningResult) DistinctSources() int {
	seen := make(map[string]struct{}, len(r.Matches))
	for _, m := range r.Matches {
		seen[m.SourceList] = struct{}{}
	}
	return len(seen)
}
