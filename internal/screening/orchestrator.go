package screening

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/matching"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Orchestrator fans one screening request out to every configured list
// source in parallel, merges the matches, and decides fail-open versus
// fail-secure on partial or total source failure.
type Orchestrator struct {
	adapters []*Adapter
	// fallback is an optional consolidated multi-provider tier tried once
	// before declaring total failure.
	fallback   *Adapter
	classifier *Classifier

	cfg         *config.ScreeningConfig
	commonNames map[string]struct{}
	log         *logger.Logger
}

// NewOrchestrator creates a screening orchestrator over the given adapters.
func NewOrchestrator(adapters []*Adapter, fallback *Adapter, classifier *Classifier, cfg *config.ScreeningConfig, log *logger.Logger) *Orchestrator {
	common := make(map[string]struct{}, len(cfg.CommonNames))
	for _, name := range cfg.CommonNames {
		common[matching.Normalize(name)] = struct{}{}
	}
	return &Orchestrator{
		adapters:    adapters,
		fallback:    fallback,
		classifier:  classifier,
		cfg:         cfg,
		commonNames: common,
		log:         log.Named("orchestrator"),
	}
}

// Screen checks one subject against all configured sources under a single
// absolute deadline. If every source fails the result fails secure: it is
// flagged as a match with manual review required, never a silent clear.
func (o *Orchestrator) Screen(ctx context.Context, subject *domain.ScreeningSubject) (*domain.ScreeningResult, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("screening").Start(ctx, "orchestrator.screen")
	defer span.End()

	start := time.Now()
	screeningID := uuid.New()
	o.log.ScreeningStarted(screeningID.String(), subject.EntityID.String())

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	var (
		mu      sync.Mutex
		matches []domain.MatchResult
		queried []string
		failed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range o.adapters {
		adapter := adapter
		g.Go(func() error {
			actx, acancel := context.WithTimeout(gctx, o.cfg.AdapterTimeout)
			defer acancel()

			found, err := adapter.FindCandidates(actx, subject, o.cfg.FloorScore)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, adapter.Source())
				o.log.SourceFailed(adapter.Source(), err)
				// Adapter failure is recorded, not propagated; the group
				// must not cancel the remaining sources.
				return nil
			}
			queried = append(queried, adapter.Source())
			matches = append(matches, found...)
			return nil
		})
	}
	_ = g.Wait()

	// Total failure: try the consolidated fallback tier once before
	// declaring the screening impossible.
	if len(queried) == 0 && o.fallback != nil {
		if found, err := o.fallback.FindCandidates(ctx, subject, o.cfg.FloorScore); err == nil {
			queried = append(queried, o.fallback.Source())
			matches = append(matches, found...)
		} else {
			failed = append(failed, o.fallback.Source())
			o.log.SourceFailed(o.fallback.Source(), err)
		}
	}

	result := &domain.ScreeningResult{
		ID:                  screeningID,
		EntityID:            subject.EntityID,
		SourcesQueried:      queried,
		SourcesFailed:       failed,
		CreatedAt:           time.Now(),
		ScreeningDurationMs: time.Since(start).Milliseconds(),
	}

	if len(queried) == 0 {
		// Fail secure: the engine could not check a single source, so it
		// assumes a sanctions match rather than reporting a clear it
		// cannot stand behind.
		result.FailSecure = true
		result.Partial = true
		result.RequiresManualReview = true
		result.RiskLevel = o.classifier.Classify(result)
		o.log.FailSecure(screeningID.String(), failed)
		span.RecordError(ErrTotalScreeningFailure)
		span.SetAttributes(attribute.Bool("screening.fail_secure", true))
		return result, nil
	}

	result.Matches = o.reduceFalsePositives(subject, matches)
	result.Partial = len(failed) > 0

	level := o.classifier.Classify(result)
	if result.HasMatches() && subject.TransactionAmount >= o.cfg.LargeAmountContext && o.cfg.LargeAmountContext > 0 {
		level = level.Escalate()
	}
	result.RiskLevel = level
	result.RequiresManualReview = level.RequiresManualReview()
	result.ScreeningDurationMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("screening.matches", len(result.Matches)),
		attribute.Bool("screening.partial", result.Partial),
	)
	o.log.ScreeningCompleted(screeningID.String(), len(result.Matches), string(level), result.ScreeningDurationMs)
	return result, nil
}

// reduceFalsePositives penalizes matches on names flagged as common unless
// the subject and candidate are geographically consistent. Scores only ever
// move down, and a MAXIMUM-confidence match is never discarded.
func (o *Orchestrator) reduceFalsePositives(subject *domain.ScreeningSubject, matches []domain.MatchResult) []domain.MatchResult {
	if _, common := o.commonNames[matching.Normalize(subject.FullName)]; !common {
		return matches
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Bucket == domain.ConfidenceMaximum {
			kept = append(kept, m)
			continue
		}
		if geoConsistent(subject, &m) {
			kept = append(kept, m)
			continue
		}
		m.Score -= o.cfg.CommonNamePenalty
		m.Bucket = domain.BucketForScore(m.Score)
		if m.Score >= o.cfg.FloorScore {
			kept = append(kept, m)
		}
	}
	return kept
}

func geoConsistent(subject *domain.ScreeningSubject, m *domain.MatchResult) bool {
	ns, ok := m.SubScores["nationality"]
	return ok && ns >= 1.0 && subject.Nationality != ""
}
