package rules

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Rule is one stateless behavioral check. Given the event and its bounded
// history window it returns zero or more violations.
type Rule interface {
	ID() string
	Apply(event *domain.TransactionEvent, window *domain.HistoryWindow) []domain.RuleViolation
}

// Engine evaluates a transaction against every configured rule. All rules
// run and all violations are returned, never short-circuited, so the
// decision aggregator sees the full picture.
type Engine struct {
	rules []Rule
	cfg   *config.RulesConfig
	log   *logger.Logger
}

// NewEngine creates a rule engine with the standard rule set.
func NewEngine(cfg *config.RulesConfig, log *logger.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.Named("rule_engine"),
		rules: []Rule{
			&StructuringRule{cfg: cfg},
			&VelocityRule{cfg: cfg},
			&CumulativeThresholdRule{cfg: cfg},
			&RapidMovementRule{cfg: cfg},
			&DormantReactivationRule{cfg: cfg},
			&RoundAmountRule{cfg: cfg},
			&GeographicRule{cfg: cfg, highRisk: countrySet(cfg.HighRiskCountries)},
		},
	}
}

// Evaluate runs every rule against the event. A nil window means the
// history repository failed; that is surfaced as an EVALUATION_FAILURE
// violation so a failed check can never read as a clean one.
func (e *Engine) Evaluate(ctx context.Context, event *domain.TransactionEvent, window *domain.HistoryWindow) ([]domain.RuleViolation, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("rules").Start(ctx, "engine.evaluate")
	defer span.End()

	if window == nil {
		v := domain.RuleViolation{
			RuleID:     "history-unavailable",
			Type:       domain.RuleEvaluationFailure,
			Severity:   domain.SeverityHigh,
			Reason:     "transaction history unavailable, rules could not be evaluated",
			DetectedAt: time.Now(),
		}
		e.log.ViolationDetected(event.EntityID.String(), string(v.Type), string(v.Severity))
		return []domain.RuleViolation{v}, nil
	}

	var (
		mu         sync.Mutex
		violations []domain.RuleViolation
	)

	g, _ := errgroup.WithContext(ctx)
	for _, rule := range e.rules {
		rule := rule
		g.Go(func() error {
			fired := rule.Apply(event, window)
			if len(fired) == 0 {
				return nil
			}
			mu.Lock()
			violations = append(violations, fired...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool {
		return violations[i].RuleID < violations[j].RuleID
	})

	for _, v := range violations {
		e.log.ViolationDetected(event.EntityID.String(), string(v.Type), string(v.Severity))
	}
	span.SetAttributes(attribute.Int("rules.violations", len(violations)))
	return violations, nil
}

// RiskScore aggregates violation severities into one score in [0,1]:
// severity weights are additive, with a fixed increment for amounts above
// the large-transaction threshold.
func (e *Engine) RiskScore(violations []domain.RuleViolation, amount float64) float64 {
	var score float64
	for _, v := range violations {
		score += v.Severity.Weight()
	}
	if amount >= e.cfg.LargeAmountThreshold {
		score += e.cfg.LargeAmountIncrement
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func countrySet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
