package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/banking/compliance-engine/internal/decision"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/idempotency"
	"github.com/banking/compliance-engine/internal/pkg/logger"
	"github.com/banking/compliance-engine/internal/repository"
	"github.com/banking/compliance-engine/internal/rules"
	"github.com/banking/compliance-engine/internal/screening"
)

// historyLookback bounds how far back the rule engine looks. The widest
// rule window is the monthly cumulative limit plus the dormancy period.
const historyLookback = 120 * 24 * time.Hour

// ObligationDispatcher performs the side effects a verdict mandates. The
// pipeline only reports what must happen; the dispatcher owns how.
type ObligationDispatcher interface {
	Dispatch(ctx context.Context, verdict *domain.ComplianceVerdict) error
}

// Pipeline runs the full evaluation for one transaction event: idempotency
// claim, parallel screening and rule evaluation, decision, dispatch.
type Pipeline struct {
	orchestrator *screening.Orchestrator
	engine       *rules.Engine
	aggregator   *decision.Aggregator
	guard        *idempotency.Guard
	history      repository.TransactionHistoryRepository
	dispatcher   ObligationDispatcher
	log          *logger.Logger
}

// NewPipeline wires the evaluation pipeline.
func NewPipeline(
	orchestrator *screening.Orchestrator,
	engine *rules.Engine,
	aggregator *decision.Aggregator,
	guard *idempotency.Guard,
	history repository.TransactionHistoryRepository,
	dispatcher ObligationDispatcher,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		engine:       engine,
		aggregator:   aggregator,
		guard:        guard,
		history:      history,
		dispatcher:   dispatcher,
		log:          log.Named("pipeline"),
	}
}

// Evaluate processes one event end to end and returns its verdict. A
// duplicate event returns (nil, nil): already handled, nothing to do.
func (p *Pipeline) Evaluate(ctx context.Context, event *domain.TransactionEvent) (*domain.ComplianceVerdict, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.evaluate")
	defer span.End()

	key := event.EventID.String()
	claimed, err := p.guard.Start(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency claim: %w", err)
	}
	if !claimed {
		span.SetAttributes(attribute.Bool("pipeline.duplicate", true))
		return nil, nil
	}

	verdict, err := p.evaluate(ctx, event)
	if err != nil {
		if ferr := p.guard.Fail(ctx, key); ferr != nil {
			p.log.Error("idempotency release failed", logger.ErrorField(ferr))
		}
		return nil, err
	}
	if cerr := p.guard.Complete(ctx, key); cerr != nil {
		p.log.Error("idempotency complete failed", logger.ErrorField(cerr))
	}
	return verdict, nil
}

func (p *Pipeline) evaluate(ctx context.Context, event *domain.TransactionEvent) (*domain.ComplianceVerdict, error) {
	subject := subjectForEvent(event)

	var (
		screeningResult *domain.ScreeningResult
		violations      []domain.RuleViolation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := p.orchestrator.Screen(gctx, subject)
		if err != nil {
			return fmt.Errorf("screening: %w", err)
		}
		screeningResult = result
		return nil
	})
	g.Go(func() error {
		window := p.loadWindow(gctx, event)
		fired, err := p.engine.Evaluate(gctx, event, window)
		if err != nil {
			return fmt.Errorf("rule evaluation: %w", err)
		}
		violations = fired
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	riskScore := p.engine.RiskScore(violations, event.Amount)
	verdict := p.aggregator.Decide(event, screeningResult, violations, riskScore)

	if err := p.dispatcher.Dispatch(ctx, verdict); err != nil {
		// Dispatch failure cannot change the verdict but must be visible.
		p.log.Error("obligation dispatch failed",
			logger.StringField("event_id", event.EventID.String()),
			logger.ErrorField(err))
	}

	if err := p.history.RecordEvent(ctx, event); err != nil {
		p.log.Error("history record failed",
			logger.StringField("event_id", event.EventID.String()),
			logger.ErrorField(err))
	}

	return verdict, nil
}

// loadWindow fetches the entity's recent history. On failure it returns
// nil; the rule engine turns that into an evaluation-failure violation.
func (p *Pipeline) loadWindow(ctx context.Context, event *domain.TransactionEvent) *domain.HistoryWindow {
	window, err := p.history.FindWindow(ctx, event.EntityID,
		event.Timestamp.Add(-historyLookback), event.Timestamp)
	if err != nil {
		p.log.Error("history lookup failed",
			logger.StringField("entity_id", event.EntityID.String()),
			logger.ErrorField(err))
		return nil
	}
	return window
}

// subjectForEvent builds the screening subject for an event's counterparty.
func subjectForEvent(event *domain.TransactionEvent) *domain.ScreeningSubject {
	name := event.CounterpartyName()
	if name == "" {
		name = event.SenderName
	}
	txID := event.ID
	return &domain.ScreeningSubject{
		EntityID:            event.EntityID,
		FullName:            name,
		Country:             event.CounterpartyCountry(),
		Type:                domain.EntityIndividual,
		TransactionID:       &txID,
		TransactionAmount:   event.Amount,
		TransactionCurrency: event.Currency,
	}
}

// ManualDispatcher is the no-automation variant: it cannot execute any
// obligation itself, so every verdict that carries one is routed to manual
// review instead of silently dropping the mandated action.
type ManualDispatcher struct {
	log *logger.Logger
}

// NewManualDispatcher creates a dispatcher for deployments without
// downstream automation.
func NewManualDispatcher(log *logger.Logger) *ManualDispatcher {
	return &ManualDispatcher{log: log.Named("dispatcher")}
}

func (d *ManualDispatcher) Dispatch(_ context.Context, verdict *domain.ComplianceVerdict) error {
	if len(verdict.Obligations) == 0 {
		return nil
	}
	if !verdict.Requires(domain.ObligationManualReview) {
		verdict.Obligations = append(verdict.Obligations, domain.ObligationManualReview)
	}
	for _, ob := range verdict.Obligations {
		d.log.Warn("obligation requires manual handling",
			logger.StringField("event_id", verdict.EventID.String()),
			logger.StringField("obligation", string(ob)))
	}
	return nil
}

// VerdictPublisher publishes verdicts to downstream consumers.
type VerdictPublisher interface {
	Publish(ctx context.Context, verdict *domain.ComplianceVerdict) error
}

// PublishingDispatcher forwards the verdict to a publisher and logs the
// mandated obligations.
type PublishingDispatcher struct {
	publisher VerdictPublisher
	log       *logger.Logger
}

// NewPublishingDispatcher creates a dispatcher backed by a verdict publisher.
func NewPublishingDispatcher(publisher VerdictPublisher, log *logger.Logger) *PublishingDispatcher {
	return &PublishingDispatcher{publisher: publisher, log: log.Named("dispatcher")}
}

func (d *PublishingDispatcher) Dispatch(ctx context.Context, verdict *domain.ComplianceVerdict) error {
	if err := d.publisher.Publish(ctx, verdict); err != nil {
		return fmt.Errorf("publish verdict: %w", err)
	}
	for _, ob := range verdict.Obligations {
		d.log.Info("obligation raised",
			logger.StringField("event_id", verdict.EventID.String()),
			logger.StringField("obligation", string(ob)))
	}
	return nil
}

// ScreenOnly runs just the sanctions screening half of the pipeline, for
// callers that screen a party without a transaction.
func (p *Pipeline) ScreenOnly(ctx context.Context, subject *domain.ScreeningSubject) (*domain.ScreeningResult, error) {
	return p.orchestrator.Screen(ctx, subject)
}

// EvaluateRulesOnly runs just the AML rule half, for callers replaying
// historical events.
func (p *Pipeline) EvaluateRulesOnly(ctx context.Context, event *domain.TransactionEvent) ([]domain.RuleViolation, float64, error) {
	if err := event.Validate(); err != nil {
		return nil, 0, err
	}
	window := p.loadWindow(ctx, event)
	violations, err := p.engine.Evaluate(ctx, event, window)
	if err != nil {
		return nil, 0, err
	}
	return violations, p.engine.RiskScore(violations, event.Amount), nil
}
