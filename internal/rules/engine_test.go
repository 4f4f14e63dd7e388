package rules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

func testRulesConfig() *config.RulesConfig {
	return &config.RulesConfig{
		ReportingThreshold:     10000,
		StructuringBand:        0.95,
		StructuringMinCount:    2,
		StructuringWindow:      24 * time.Hour,
		HourlyVelocityCap:      5,
		DailyVelocityCap:       20,
		DailyCumulativeLimit:   15000,
		WeeklyCumulativeLimit:  50000,
		MonthlyCumulativeLimit: 150000,
		RapidMovementWindow:    30 * time.Minute,
		RoundAmountFloor:       1000,
		SuspiciousAmounts:      []float64{9000, 9500, 9900, 49000, 99000},
		DormantPeriod:          90 * 24 * time.Hour,
		HighRiskCountries:      []string{"IR", "KP", "SY", "CU"},
		LargeAmountThreshold:   10000,
		LargeAmountIncrement:   0.1,
	}
}

func testEngine() *Engine {
	return NewEngine(testRulesConfig(), logger.Nop())
}

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func event(amount float64, at time.Time) *domain.TransactionEvent {
	return &domain.TransactionEvent{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		EntityID:  uuid.New(),
		AccountID: uuid.New(),
		Type:      "TRANSFER",
		Direction: "OUTBOUND",
		Amount:    amount,
		Currency:  "USD",
		Timestamp: at,
	}
}

func window(events ...domain.TransactionEvent) *domain.HistoryWindow {
	w := &domain.HistoryWindow{
		EntityID: uuid.New(),
		Start:    baseTime.Add(-120 * 24 * time.Hour),
		End:      baseTime,
		Events:   events,
	}
	return w
}

func priorTx(amount float64, at time.Time) domain.TransactionEvent {
	return domain.TransactionEvent{
		ID:        uuid.New(),
		EntityID:  uuid.New(),
		AccountID: uuid.New(),
		Type:      "TRANSFER",
		Direction: "OUTBOUND",
		Amount:    amount,
		Currency:  "USD",
		Timestamp: at,
	}
}

func violationsOfType(violations []domain.RuleViolation, rt domain.RuleType) []domain.RuleViolation {
	var out []domain.RuleViolation
	for _, v := range violations {
		if v.Type == rt {
			out = append(out, v)
		}
	}
	return out
}

func TestEvaluateRejectsMalformedEvent(t *testing.T) {
	e := testEngine()
	_, err := e.Evaluate(context.Background(), &domain.TransactionEvent{}, window())
	assert.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestEvaluateNilWindowIsEvaluationFailure(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(100, baseTime), nil)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.RuleEvaluationFailure, violations[0].Type)
	assert.Equal(t, domain.SeverityHigh, violations[0].Severity)
}

func TestEvaluateCleanEvent(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(123.45, baseTime), window())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestStructuringAggregateUnderThreshold(t *testing.T) {
	e := testEngine()
	// Three same-day transactions each under 10000 whose total crosses it.
	w := window(
		priorTx(9400, baseTime.Add(-3*time.Hour)),
		priorTx(9300, baseTime.Add(-2*time.Hour)),
	)
	violations, err := e.Evaluate(context.Background(), event(9600, baseTime), w)
	require.NoError(t, err)

	structuring := violationsOfType(violations, domain.RuleStructuring)
	require.NotEmpty(t, structuring, "splitting a reportable sum into sub-threshold pieces must fire")
	assert.True(t, structuring[0].RequiresSAR)
	assert.True(t, structuring[0].Severity.AtLeast(domain.SeverityHigh))
	assert.NotEmpty(t, structuring[0].RelatedTxIDs)
}

func TestStructuringBandRepetition(t *testing.T) {
	e := testEngine()
	w := window(
		priorTx(9700, baseTime.Add(-5*time.Hour)),
		priorTx(9800, baseTime.Add(-3*time.Hour)),
	)
	violations, err := e.Evaluate(context.Background(), event(9750, baseTime), w)
	require.NoError(t, err)

	structuring := violationsOfType(violations, domain.RuleStructuring)
	require.NotEmpty(t, structuring)
}

func TestStructuringNotFiredForSingleSmallTx(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(2500, baseTime), window())
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleStructuring))
}

func TestVelocityHourlyCap(t *testing.T) {
	e := testEngine()

	// Five prior within the hour plus this one makes six, over the cap of five.
	var events []domain.TransactionEvent
	for i := 0; i < 5; i++ {
		events = append(events, priorTx(50, baseTime.Add(-time.Duration(i+1)*time.Minute)))
	}
	violations, err := e.Evaluate(context.Background(), event(50, baseTime), window(events...))
	require.NoError(t, err)

	velocity := violationsOfType(violations, domain.RuleVelocity)
	require.NotEmpty(t, velocity)
	assert.Equal(t, domain.SeverityHigh, velocity[0].Severity)
}

func TestVelocityUnderCap(t *testing.T) {
	e := testEngine()
	var events []domain.TransactionEvent
	for i := 0; i < 3; i++ {
		events = append(events, priorTx(50, baseTime.Add(-time.Duration(i+1)*time.Minute)))
	}
	violations, err := e.Evaluate(context.Background(), event(50, baseTime), window(events...))
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleVelocity))
}

func TestCumulativeDailyLimit(t *testing.T) {
	e := testEngine()
	w := window(
		priorTx(8000, baseTime.Add(-10*time.Hour)),
		priorTx(6000, baseTime.Add(-5*time.Hour)),
	)
	violations, err := e.Evaluate(context.Background(), event(1500, baseTime), w)
	require.NoError(t, err)

	cumulative := violationsOfType(violations, domain.RuleCumulativeThreshold)
	require.NotEmpty(t, cumulative)
	assert.Equal(t, domain.SeverityMedium, cumulative[0].Severity)
}

func TestCumulativeMonthlyLimitRequiresSAR(t *testing.T) {
	e := testEngine()
	var events []domain.TransactionEvent
	for i := 0; i < 20; i++ {
		events = append(events, priorTx(7500, baseTime.Add(-time.Duration(i+1)*24*time.Hour)))
	}
	violations, err := e.Evaluate(context.Background(), event(5000, baseTime), window(events...))
	require.NoError(t, err)

	cumulative := violationsOfType(violations, domain.RuleCumulativeThreshold)
	require.NotEmpty(t, cumulative)

	var monthly *domain.RuleViolation
	for i := range cumulative {
		if cumulative[i].Severity == domain.SeverityCritical {
			monthly = &cumulative[i]
		}
	}
	require.NotNil(t, monthly, "crossing the monthly limit must grade critical")
	assert.True(t, monthly.RequiresSAR)
}

func TestRapidMovement(t *testing.T) {
	e := testEngine()
	out := event(4800, baseTime)

	inflow := priorTx(5000, baseTime.Add(-10*time.Minute))
	inflow.Direction = "INBOUND"
	inflow.AccountID = out.AccountID

	violations, err := e.Evaluate(context.Background(), out, window(inflow))
	require.NoError(t, err)

	rapid := violationsOfType(violations, domain.RuleRapidMovement)
	require.NotEmpty(t, rapid, "funds out minutes after funds in must fire")
	assert.Equal(t, domain.SeverityHigh, rapid[0].Severity)
}

func TestRapidMovementIgnoresOldInflow(t *testing.T) {
	e := testEngine()
	out := event(4800, baseTime)

	inflow := priorTx(5000, baseTime.Add(-2*time.Hour))
	inflow.Direction = "INBOUND"
	inflow.AccountID = out.AccountID

	violations, err := e.Evaluate(context.Background(), out, window(inflow))
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleRapidMovement))
}

func TestDormantReactivation(t *testing.T) {
	e := testEngine()
	w := window(priorTx(200, baseTime.Add(-100*24*time.Hour)))

	violations, err := e.Evaluate(context.Background(), event(300, baseTime), w)
	require.NoError(t, err)

	dormant := violationsOfType(violations, domain.RuleDormantReactivation)
	require.NotEmpty(t, dormant)
	assert.Equal(t, domain.SeverityMedium, dormant[0].Severity)
}

func TestDormantNotFiredForNewAccount(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(300, baseTime), window())
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleDormantReactivation))
}

func TestRoundAmountSuspiciousFigure(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(9500, baseTime), window())
	require.NoError(t, err)

	round := violationsOfType(violations, domain.RuleRoundAmount)
	require.NotEmpty(t, round, "9500 is a known structuring figure")
	assert.Equal(t, domain.SeverityMedium, round[0].Severity)
}

func TestRoundAmountPlainMultiple(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(5000, baseTime), window())
	require.NoError(t, err)

	round := violationsOfType(violations, domain.RuleRoundAmount)
	require.NotEmpty(t, round)
	assert.Equal(t, domain.SeverityLow, round[0].Severity)
}

func TestRoundAmountNotFiredForOrganicAmount(t *testing.T) {
	e := testEngine()
	violations, err := e.Evaluate(context.Background(), event(9487.33, baseTime), window())
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleRoundAmount))
}

func TestGeographicHighRiskCounterparty(t *testing.T) {
	e := testEngine()
	ev := event(500, baseTime)
	ev.DestinationCountry = "IR"
	ev.SourceCountry = "US"

	violations, err := e.Evaluate(context.Background(), ev, window())
	require.NoError(t, err)

	geo := violationsOfType(violations, domain.RuleGeographic)
	require.NotEmpty(t, geo)
	assert.Equal(t, domain.SeverityHigh, geo[0].Severity)
	assert.False(t, geo[0].RequiresImmediateAction)
}

func TestGeographicLargeAmountIsCritical(t *testing.T) {
	e := testEngine()
	ev := event(25000, baseTime)
	ev.DestinationCountry = "KP"
	ev.SourceCountry = "US"

	violations, err := e.Evaluate(context.Background(), ev, window())
	require.NoError(t, err)

	geo := violationsOfType(violations, domain.RuleGeographic)
	require.NotEmpty(t, geo)
	assert.Equal(t, domain.SeverityCritical, geo[0].Severity)
	assert.True(t, geo[0].RequiresImmediateAction)
}

func TestGeographicSafeCountry(t *testing.T) {
	e := testEngine()
	ev := event(500, baseTime)
	ev.DestinationCountry = "DE"
	ev.SourceCountry = "US"

	violations, err := e.Evaluate(context.Background(), ev, window())
	require.NoError(t, err)
	assert.Empty(t, violationsOfType(violations, domain.RuleGeographic))
}

func TestRiskScoreAdditiveAndCapped(t *testing.T) {
	e := testEngine()

	assert.Equal(t, 0.0, e.RiskScore(nil, 100))

	one := []domain.RuleViolation{{Severity: domain.SeverityMedium}}
	assert.InDelta(t, 0.2, e.RiskScore(one, 100), 1e-9)

	// Large amount adds the fixed increment.
	assert.InDelta(t, 0.3, e.RiskScore(one, 20000), 1e-9)

	many := []domain.RuleViolation{
		{Severity: domain.SeverityCritical},
		{Severity: domain.SeverityCritical},
		{Severity: domain.SeverityHigh},
	}
	assert.Equal(t, 1.0, e.RiskScore(many, 50000), "score is capped at 1.0")
}

func TestRiskScoreMonotoneInViolations(t *testing.T) {
	e := testEngine()
	base := []domain.RuleViolation{{Severity: domain.SeverityLow}}
	more := append([]domain.RuleViolation{}, base...)
	more = append(more, domain.RuleViolation{Severity: domain.SeverityMedium})
	assert.GreaterOrEqual(t, e.RiskScore(more, 100), e.RiskScore(base, 100))
}
