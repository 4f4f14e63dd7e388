package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/matching"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

func testScreeningConfig() *config.ScreeningConfig {
	return &config.ScreeningConfig{
		Deadline:           2 * time.Second,
		AdapterTimeout:     500 * time.Millisecond,
		FloorScore:         0.70,
		CommonNames:        []string{"john smith"},
		CommonNamePenalty:  0.05,
		LargeAmountContext: 100000,
	}
}

func readyAdapter(t *testing.T, source string, entries []domain.WatchlistEntry) *Adapter {
	t.Helper()
	a := NewAdapter(
		FetcherFunc{Name: source, Fn: func(ctx context.Context) ([]domain.WatchlistEntry, error) {
			return entries, nil
		}},
		matching.NewScorer(),
		time.Hour, 5, time.Minute,
		logger.Nop(),
	)
	require.NoError(t, a.Refresh(context.Background()))
	return a
}

func brokenAdapter(t *testing.T, source string) *Adapter {
	t.Helper()
	// Never refreshed: every FindCandidates call fails with an empty snapshot.
	return NewAdapter(
		FetcherFunc{Name: source, Fn: func(ctx context.Context) ([]domain.WatchlistEntry, error) {
			return nil, errors.New("upstream down")
		}},
		matching.NewScorer(),
		time.Hour, 5, time.Minute,
		logger.Nop(),
	)
}

func TestScreenRejectsMalformedSubject(t *testing.T) {
	o := NewOrchestrator(nil, nil, NewClassifier(), testScreeningConfig(), logger.Nop())
	_, err := o.Screen(context.Background(), &domain.ScreeningSubject{})
	assert.ErrorIs(t, err, domain.ErrMalformedSubject)
}

func TestScreenCleanSubject(t *testing.T) {
	adapters := []*Adapter{
		readyAdapter(t, SourceOFACSDN, sdnEntries()),
		readyAdapter(t, SourceEU, sdnEntries()),
	}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	result, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Completely Unrelated Person",
	})
	require.NoError(t, err)
	assert.False(t, result.HasMatches())
	assert.Equal(t, domain.RiskNone, result.RiskLevel)
	assert.False(t, result.Partial)
	assert.Len(t, result.SourcesQueried, 2)
}

func TestScreenMatchAcrossSources(t *testing.T) {
	adapters := []*Adapter{
		readyAdapter(t, SourceOFACSDN, sdnEntries()),
		readyAdapter(t, SourceEU, sdnEntries()),
	}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	result, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Viktor Bout",
	})
	require.NoError(t, err)
	assert.True(t, result.HasMatches())
	assert.Equal(t, 2, result.DistinctSources())
	// MAXIMUM bucket on two sources: CRITICAL escalated to PROHIBITED.
	assert.Equal(t, domain.RiskProhibited, result.RiskLevel)
	assert.True(t, result.RequiresManualReview)
}

func TestScreenPartialFailure(t *testing.T) {
	adapters := []*Adapter{
		readyAdapter(t, SourceOFACSDN, sdnEntries()),
		brokenAdapter(t, SourceEU),
	}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	result, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Viktor Bout",
	})
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.False(t, result.FailSecure)
	assert.Equal(t, []string{SourceOFACSDN}, result.SourcesQueried)
	assert.Equal(t, []string{SourceEU}, result.SourcesFailed)
	assert.True(t, result.HasMatches(), "answers from live sources still count")
}

func TestScreenTotalFailureFailsSecure(t *testing.T) {
	adapters := []*Adapter{
		brokenAdapter(t, SourceOFACSDN),
		brokenAdapter(t, SourceEU),
	}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	result, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Anyone At All",
	})
	require.NoError(t, err, "total source failure must not surface as an error")
	assert.True(t, result.FailSecure)
	assert.True(t, result.Partial)
	assert.True(t, result.RequiresManualReview)
	assert.True(t, result.HasMatches(), "fail-secure counts as matched, never a silent clear")
	assert.Equal(t, domain.RiskHigh, result.RiskLevel)
	assert.Empty(t, result.SourcesQueried)
}

func TestScreenFallbackTier(t *testing.T) {
	adapters := []*Adapter{
		brokenAdapter(t, SourceOFACSDN),
		brokenAdapter(t, SourceEU),
	}
	fallback := readyAdapter(t, SourceConsolidated, sdnEntries())
	o := NewOrchestrator(adapters, fallback, NewClassifier(), testScreeningConfig(), logger.Nop())

	result, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Viktor Bout",
	})
	require.NoError(t, err)
	assert.False(t, result.FailSecure, "a fallback answer avoids the fail-secure path")
	assert.Equal(t, []string{SourceConsolidated}, result.SourcesQueried)
	assert.True(t, result.HasMatches())
}

func TestCommonNamePenalty(t *testing.T) {
	entries := []domain.WatchlistEntry{
		{EntryID: "SDN-9", Name: "Jon Smith"}, // close but not exact
	}
	adapters := []*Adapter{readyAdapter(t, SourceOFACSDN, entries)}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	penalized, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "John Smith",
	})
	require.NoError(t, err)

	rare, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID: uuid.New(),
		FullName: "Jon Smith", // exact, MAXIMUM bucket, never penalized
	})
	require.NoError(t, err)
	require.NotEmpty(t, rare.Matches)

	if len(penalized.Matches) > 0 {
		assert.Less(t, penalized.Matches[0].Score, rare.Matches[0].Score,
			"common-name scores only ever move down")
	}
}

func TestLargeAmountEscalation(t *testing.T) {
	adapters := []*Adapter{readyAdapter(t, SourceOFACSDN, sdnEntries())}
	o := NewOrchestrator(adapters, nil, NewClassifier(), testScreeningConfig(), logger.Nop())

	small, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID:          uuid.New(),
		FullName:          "Viktor Bout",
		TransactionAmount: 500,
	})
	require.NoError(t, err)

	large, err := o.Screen(context.Background(), &domain.ScreeningSubject{
		EntityID:          uuid.New(),
		FullName:          "Viktor Bout",
		TransactionAmount: 250000,
	})
	require.NoError(t, err)

	assert.True(t, large.RiskLevel.AtLeast(small.RiskLevel))
	assert.NotEqual(t, small.RiskLevel, large.RiskLevel,
		"a large transaction context escalates the risk level one step")
}
