package screening

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/matching"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Well-known source list identifiers.
const (
	SourceOFACSDN      = "OFAC_SDN"
	SourceEU           = "EU_CONSOLIDATED"
	SourceUN           = "UN_CONSOLIDATED"
	SourceUK           = "UK_SANCTIONS"
	SourceConsolidated = "CONSOLIDATED_AGGREGATOR"
)

// Fetcher returns the current authoritative entry set for one sanctions
// source. Implemented outside the engine; a failure must be returned as an
// error, never as an empty list.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context) ([]domain.WatchlistEntry, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc struct {
	Name string
	Fn   func(ctx context.Context) ([]domain.WatchlistEntry, error)
}

func (f FetcherFunc) Source() string { return f.Name }

func (f FetcherFunc) Fetch(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return f.Fn(ctx)
}

// SnapshotCache persists watchlist snapshots across restarts so a cold
// process can screen before its first live fetch.
type SnapshotCache interface {
	Load(ctx context.Context, source string) ([]domain.WatchlistEntry, time.Time, error)
	Store(ctx context.Context, source string, entries []domain.WatchlistEntry) error
}

// snapshot is an immutable view of one source's entry set. Refresh swaps
// the whole snapshot; concurrent FindCandidates calls keep reading the one
// they started with.
type snapshot struct {
	entries   []domain.WatchlistEntry
	fetchedAt time.Time
}

// Adapter screens subjects against the cached entry set of one sanctions
// source.
type Adapter struct {
	fetcher Fetcher
	scorer  *matching.Scorer
	breaker *gobreaker.CircuitBreaker
	cache   SnapshotCache // optional
	ttl     time.Duration
	log     *logger.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithSnapshotCache enables warm-start snapshot persistence.
func WithSnapshotCache(cache SnapshotCache) AdapterOption {
	return func(a *Adapter) { a.cache = cache }
}

// NewAdapter creates a list source adapter around a fetcher.
func NewAdapter(fetcher Fetcher, scorer *matching.Scorer, ttl time.Duration, failureThreshold uint32, openTimeout time.Duration, log *logger.Logger, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		fetcher: fetcher,
		scorer:  scorer,
		ttl:     ttl,
		log:     log.Named("adapter_" + fetcher.Source()),
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    fetcher.Source(),
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source returns the source list identifier.
func (a *Adapter) Source() string {
	return a.fetcher.Source()
}

// Refresh replaces the in-memory entry set from the authoritative source.
// On failure the previous snapshot is kept so screening serves stale data
// rather than none.
func (a *Adapter) Refresh(ctx context.Context) error {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetcher.Fetch(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, a.Source(), err)
	}

	entries := result.([]domain.WatchlistEntry)
	for i := range entries {
		if entries[i].SourceList == "" {
			entries[i].SourceList = a.Source()
		}
	}
	a.swap(&snapshot{entries: entries, fetchedAt: time.Now()})

	if a.cache != nil {
		if err := a.cache.Store(ctx, a.Source(), entries); err != nil {
			a.log.Warn("snapshot cache store failed", logger.ErrorField(err))
		}
	}

	a.log.ListRefreshed(a.Source(), len(entries))
	return nil
}

// LoadCached restores the last persisted snapshot, if any. Used at startup
// before the first live refresh.
func (a *Adapter) LoadCached(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	entries, fetchedAt, err := a.cache.Load(ctx, a.Source())
	if err != nil {
		return err
	}
	a.swap(&snapshot{entries: entries, fetchedAt: fetchedAt})
	return nil
}

// Stale reports whether the snapshot is older than the adapter's TTL.
func (a *Adapter) Stale() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap == nil || time.Since(a.snap.fetchedAt) > a.ttl
}

// FindCandidates scores the subject against every entry in the current
// snapshot and returns matches at or above the floor score, best first.
// Safe to call concurrently with an in-flight Refresh.
func (a *Adapter) FindCandidates(ctx context.Context, subject *domain.ScreeningSubject, floor float64) ([]domain.MatchResult, error) {
	a.mu.RLock()
	snap := a.snap
	a.mu.RUnlock()

	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotEmpty, a.Source())
	}

	matches := make([]domain.MatchResult, 0, 4)
	for i := range snap.entries {
		if i%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		entry := &snap.entries[i]
		score, subScores, alias := a.scorer.Score(subject, entry)
		if score < floor {
			continue
		}

		matchType := domain.MatchTypeFuzzy
		if score >= 1.0 {
			matchType = domain.MatchTypeExact
		}
		if alias != "" {
			matchType = domain.MatchTypeAlias
		}

		matches = append(matches, domain.MatchResult{
			EntryID:      entry.EntryID,
			MatchedName:  entry.Name,
			MatchedAlias: alias,
			Score:        score,
			SubScores:    subScores,
			Bucket:       domain.BucketForScore(score),
			MatchType:    matchType,
			SourceList:   entry.SourceList,
			Program:      entry.Program,
			Designation:  entry.Designation,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

func (a *Adapter) swap(s *snapshot) {
	a.mu.Lock()
	a.snap = s
	a.mu.Unlock()
}
