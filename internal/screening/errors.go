package screening

import "errors"

var (
	// ErrSnapshotEmpty is returned by FindCandidates before the first
	// successful refresh; it is distinguishable from an empty match set.
	ErrSnapshotEmpty = errors.New("no watchlist snapshot loaded for source")

	// ErrSourceUnavailable wraps fetch failures of a single list source.
	ErrSourceUnavailable = errors.New("list source unavailable")

	// ErrTotalScreeningFailure means every configured source, including
	// the fallback tier, failed within the deadline. The orchestrator
	// converts this into a fail-secure result; it must never surface as
	// a silent clear.
	ErrTotalScreeningFailure = errors.New("all list sources failed")
)
