package collector

// StopReason records why the primary collection loop terminated.
// Every reason is a normal braking state of the state machine, not a
// crash: whatever was accumulated when the loop stopped is valid output.
//
// Design decision: We model the termination branches as an explicit
// enumeration rather than ad-hoc early returns so tests and run history
// can assert on why a run stopped.
type StopReason int

const (
	// StopNone means the loop has not terminated. It never appears in a
	// finished run's statistics.
	StopNone StopReason = iota

	// StopPageEmpty means the server returned an empty result map:
	// there is no more data.
	StopPageEmpty

	// StopStagnant means consecutive pages added nothing new to the
	// accumulator: the server is repeating pages instead of advancing.
	StopStagnant

	// StopLimitReached means the accumulator reached the collection
	// target and was trimmed to exactly that size.
	StopLimitReached

	// StopShortPage means the server returned fewer entities than
	// requested, which signals the end of the result set.
	StopShortPage

	// StopBatchCapReached means the hard safety ceiling on pages per run
	// was hit. This guard is independent of the target.
	StopBatchCapReached

	// StopTransportFailure means a request failed in a way that is not
	// recognized as transient. The loop stops gracefully, preserving
	// everything accumulated so far.
	StopTransportFailure

	// StopCancelled means the run's context was cancelled.
	StopCancelled
)

// String returns the canonical label for the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopPageEmpty:
		return "PAGE_EMPTY"
	case StopStagnant:
		return "STAGNANT"
	case StopLimitReached:
		return "LIMIT_REACHED"
	case StopShortPage:
		return "SHORT_PAGE"
	case StopBatchCapReached:
		return "BATCH_CAP_REACHED"
	case StopTransportFailure:
		return "TRANSPORT_FAILURE"
	case StopCancelled:
		return "CANCELLED"
	default:
		return "NONE"
	}
}
