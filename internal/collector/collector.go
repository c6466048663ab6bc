package collector

import (
	"context"
	"log/slog"
	"time"

	"hashharvest/internal/model"
)

// Default engine settings. The batch and cap defaults mirror
// internal/config; they are duplicated here so the engine is usable
// without the config package (tests construct collectors directly).
const (
	// defaultBatchSize is the page size for primary queries.
	defaultBatchSize = 10_000

	// defaultMaxBatches is the hard safety ceiling on pages per run.
	defaultMaxBatches = 10_000

	// defaultSparsityThreshold is the unique count below which the
	// fallback source is queried after the primary pass.
	defaultSparsityThreshold = 1_000

	// defaultSecondaryCap bounds the single fallback query.
	defaultSecondaryCap = 1_000
)

// Querier issues one page request against the platform.
// Implementations block until the response arrives or the request fails;
// the engine is deliberately synchronous, one page in flight at a time.
type Querier interface {
	Query(ctx context.Context, req model.PageRequest) (model.EntityMap, error)
}

// IsTransientFunc classifies a query error as recoverable network noise.
// Transient failures cost one skipped page; everything else stops the loop.
type IsTransientFunc func(error) bool

// Collector composes the primary paginated collection with the bounded
// secondary top-up under a target-size policy and produces run statistics.
type Collector struct {
	// querier issues page requests. Typically an authenticated
	// *client.Client.
	querier Querier

	// isTransient classifies query errors. Defaults to client.IsTransient
	// via the cmd wiring; tests inject their own.
	isTransient IsTransientFunc

	// batchSize is the page size for primary queries.
	batchSize int

	// maxBatches is the safety ceiling on pages per run.
	maxBatches int

	// sparsityThreshold gates the secondary source.
	sparsityThreshold int

	// secondaryCap bounds the single secondary query.
	secondaryCap int

	// logger is used for structured progress logging.
	logger *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithBatchSize sets the page size for primary queries.
func WithBatchSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMaxBatches sets the safety ceiling on pages per run.
func WithMaxBatches(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxBatches = n
		}
	}
}

// WithSparsityThreshold sets the unique count below which the secondary
// source is queried after the primary pass.
func WithSparsityThreshold(n int) Option {
	return func(c *Collector) {
		if n >= 0 {
			c.sparsityThreshold = n
		}
	}
}

// WithSecondaryCap sets the result cap for the secondary query.
func WithSecondaryCap(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.secondaryCap = n
		}
	}
}

// WithIsTransient sets the error classifier for query failures.
func WithIsTransient(f IsTransientFunc) Option {
	return func(c *Collector) {
		c.isTransient = f
	}
}

// WithCollectorLogger sets a custom logger for the engine.
func WithCollectorLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// New creates a Collector backed by the given Querier.
func New(querier Querier, opts ...Option) *Collector {
	c := &Collector{
		querier:           querier,
		batchSize:         defaultBatchSize,
		maxBatches:        defaultMaxBatches,
		sparsityThreshold: defaultSparsityThreshold,
		secondaryCap:      defaultSecondaryCap,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.isTransient == nil {
		// Without a classifier every failure is terminal, which is the
		// conservative behavior.
		c.isTransient = func(error) bool { return false }
	}

	return c
}

// state is the run-scoped mutable accumulator. It is created inside
// Collect, owned by that single invocation, and discarded after being
// summarized into Stats. It never crosses run boundaries.
type state struct {
	hashes    model.HashSet
	batches   int
	errors    int
	startedAt time.Time
}

// Collect runs a full collection: the primary paginated pass, the optional
// secondary top-up, and statistics aggregation.
//
// target is the maximum number of unique hashes to collect; zero or
// negative means unbounded. The returned error is non-nil only for context
// cancellation; every other failure mode is a normal termination recorded
// in Stats.StopReason, and the accumulated set is valid output.
func (c *Collector) Collect(ctx context.Context, target int) (model.HashSet, model.Stats, error) {
	st := &state{
		hashes:    model.NewHashSet(),
		startedAt: time.Now(),
	}

	c.logger.Info("starting collection",
		"target", target,
		"batchSize", c.batchSize,
	)

	reason, err := c.collectPrimary(ctx, st, target)
	if err != nil {
		return nil, c.summarize(st, StopCancelled, false), err
	}

	primaryCount := st.hashes.Len()
	c.logger.Info("primary pass finished",
		"uniqueHashes", primaryCount,
		"batches", st.batches,
		"reason", reason.String(),
	)

	// The secondary source is worth the extra request only when the
	// primary clearly under-delivered.
	secondaryUsed := false
	if primaryCount < c.sparsityThreshold && reason != StopLimitReached {
		secondaryUsed = true
		c.collectSecondary(ctx, st, target)
	}

	// The secondary cap already respects the remaining target, but trim
	// defensively so the invariant holds no matter what the server sent.
	if target > 0 {
		st.hashes.TrimToSmallest(target)
	}

	stats := c.summarize(st, reason, secondaryUsed)
	c.logger.Info("collection finished",
		"uniqueHashes", stats.UniqueHashes,
		"batches", stats.BatchesProcessed,
		"errors", stats.Errors,
		"duration", stats.Duration,
		"reason", stats.StopReason,
	)

	return st.hashes, stats, nil
}

// summarize folds the run state into an immutable Stats value.
func (c *Collector) summarize(st *state, reason StopReason, secondaryUsed bool) model.Stats {
	return model.Stats{
		UniqueHashes:     st.hashes.Len(),
		BatchesProcessed: st.batches,
		Errors:           st.errors,
		StartedAt:        st.startedAt,
		Duration:         time.Since(st.startedAt),
		StopReason:       reason.String(),
		SecondaryUsed:    secondaryUsed,
	}
}
