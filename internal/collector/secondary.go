package collector

import (
	"context"

	"hashharvest/internal/model"
)

// collectSecondary issues the single bounded fallback query against the
// Malop source and merges its hashes into the accumulator.
//
// This source is low-volume, so it is not paged: one request, capped at
// min(remaining target or default, secondaryCap). It is strictly
// best-effort; a failure increments the error count and leaves the
// accumulator untouched.
func (c *Collector) collectSecondary(ctx context.Context, st *state, target int) {
	limit := c.secondaryCap
	if target > 0 {
		if remaining := target - st.hashes.Len(); remaining < limit {
			limit = remaining
		}
	}
	if limit <= 0 {
		return
	}

	entities, err := c.querier.Query(ctx, model.PageRequest{
		Source:   model.SourceSecondary,
		PageSize: limit,
	})
	if err != nil {
		st.errors++
		c.logger.Warn("secondary query failed, continuing without top-up",
			"error", err,
		)
		return
	}

	before := st.hashes.Len()
	st.hashes.Union(Extract(entities, SecondaryFieldExpectations))

	c.logger.Info("secondary top-up finished",
		"added", st.hashes.Len()-before,
		"totalHashes", st.hashes.Len(),
	)
}
