package collector

import (
	"context"

	"hashharvest/internal/model"
)

// stagnantPageLimit is the number of consecutive pages that may add zero
// new hashes before the loop concludes the server is repeating itself.
// A single zero-yield page is normal: its hashes may all overlap earlier
// pages. Two in a row means pagination is not advancing.
const stagnantPageLimit = 2

// collectPrimary drives the paginated loop against the FileHash source.
//
// Loop invariant: at loop entry, skip equals the number of entities worth
// of pages already requested and st.hashes holds every unique hash
// collected so far.
//
// The returned error is non-nil only for context cancellation. Every other
// outcome is one of the StopReason termination branches; all five
// independent conditions are necessary because the upstream offers no
// authoritative end-of-results signal.
func (c *Collector) collectPrimary(ctx context.Context, st *state, target int) (StopReason, error) {
	skip := 0
	stagnantPages := 0

	for {
		select {
		case <-ctx.Done():
			return StopCancelled, ctx.Err()
		default:
		}

		// A bounded run never requests more than it still needs.
		pageSize := c.batchSize
		if target > 0 {
			if remaining := target - st.hashes.Len(); remaining < pageSize {
				pageSize = remaining
			}
		}

		entities, err := c.querier.Query(ctx, model.PageRequest{
			Source:   model.SourcePrimary,
			PageSize: pageSize,
			Skip:     skip,
		})
		if err != nil {
			if ctx.Err() != nil {
				return StopCancelled, ctx.Err()
			}
			st.errors++
			if c.isTransient(err) {
				// Forward-skip: the lost page is treated as skipped,
				// not retried in place. A gap in an approximate,
				// deduplicated collection is cheaper than stalling.
				c.logger.Warn("transient transport error, skipping page",
					"skip", skip,
					"error", err,
				)
				skip += c.batchSize
				st.batches++
				continue
			}
			c.logger.Error("primary query failed",
				"skip", skip,
				"error", err,
			)
			return StopTransportFailure, nil
		}

		if len(entities) == 0 {
			return StopPageEmpty, nil
		}

		before := st.hashes.Len()
		st.hashes.Union(Extract(entities, PrimaryFieldExpectations))
		actuallyNew := st.hashes.Len() - before

		if actuallyNew == 0 {
			stagnantPages++
			if stagnantPages >= stagnantPageLimit {
				return StopStagnant, nil
			}
		} else {
			stagnantPages = 0
		}

		c.logger.Debug("page processed",
			"skip", skip,
			"pageEntities", len(entities),
			"newHashes", actuallyNew,
			"totalHashes", st.hashes.Len(),
		)

		if target > 0 && st.hashes.Len() >= target {
			st.hashes.TrimToSmallest(target)
			return StopLimitReached, nil
		}

		if len(entities) < pageSize {
			return StopShortPage, nil
		}

		skip += pageSize
		st.batches++
		if st.batches >= c.maxBatches {
			c.logger.Warn("batch safety ceiling reached, stopping collection",
				"batches", st.batches,
			)
			return StopBatchCapReached, nil
		}
	}
}
