package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"hashharvest/internal/model"
)

// quietLogger discards engine log output in tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// page builds an entity map with one FileHash entity per hash value.
// Entity ids are derived from the values so repeated calls build
// identical pages.
func page(hashes ...string) model.EntityMap {
	entities := make(model.EntityMap, len(hashes))
	for i, h := range hashes {
		entities[fmt.Sprintf("entity-%d-%s", i, h[:8])] = model.Entity{
			SimpleValues: map[string]model.FieldValues{
				"sha1HexString": {Values: []string{h}},
			},
		}
	}
	return entities
}

// sha1 builds a valid 40-character hash from a seed.
func sha1(seed int) string {
	return fmt.Sprintf("%040d", seed)
}

// scriptResult is one scripted response of the fake querier.
type scriptResult struct {
	entities model.EntityMap
	err      error
}

// scriptedQuerier replays a fixed script of page results and records every
// request it receives. When the script runs out it either repeats the last
// entry (repeatLast) or returns empty pages.
type scriptedQuerier struct {
	script     []scriptResult
	repeatLast bool
	requests   []model.PageRequest
}

func (q *scriptedQuerier) Query(_ context.Context, req model.PageRequest) (model.EntityMap, error) {
	q.requests = append(q.requests, req)

	i := len(q.requests) - 1
	if i >= len(q.script) {
		if q.repeatLast && len(q.script) > 0 {
			i = len(q.script) - 1
		} else {
			return model.EntityMap{}, nil
		}
	}
	return q.script[i].entities, q.script[i].err
}

// transportErr is a non-transient failure for scripted pages.
var transportErr = errors.New("bad gateway")

// transientOnly classifies exactly fs.ErrClosed as transient, so tests can
// distinguish the two failure paths deterministically.
func transientOnly(err error) bool {
	return errors.Is(err, fs.ErrClosed)
}

// TestCollectEndToEnd tests the canonical duplicate-page scenario:
// page1 carries a hash, page2 carries the same hash under a different
// entity, page3 is empty. The run must end with PAGE_EMPTY after two
// processed batches and a single collected hash.
func TestCollectEndToEnd(t *testing.T) {
	t.Parallel()

	dup := strings.Repeat("a", 40)
	q := &scriptedQuerier{script: []scriptResult{
		{entities: model.EntityMap{"A": {SimpleValues: map[string]model.FieldValues{"sha1HexString": {Values: []string{dup}}}}}},
		{entities: model.EntityMap{"B": {SimpleValues: map[string]model.FieldValues{"sha1HexString": {Values: []string{dup}}}}}},
		{entities: model.EntityMap{}},
	}}

	c := New(q,
		WithBatchSize(1),
		WithSparsityThreshold(0), // isolate the primary pass
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hashes.Len() != 1 || !hashes.Contains(dup) {
		t.Errorf("expected collected set {%s}, got %v", dup, hashes.Sorted())
	}
	if stats.BatchesProcessed != 2 {
		t.Errorf("expected 2 batches processed, got %d", stats.BatchesProcessed)
	}
	if stats.StopReason != StopPageEmpty.String() {
		t.Errorf("expected stop reason PAGE_EMPTY, got %s", stats.StopReason)
	}
	if stats.UniqueHashes != 1 {
		t.Errorf("expected 1 unique hash in stats, got %d", stats.UniqueHashes)
	}
}

// TestCollectStagnation tests that a source repeating the same page forever
// stops the loop shortly after stagnation is detected.
func TestCollectStagnation(t *testing.T) {
	t.Parallel()

	repeated := page(sha1(1), sha1(2))
	q := &scriptedQuerier{
		script:     []scriptResult{{entities: repeated}},
		repeatLast: true,
	}

	c := New(q,
		WithBatchSize(2),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.StopReason != StopStagnant.String() {
		t.Errorf("expected stop reason STAGNANT, got %s", stats.StopReason)
	}
	if hashes.Len() != 2 {
		t.Errorf("expected 2 unique hashes, got %d", hashes.Len())
	}
	// First page yields hashes; the loop may take one extra zero-yield
	// page to confirm stagnation, but must not spin beyond that.
	if len(q.requests) > 4 {
		t.Errorf("loop did not stop promptly after stagnation: %d requests", len(q.requests))
	}
}

// TestCollectShortPage tests that a page smaller than requested ends the run.
func TestCollectShortPage(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{script: []scriptResult{
		{entities: page(sha1(1), sha1(2), sha1(3))},
	}}

	c := New(q,
		WithBatchSize(10),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.StopReason != StopShortPage.String() {
		t.Errorf("expected stop reason SHORT_PAGE, got %s", stats.StopReason)
	}
	if hashes.Len() != 3 {
		t.Errorf("expected 3 hashes, got %d", hashes.Len())
	}
	if len(q.requests) != 1 {
		t.Errorf("expected a single request, got %d", len(q.requests))
	}
}

// TestCollectLimitTrimming tests that a target of 10 against a source
// yielding 15 uniques produces exactly 10, all from the superset, chosen
// deterministically.
func TestCollectLimitTrimming(t *testing.T) {
	t.Parallel()

	superset := make([]string, 15)
	for i := range superset {
		superset[i] = sha1(i)
	}

	q := &scriptedQuerier{script: []scriptResult{
		{entities: page(superset[:5]...)},
		{entities: page(superset[5:10]...)},
		{entities: page(superset[10:]...)},
	}}

	c := New(q,
		WithBatchSize(5),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hashes.Len() != 10 {
		t.Fatalf("expected exactly 10 hashes, got %d", hashes.Len())
	}
	if stats.StopReason != StopLimitReached.String() {
		t.Errorf("expected stop reason LIMIT_REACHED, got %s", stats.StopReason)
	}
	member := make(map[string]bool, len(superset))
	for _, h := range superset {
		member[h] = true
	}
	for _, h := range hashes.Sorted() {
		if !member[h] {
			t.Errorf("collected hash %q not in source superset", h)
		}
	}
	// Deterministic rule: the lexicographically smallest N survive.
	for _, h := range superset[:10] {
		if !hashes.Contains(h) {
			t.Errorf("expected smallest hashes to survive trimming, missing %q", h)
		}
	}
}

// TestCollectPageSizeRespectsRemaining tests page size = min(batch, remaining).
func TestCollectPageSizeRespectsRemaining(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{script: []scriptResult{
		{entities: page(sha1(1), sha1(2), sha1(3), sha1(4), sha1(5))},
		{entities: page(sha1(6), sha1(7))},
	}}

	c := New(q,
		WithBatchSize(5),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	if _, _, err := c.Collect(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(q.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(q.requests))
	}
	if q.requests[0].PageSize != 5 {
		t.Errorf("first request should use full batch size, got %d", q.requests[0].PageSize)
	}
	if q.requests[1].PageSize != 2 {
		t.Errorf("second request should be trimmed to remaining 2, got %d", q.requests[1].PageSize)
	}
	if q.requests[1].Skip != 5 {
		t.Errorf("expected skip advanced by first page size, got %d", q.requests[1].Skip)
	}
}

// TestCollectBatchCap tests the infinite-loop guard.
func TestCollectBatchCap(t *testing.T) {
	t.Parallel()

	// Each request yields a fresh full page, so no other branch fires.
	q := &freshPageQuerier{pageSize: 2}

	c := New(q,
		WithBatchSize(2),
		WithMaxBatches(3),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	_, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.StopReason != StopBatchCapReached.String() {
		t.Errorf("expected stop reason BATCH_CAP_REACHED, got %s", stats.StopReason)
	}
	if stats.BatchesProcessed != 3 {
		t.Errorf("expected 3 batches, got %d", stats.BatchesProcessed)
	}
}

// freshPageQuerier returns a full page of never-seen hashes on every call.
type freshPageQuerier struct {
	pageSize int
	seq      int
}

func (q *freshPageQuerier) Query(_ context.Context, req model.PageRequest) (model.EntityMap, error) {
	hashes := make([]string, req.PageSize)
	for i := range hashes {
		q.seq++
		hashes[i] = sha1(q.seq)
	}
	return page(hashes...), nil
}

// TestCollectTransientSkip tests the forward-skip policy for recoverable
// transport errors.
func TestCollectTransientSkip(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{script: []scriptResult{
		{err: fs.ErrClosed}, // transient per transientOnly
		{entities: page(sha1(1))},
	}}

	c := New(q,
		WithBatchSize(4),
		WithSparsityThreshold(0),
		WithIsTransient(transientOnly),
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hashes.Len() != 1 {
		t.Errorf("expected collection to continue past transient error, got %d hashes", hashes.Len())
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 recorded error, got %d", stats.Errors)
	}
	if len(q.requests) < 2 {
		t.Fatalf("expected a second request after forward skip, got %d", len(q.requests))
	}
	// The lost page is skipped by a full batch, not retried in place.
	if q.requests[1].Skip != 4 {
		t.Errorf("expected skip advanced by batch size 4, got %d", q.requests[1].Skip)
	}
}

// TestCollectTransportFailure tests that a terminal failure stops the loop
// gracefully, preserving what was accumulated.
func TestCollectTransportFailure(t *testing.T) {
	t.Parallel()

	q := &scriptedQuerier{script: []scriptResult{
		{entities: page(sha1(1), sha1(2))},
		{err: transportErr},
	}}

	c := New(q,
		WithBatchSize(2),
		WithSparsityThreshold(0),
		WithIsTransient(transientOnly),
		WithCollectorLogger(quietLogger()),
	)

	hashes, stats, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("terminal transport failure must not surface as a run error, got %v", err)
	}

	if stats.StopReason != StopTransportFailure.String() {
		t.Errorf("expected stop reason TRANSPORT_FAILURE, got %s", stats.StopReason)
	}
	if hashes.Len() != 2 {
		t.Errorf("expected accumulated hashes preserved, got %d", hashes.Len())
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 recorded error, got %d", stats.Errors)
	}
}

// TestCollectCancellation tests that context cancellation aborts the run.
func TestCollectCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &freshPageQuerier{pageSize: 1}
	c := New(q, WithCollectorLogger(quietLogger()))

	_, _, err := c.Collect(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestCollectSecondaryTopUp tests the sparsity policy for the fallback source.
func TestCollectSecondaryTopUp(t *testing.T) {
	t.Parallel()

	t.Run("used when primary is sparse", func(t *testing.T) {
		t.Parallel()

		secondaryHash := strings.Repeat("f", 64)
		q := &scriptedQuerier{script: []scriptResult{
			{entities: page(sha1(1))}, // short page ends primary
			{entities: model.EntityMap{
				"malop1": {SimpleValues: map[string]model.FieldValues{
					"imageFile.sha256String": {Values: []string{secondaryHash}},
				}},
			}},
		}}

		c := New(q,
			WithBatchSize(10),
			WithSparsityThreshold(5),
			WithCollectorLogger(quietLogger()),
		)

		hashes, stats, err := c.Collect(context.Background(), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !stats.SecondaryUsed {
			t.Error("expected secondary source to be used")
		}
		if !hashes.Contains(secondaryHash) {
			t.Error("expected secondary hash in final set")
		}
		if len(q.requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(q.requests))
		}
		if q.requests[1].Source != model.SourceSecondary {
			t.Errorf("expected second request against secondary source, got %v", q.requests[1].Source)
		}
	})

	t.Run("skipped when primary delivered enough", func(t *testing.T) {
		t.Parallel()

		q := &scriptedQuerier{script: []scriptResult{
			{entities: page(sha1(1), sha1(2), sha1(3))}, // short page
		}}

		c := New(q,
			WithBatchSize(10),
			WithSparsityThreshold(2),
			WithCollectorLogger(quietLogger()),
		)

		_, stats, err := c.Collect(context.Background(), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if stats.SecondaryUsed {
			t.Error("secondary source should not be used above the sparsity threshold")
		}
		if len(q.requests) != 1 {
			t.Errorf("expected a single request, got %d", len(q.requests))
		}
	})

	t.Run("cap respects remaining target", func(t *testing.T) {
		t.Parallel()

		q := &scriptedQuerier{script: []scriptResult{
			{entities: page(sha1(1))}, // short page, 1 unique
			{entities: model.EntityMap{}},
		}}

		c := New(q,
			WithBatchSize(10),
			WithSparsityThreshold(5),
			WithSecondaryCap(1000),
			WithCollectorLogger(quietLogger()),
		)

		if _, _, err := c.Collect(context.Background(), 4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(q.requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(q.requests))
		}
		if q.requests[1].PageSize != 3 {
			t.Errorf("expected secondary cap trimmed to remaining 3, got %d", q.requests[1].PageSize)
		}
	})

	t.Run("failure is best-effort", func(t *testing.T) {
		t.Parallel()

		q := &scriptedQuerier{script: []scriptResult{
			{entities: page(sha1(1))},
			{err: transportErr},
		}}

		c := New(q,
			WithBatchSize(10),
			WithSparsityThreshold(5),
			WithCollectorLogger(quietLogger()),
		)

		hashes, stats, err := c.Collect(context.Background(), 0)
		if err != nil {
			t.Fatalf("secondary failure must not fail the run, got %v", err)
		}

		if hashes.Len() != 1 {
			t.Errorf("expected primary hashes preserved, got %d", hashes.Len())
		}
		if stats.Errors != 1 {
			t.Errorf("expected secondary failure counted, got %d errors", stats.Errors)
		}
	})
}

// TestCollectDedupAcrossPages tests the dedup invariant: the final size
// equals the count of distinct valid hashes across all pages regardless of
// page order or overlap.
func TestCollectDedupAcrossPages(t *testing.T) {
	t.Parallel()

	a, b, c1, d := sha1(1), sha1(2), sha1(3), sha1(4)
	q := &scriptedQuerier{script: []scriptResult{
		{entities: page(a, b)},
		{entities: page(b, c1)},
		{entities: page(c1, d)},
		{entities: model.EntityMap{}},
	}}

	c := New(q,
		WithBatchSize(2),
		WithSparsityThreshold(0),
		WithCollectorLogger(quietLogger()),
	)

	hashes, _, err := c.Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hashes.Len() != 4 {
		t.Errorf("expected 4 distinct hashes across overlapping pages, got %d", hashes.Len())
	}
}

// TestStopReasonString tests the stop reason labels.
func TestStopReasonString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason StopReason
		want   string
	}{
		{StopPageEmpty, "PAGE_EMPTY"},
		{StopStagnant, "STAGNANT"},
		{StopLimitReached, "LIMIT_REACHED"},
		{StopShortPage, "SHORT_PAGE"},
		{StopBatchCapReached, "BATCH_CAP_REACHED"},
		{StopTransportFailure, "TRANSPORT_FAILURE"},
		{StopCancelled, "CANCELLED"},
		{StopNone, "NONE"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("StopReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
