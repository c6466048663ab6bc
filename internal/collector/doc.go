// Package collector implements the paginated, deduplicating hash
// collection engine.
//
// The engine drives repeated page queries against the platform's FileHash
// source, validates and merges candidate hashes into a duplicate-free
// accumulator, and stops on one of several inferred termination conditions:
// the upstream API offers no authoritative "end of results" signal, so the
// loop must recognize the end heuristically (empty page, stagnant
// pagination, short page) and must never spin forever (hard batch cap).
//
// When the primary source under-delivers, a single bounded query against
// the lower-volume Malop source tops up the result. Both sources feed the
// same accumulator, so a hash is never counted twice regardless of origin.
//
// The engine is synchronous and single-run: all mutable state lives in a
// run-scoped value created inside Collect and summarized into Stats when
// the run ends. Concurrent runs never share state.
package collector
