package model

import (
	"sort"
	"time"
)

// HashSet is a set of unique hash strings. The case-sensitive string value
// is the identity key; no normalization is applied because the upstream
// platform is the source of truth for how a hash is spelled.
//
// Design decision: We wrap map[string]struct{} in a named type rather than
// using the raw map at call sites because the set operations (union,
// deterministic trimming, sorted export) carry policy that should live in
// one place.
type HashSet map[string]struct{}

// NewHashSet creates an empty HashSet.
func NewHashSet() HashSet {
	return make(HashSet)
}

// Add inserts a hash into the set. Inserting an existing value is a no-op,
// so a hash is never counted twice regardless of which source or batch
// produced it.
func (s HashSet) Add(hash string) {
	s[hash] = struct{}{}
}

// Union inserts all values from other into the set.
func (s HashSet) Union(other HashSet) {
	for hash := range other {
		s[hash] = struct{}{}
	}
}

// Contains reports whether the hash is in the set.
func (s HashSet) Contains(hash string) bool {
	_, ok := s[hash]
	return ok
}

// Len returns the number of unique hashes in the set.
func (s HashSet) Len() int {
	return len(s)
}

// Sorted returns the hashes in ascending lexicographic order.
// Writers rely on this for deterministic output given a fixed input set.
func (s HashSet) Sorted() []string {
	hashes := make([]string, 0, len(s))
	for hash := range s {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

// TrimToSmallest reduces the set to at most n elements, keeping the
// lexicographically smallest ones. Map iteration order is not meaningful,
// so trimming by iteration would make the surviving elements
// non-deterministic; sorting first makes repeated runs over the same data
// produce the same inventory.
func (s HashSet) TrimToSmallest(n int) {
	if n < 0 || len(s) <= n {
		return
	}
	for _, hash := range s.Sorted()[n:] {
		delete(s, hash)
	}
}

// Records converts the set into HashRecords stamped with the given
// collection time, ordered ascending by hash string.
func (s HashSet) Records(collectedAt time.Time) []HashRecord {
	records := make([]HashRecord, 0, len(s))
	for _, hash := range s.Sorted() {
		records = append(records, NewHashRecord(hash, collectedAt))
	}
	return records
}
