// Package model defines the core data structures shared across hashharvest.
//
// This package contains the hash inventory domain types (HashKind, HashRecord,
// HashSet, Inventory) and the run statistics value returned by a collection.
// It has no dependencies on other internal packages, allowing it to be
// imported by every layer without creating import cycles.
package model
