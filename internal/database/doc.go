// Package database provides SQLite-based storage for collection run
// history and the cumulative hash inventory.
//
// Each completed run is recorded in the runs table, and every hash seen
// across runs is upserted into the hashes table with first/last seen
// timestamps. The database uses modernc.org/sqlite, a pure Go driver,
// so no CGO toolchain is required to build.
package database
