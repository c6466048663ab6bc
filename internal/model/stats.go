package model

import "time"

// Stats summarizes a completed collection run.
//
// Design decision: Stats is an explicit value returned from Collect rather
// than ambient mutated state. This keeps concurrent runs against different
// servers fully isolated and makes the numbers trivially assertable in tests.
type Stats struct {
	// UniqueHashes is the final number of unique hashes collected.
	UniqueHashes int `json:"unique_hashes"`

	// BatchesProcessed is the number of pages requested from the primary
	// source, including pages skipped after transient transport errors.
	BatchesProcessed int `json:"batches_processed"`

	// Errors is the number of request failures encountered, transient or
	// terminal, across both sources.
	Errors int `json:"errors"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// StopReason records why the primary collection loop terminated.
	StopReason string `json:"stop_reason"`

	// SecondaryUsed reports whether the fallback source was queried.
	SecondaryUsed bool `json:"secondary_used"`
}

// Rate returns the average unique hashes per second.
// Returns 0 for sub-measurable durations to avoid dividing by zero.
func (s Stats) Rate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.UniqueHashes) / s.Duration.Seconds()
}

// Inventory is the finished artifact of a run: the deduplicated records in
// stable order plus the statistics that produced them. This is what report
// writers consume.
type Inventory struct {
	// Server is the platform base URL the hashes were collected from.
	Server string `json:"server"`

	// Records holds the collected hashes in ascending hash order.
	Records []HashRecord `json:"records"`

	// Stats summarizes the run.
	Stats Stats `json:"stats"`
}
