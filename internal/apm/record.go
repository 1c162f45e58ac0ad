// Package apm defines the decoded APM action record delivered by listeners
// to the aggregation pipeline.
package apm

import "github.com/okorienev/palantir-agent/internal/metrics"

// Measurement is a single timed sub-operation of an action, e.g. one
// database query.
type Measurement struct {
	Name      string
	ElapsedUS uint64
}

// Record is one decoded action submission. Records are immutable once they
// are placed on the ingestion queue.
type Record struct {
	Realm           string
	Application     string
	ApplicationHash string
	ActionKind      string
	ActionName      string

	// TotalUS is the whole action duration in microseconds.
	TotalUS uint64

	// Dimensions are free-form tags. Their order does not affect grouping.
	Dimensions []metrics.Tag

	// Measurements holds one entry per occurrence of a sub-operation.
	Measurements []Measurement
}

// MeasuredUS returns the sum of all measurement durations and false if the
// sum overflows uint64.
func (r *Record) MeasuredUS() (uint64, bool) {
	var total uint64
	for _, m := range r.Measurements {
		next := total + m.ElapsedUS
		if next < total {
			return 0, false
		}
		total = next
	}
	return total, true
}
