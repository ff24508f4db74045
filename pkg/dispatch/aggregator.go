package dispatch

import (
	"sync/atomic"
	"time"

	"cache-warmer/pkg/models"
)

// Aggregator accumulates fetch outcomes from concurrent workers. Counters
// are atomic so Record can be called from any goroutine in any order.
type Aggregator struct {
	totalProcessed atomic.Int64
	successCount   atomic.Int64
	failedCount    atomic.Int64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record counts one completed fetch. Every outcome increments the processed
// total and exactly one of the success or failure counters.
func (a *Aggregator) Record(outcome models.FetchOutcome) {
	a.totalProcessed.Add(1)
	if outcome.Success() {
		a.successCount.Add(1)
	} else {
		a.failedCount.Add(1)
	}
}

// Finalize produces the summary for a finished (or interrupted) run.
// Callers must ensure all workers have completed before calling it.
func (a *Aggregator) Finalize(runID string, totalResolved int64, elapsed time.Duration) models.RunSummary {
	return models.RunSummary{
		RunID:          runID,
		TotalResolved:  totalResolved,
		TotalProcessed: a.totalProcessed.Load(),
		SuccessCount:   a.successCount.Load(),
		FailedCount:    a.failedCount.Load(),
		Elapsed:        elapsed,
	}
}
