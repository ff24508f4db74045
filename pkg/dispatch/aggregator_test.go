package dispatch

import (
	"sync"
	"testing"
	"time"
)

func TestAggregator_RecordCounts(t *testing.T) {
	agg := NewAggregator()
	agg.Record(okOutcome("https://example.com/a"))
	agg.Record(failedOutcome("https://example.com/b", 404))
	agg.Record(failedOutcome("https://example.com/c", 503))

	summary := agg.Finalize("run-1", 3, time.Second)
	if summary.TotalProcessed != 3 {
		t.Errorf("Expected 3 processed, got %d", summary.TotalProcessed)
	}
	if summary.SuccessCount != 1 {
		t.Errorf("Expected 1 success, got %d", summary.SuccessCount)
	}
	if summary.FailedCount != 2 {
		t.Errorf("Expected 2 failures, got %d", summary.FailedCount)
	}
}

func TestAggregator_FinalizeFields(t *testing.T) {
	agg := NewAggregator()
	summary := agg.Finalize("run-42", 17, 1500*time.Millisecond)

	if summary.RunID != "run-42" {
		t.Errorf("Expected run ID passthrough, got %q", summary.RunID)
	}
	if summary.TotalResolved != 17 {
		t.Errorf("Expected TotalResolved 17, got %d", summary.TotalResolved)
	}
	if summary.Elapsed != 1500*time.Millisecond {
		t.Errorf("Expected elapsed passthrough, got %v", summary.Elapsed)
	}
}

func TestAggregator_ConcurrentRecords(t *testing.T) {
	agg := NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			agg.Record(okOutcome("https://example.com/ok"))
		}()
		go func() {
			defer wg.Done()
			agg.Record(failedOutcome("https://example.com/bad", 500))
		}()
	}
	wg.Wait()

	summary := agg.Finalize("run-c", 100, time.Second)
	if summary.TotalProcessed != 100 {
		t.Errorf("Expected 100 processed, got %d", summary.TotalProcessed)
	}
	if summary.SuccessCount != 50 || summary.FailedCount != 50 {
		t.Errorf("Expected 50/50 split, got %d/%d", summary.SuccessCount, summary.FailedCount)
	}
}
