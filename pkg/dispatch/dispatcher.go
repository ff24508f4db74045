package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"cache-warmer/pkg/config"
	"cache-warmer/pkg/models"
)

// progressInterval controls how often the submit loop reports progress.
const progressInterval = 100

// PageFetcher performs one warm-up request and reports the outcome.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) models.FetchOutcome
}

// Dispatcher drives a warm-up run over a resolved URL set: it launches
// fetches asynchronously, capped by a concurrency semaphore and paced by a
// rate limiter, and aggregates every outcome into a RunSummary.
type Dispatcher struct {
	fetcher       PageFetcher
	sem           *semaphore.Weighted
	limiter       *rate.Limiter
	maxConcurrent int
	rps           float64
	log           *logrus.Entry
}

// NewDispatcher creates a Dispatcher using the effective settings for one site.
func NewDispatcher(fetcher PageFetcher, siteCfg config.SiteConfig, appCfg config.AppConfig, log *logrus.Entry) *Dispatcher {
	maxConcurrent := config.GetEffectiveMaxConcurrent(siteCfg, appCfg)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	rps := config.GetEffectiveRequestsPerSecond(siteCfg, appCfg)
	if rps <= 0 {
		rps = 1
	}
	return &Dispatcher{
		fetcher:       fetcher,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		maxConcurrent: maxConcurrent,
		rps:           rps,
		log:           log.WithField("component", "dispatcher"),
	}
}

// Run warms every URL in the set and blocks until all in-flight requests
// have completed. On context cancellation it stops launching new requests,
// waits for the in-flight ones, and returns the partial summary together
// with the context's error.
func (d *Dispatcher) Run(ctx context.Context, urls []string) (models.RunSummary, error) {
	runID := uuid.NewString()
	runLog := d.log.WithField("run_id", runID)
	runLog.WithFields(logrus.Fields{
		"urls":           len(urls),
		"max_concurrent": d.maxConcurrent,
		"rps":            d.rps,
	}).Info("Starting warm-up run")

	agg := NewAggregator()
	start := time.Now()
	var wg sync.WaitGroup
	submitted := 0
	var runErr error

	for _, pageURL := range urls {
		// Blocks until an in-flight slot frees up or the context ends.
		if err := d.sem.Acquire(ctx, 1); err != nil {
			runErr = err
			break
		}

		wg.Add(1)
		submitted++
		go func(u string) {
			defer wg.Done()
			defer d.sem.Release(1)
			outcome := d.fetcher.Fetch(ctx, u)
			agg.Record(outcome)
			d.logOutcome(runLog, outcome)
		}(pageURL)

		if submitted%progressInterval == 0 {
			runLog.Infof("Progress: %d/%d URLs submitted", submitted, len(urls))
		}

		if err := d.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			runErr = err
			break
		}
	}

	wg.Wait()
	summary := agg.Finalize(runID, int64(len(urls)), time.Since(start))

	if runErr != nil {
		runLog.WithFields(logrus.Fields{
			"submitted": submitted,
			"processed": summary.TotalProcessed,
		}).Warnf("Warm-up run interrupted: %v", runErr)
		return summary, runErr
	}

	runLog.WithFields(logrus.Fields{
		"processed": summary.TotalProcessed,
		"succeeded": summary.SuccessCount,
		"failed":    summary.FailedCount,
		"elapsed":   summary.Elapsed,
	}).Info("Warm-up run complete")
	return summary, nil
}

// logOutcome streams one fetch result as it completes.
func (d *Dispatcher) logOutcome(runLog *logrus.Entry, outcome models.FetchOutcome) {
	fields := logrus.Fields{
		"url":         outcome.URL,
		"status_code": outcome.StatusCode,
		"duration":    outcome.Duration,
	}
	if outcome.CacheStatus != "" {
		fields["cache_status"] = outcome.CacheStatus
	}
	if outcome.Success() {
		runLog.WithFields(fields).Info("Warmed")
		return
	}
	fields["error_kind"] = string(outcome.ErrorKind)
	runLog.WithFields(fields).Warnf("Warm-up failed: %v", outcome.Err)
}
