package orchestrate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"cache-warmer/pkg/config"
	"cache-warmer/pkg/dispatch"
	"cache-warmer/pkg/fetch"
	"cache-warmer/pkg/models"
	"cache-warmer/pkg/sitemap"
)

// SiteResult contains the result of warming a single site
type SiteResult struct {
	SiteKey  string
	Success  bool
	Error    error
	Summary  models.RunSummary
	Duration time.Duration
}

// Orchestrator manages warm-up runs across multiple sites
type Orchestrator struct {
	appCfg   *config.AppConfig
	log      *logrus.Entry
	siteKeys []string

	// Shared resources
	httpClient *http.Client
	sitesSem   *semaphore.Weighted

	// Results
	results   []SiteResult
	resultsMu sync.Mutex

	// Coordination
	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates a new orchestrator for the given site keys. All
// sites share one HTTP client; MaxConcurrentSites caps how many warm up at
// the same time.
func NewOrchestrator(parent context.Context, appCfg *config.AppConfig, siteKeys []string, log *logrus.Entry) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)

	maxSites := appCfg.MaxConcurrentSites
	if maxSites < 1 {
		maxSites = 1
	}

	return &Orchestrator{
		appCfg:     appCfg,
		log:        log.WithField("component", "orchestrator"),
		siteKeys:   siteKeys,
		httpClient: fetch.NewClient(appCfg.HTTPClientSettings, log.WithField("component", "http_client")),
		sitesSem:   semaphore.NewWeighted(int64(maxSites)),
		results:    make([]SiteResult, 0, len(siteKeys)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run warms all sites and waits for completion
func (o *Orchestrator) Run() []SiteResult {
	startTime := time.Now()
	o.log.Infof("Starting warm-up of %d site(s): %v", len(o.siteKeys), o.siteKeys)

	var wg sync.WaitGroup

	for _, siteKey := range o.siteKeys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			if err := o.sitesSem.Acquire(o.ctx, 1); err != nil {
				o.appendResult(SiteResult{SiteKey: key, Error: err})
				return
			}
			defer o.sitesSem.Release(1)

			o.appendResult(o.warmSite(key))
		}(siteKey)
	}

	// Wait for all sites to complete
	wg.Wait()

	totalDuration := time.Since(startTime)
	o.logSummary(totalDuration)

	return o.results
}

func (o *Orchestrator) appendResult(result SiteResult) {
	o.resultsMu.Lock()
	o.results = append(o.results, result)
	o.resultsMu.Unlock()
}

// warmSite runs the full pipeline for one site: locate the sitemap, resolve
// it into a URL set, and dispatch the warm-up requests.
func (o *Orchestrator) warmSite(siteKey string) SiteResult {
	startTime := time.Now()
	result := SiteResult{
		SiteKey: siteKey,
	}
	siteLog := o.log.WithField("site", siteKey)

	siteCfg, exists := o.appCfg.Sites[siteKey]
	if !exists {
		result.Error = fmt.Errorf("site '%s' not found in configuration", siteKey)
		siteLog.Errorf("Site '%s' not found in configuration", siteKey)
		return result
	}

	warnings, err := siteCfg.Validate()
	for _, warning := range warnings {
		siteLog.Warn(warning)
	}
	if err != nil {
		result.Error = err
		siteLog.Errorf("Invalid configuration for site '%s': %v", siteKey, err)
		return result
	}

	// Site-specific context so one site's teardown never affects another
	siteCtx, siteCancel := context.WithCancel(o.ctx)
	defer siteCancel()

	userAgent := config.GetEffectiveUserAgent(siteCfg, *o.appCfg)

	roots := []string{siteCfg.SitemapURL}
	if isOriginURL(siteCfg.SitemapURL) {
		locator := fetch.NewSitemapLocator(o.httpClient, userAgent, siteLog)
		discovered, err := locator.Discover(siteCtx, siteCfg.SitemapURL)
		if err != nil {
			result.Error = fmt.Errorf("locating sitemap for '%s': %w", siteKey, err)
			result.Duration = time.Since(startTime)
			siteLog.Errorf("Sitemap discovery failed for site '%s': %v", siteKey, err)
			return result
		}
		roots = discovered
	}

	resolver := sitemap.NewResolver(siteCfg, *o.appCfg, o.httpClient, siteLog)
	urlSet, err := resolver.ResolveAll(siteCtx, roots)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime)
		siteLog.Errorf("Sitemap resolution failed for site '%s': %v", siteKey, err)
		return result
	}

	fetcher := fetch.NewFetcher(o.httpClient, userAgent, siteLog)
	dispatcher := dispatch.NewDispatcher(fetcher, siteCfg, *o.appCfg, siteLog)

	siteLog.Infof("Starting warm-up for site '%s' (%d URLs)", siteKey, urlSet.Len())
	summary, err := dispatcher.Run(siteCtx, urlSet.URLs())
	result.Summary = summary
	if err != nil {
		result.Error = err
		siteLog.Errorf("Warm-up interrupted for site '%s': %v", siteKey, err)
	} else {
		result.Success = true
		siteLog.Infof("Warm-up completed for site '%s'", siteKey)
	}

	result.Duration = time.Since(startTime)
	return result
}

// Cancel stops all running warm-ups
func (o *Orchestrator) Cancel() {
	o.log.Info("Cancelling all warm-ups...")
	o.cancel()
}

// isOriginURL reports whether rawURL points at a bare site origin rather
// than a concrete sitemap document.
func isOriginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Path == "" || u.Path == "/") && u.RawQuery == ""
}

// logSummary logs a summary of all warm-up results
func (o *Orchestrator) logSummary(totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Warm-up completed in %v", totalDuration)
	o.log.Info("Site Results:")

	var totalWarmed int64
	var totalProcessed int64
	successCount := 0
	failCount := 0

	for _, r := range o.results {
		status := "SUCCESS"
		if !r.Success {
			status = "FAILED"
			failCount++
		} else {
			successCount++
		}
		totalWarmed += r.Summary.SuccessCount
		totalProcessed += r.Summary.TotalProcessed

		o.log.Infof("  %s: %s - %d/%d URLs warmed in %v",
			r.SiteKey, status, r.Summary.SuccessCount, r.Summary.TotalProcessed, r.Duration)
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d sites (%d success, %d failed), %d/%d URLs warmed",
		len(o.results), successCount, failCount, totalWarmed, totalProcessed)
	o.log.Info("============================================")
}

// ValidateSiteKeys checks that all provided site keys exist in the config
func ValidateSiteKeys(appCfg *config.AppConfig, siteKeys []string) error {
	for _, key := range siteKeys {
		if _, exists := appCfg.Sites[key]; !exists {
			return fmt.Errorf("site '%s' not found. Available sites: %v", key, GetAllSiteKeys(appCfg))
		}
	}
	return nil
}

// GetAllSiteKeys returns all site keys from the config, sorted for stable output
func GetAllSiteKeys(appCfg *config.AppConfig) []string {
	keys := make([]string, 0, len(appCfg.Sites))
	for k := range appCfg.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
