package watch

import (
	"sync"
	"time"

	"cache-warmer/pkg/models"
)

// SiteState contains the last run information for a site
type SiteState struct {
	LastRunTime    time.Time
	LastRunSuccess bool
	Status         models.RunStatus
	URLsProcessed  int64
	ErrorMessage   string
}

// Tracker keeps per-site run history for the scheduler. State lives in
// memory only, so a restart begins a fresh schedule and every site is
// immediately due.
type Tracker struct {
	mu    sync.RWMutex
	sites map[string]SiteState
}

// NewTracker creates an empty run tracker
func NewTracker() *Tracker {
	return &Tracker{
		sites: make(map[string]SiteState),
	}
}

// GetSiteState returns the state for a specific site
func (tr *Tracker) GetSiteState(siteKey string) (SiteState, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	state, ok := tr.sites[siteKey]
	return state, ok
}

// UpdateSiteState records the outcome of a completed run
func (tr *Tracker) UpdateSiteState(siteKey string, success bool, urlsProcessed int64, errorMsg string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	status := models.RunStatusCompleted
	if !success {
		status = models.RunStatusFailed
	}

	tr.sites[siteKey] = SiteState{
		LastRunTime:    time.Now(),
		LastRunSuccess: success,
		Status:         status,
		URLsProcessed:  urlsProcessed,
		ErrorMessage:   errorMsg,
	}
}

// ShouldRun checks if a site is due based on the interval
func (tr *Tracker) ShouldRun(siteKey string, interval time.Duration) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	state, ok := tr.sites[siteKey]
	if !ok {
		// Never run before, due now
		return true
	}

	return time.Since(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the site should next run
func (tr *Tracker) GetNextRunTime(siteKey string, interval time.Duration) time.Time {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	state, ok := tr.sites[siteKey]
	if !ok {
		return time.Now()
	}

	return state.LastRunTime.Add(interval)
}

// GetAllSiteStates returns a copy of all site states
func (tr *Tracker) GetAllSiteStates() map[string]SiteState {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	result := make(map[string]SiteState, len(tr.sites))
	for k, v := range tr.sites {
		result[k] = v
	}
	return result
}
