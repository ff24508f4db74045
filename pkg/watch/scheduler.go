package watch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cache-warmer/pkg/config"
	"cache-warmer/pkg/models"
	"cache-warmer/pkg/orchestrate"
)

// Scheduler re-warms sites on a fixed interval
type Scheduler struct {
	appCfg   *config.AppConfig
	siteKeys []string
	interval time.Duration
	log      *logrus.Entry
	tracker  *Tracker

	// Sites with a warm-up currently running, so a slow run is never
	// relaunched by the next tick.
	inFlight   map[string]bool
	inFlightMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new watch scheduler
func NewScheduler(parent context.Context, appCfg *config.AppConfig, siteKeys []string, interval time.Duration, log *logrus.Entry) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	return &Scheduler{
		appCfg:   appCfg,
		siteKeys: siteKeys,
		interval: interval,
		log:      log.WithField("component", "scheduler"),
		tracker:  NewTracker(),
		inFlight: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run starts the watch scheduler and blocks until stopped
func (s *Scheduler) Run() error {
	s.log.Infof("Starting watch mode for %d site(s) with interval %s", len(s.siteKeys), FormatInterval(s.interval))
	s.logSchedule()

	// All sites are due on a fresh start
	s.runDueSites()

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.runDueSites()
		}
	}
}

// Stop stops the watch scheduler
func (s *Scheduler) Stop() {
	s.log.Info("Stopping watch scheduler...")
	s.cancel()
}

// runDueSites warms all sites that are due
func (s *Scheduler) runDueSites() {
	dueSites := s.claimDueSites()
	if len(dueSites) == 0 {
		s.logNextRun()
		return
	}

	s.log.Infof("Warming %d due site(s): %v", len(dueSites), dueSites)

	orch := orchestrate.NewOrchestrator(s.ctx, s.appCfg, dueSites, s.log)

	// Run in a goroutine so ticks and shutdown stay responsive
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		results := orch.Run()

		for _, result := range results {
			errorMsg := ""
			if result.Error != nil {
				errorMsg = result.Error.Error()
			}
			s.tracker.UpdateSiteState(result.SiteKey, result.Success, result.Summary.TotalProcessed, errorMsg)
			s.release(result.SiteKey)
		}

		s.logNextRun()
	}()
}

// claimDueSites returns the due sites and marks them in-flight
func (s *Scheduler) claimDueSites() []string {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	var due []string
	for _, siteKey := range s.siteKeys {
		if s.inFlight[siteKey] {
			continue
		}
		if s.tracker.ShouldRun(siteKey, s.interval) {
			s.inFlight[siteKey] = true
			due = append(due, siteKey)
		}
	}
	return due
}

func (s *Scheduler) release(siteKey string) {
	s.inFlightMu.Lock()
	delete(s.inFlight, siteKey)
	s.inFlightMu.Unlock()
}

func (s *Scheduler) isInFlight(siteKey string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return s.inFlight[siteKey]
}

// calculateTickInterval returns how often to check for due sites
func (s *Scheduler) calculateTickInterval() time.Duration {
	// Check every 1/10th of the interval, clamped to [1m, 10m]
	checkInterval := s.interval / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

// logSchedule logs the current schedule
func (s *Scheduler) logSchedule() {
	s.log.Info("Watch schedule:")
	for _, siteKey := range s.siteKeys {
		state, exists := s.tracker.GetSiteState(siteKey)
		if exists {
			nextRun := s.tracker.GetNextRunTime(siteKey, s.interval)
			s.log.Infof("  %s: last run %v (%s, %d URLs), next run %v",
				siteKey,
				state.LastRunTime.Format(time.RFC3339),
				state.Status,
				state.URLsProcessed,
				nextRun.Format(time.RFC3339))
		} else {
			s.log.Infof("  %s: never run, will run immediately", siteKey)
		}
	}
}

// logNextRun logs when the next warm-up will occur
func (s *Scheduler) logNextRun() {
	var nextRuns []struct {
		site string
		time time.Time
	}

	for _, siteKey := range s.siteKeys {
		nextRun := s.tracker.GetNextRunTime(siteKey, s.interval)
		nextRuns = append(nextRuns, struct {
			site string
			time time.Time
		}{siteKey, nextRun})
	}

	sort.Slice(nextRuns, func(i, j int) bool {
		return nextRuns[i].time.Before(nextRuns[j].time)
	})

	if len(nextRuns) > 0 {
		next := nextRuns[0]
		until := time.Until(next.time)
		if until < 0 {
			until = 0
		}
		s.log.Infof("Next warm-up: %s in %v (at %s)", next.site, until.Round(time.Second), next.time.Format("15:04:05"))
	}
}

// GetStatus returns the current status of all watched sites. Sites with a
// warm-up in flight report as running; sites that never ran as pending.
func (s *Scheduler) GetStatus() map[string]SiteStatus {
	status := make(map[string]SiteStatus)

	for _, siteKey := range s.siteKeys {
		state, exists := s.tracker.GetSiteState(siteKey)
		nextRun := s.tracker.GetNextRunTime(siteKey, s.interval)

		runStatus := state.Status
		switch {
		case s.isInFlight(siteKey):
			runStatus = models.RunStatusRunning
		case !exists:
			runStatus = models.RunStatusPending
		}

		status[siteKey] = SiteStatus{
			SiteKey:        siteKey,
			Status:         runStatus,
			LastRunTime:    state.LastRunTime,
			LastRunSuccess: state.LastRunSuccess,
			URLsProcessed:  state.URLsProcessed,
			ErrorMessage:   state.ErrorMessage,
			NextRunTime:    nextRun,
			NeverRun:       !exists,
		}
	}

	return status
}

// SiteStatus contains the status of a watched site
type SiteStatus struct {
	SiteKey        string
	Status         models.RunStatus
	LastRunTime    time.Time
	LastRunSuccess bool
	URLsProcessed  int64
	ErrorMessage   string
	NextRunTime    time.Time
	NeverRun       bool
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration string with support for a day suffix
// ("7d", "1d12h").
func ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	idx := strings.IndexByte(s, 'd')
	if idx > 0 {
		days, convErr := strconv.Atoi(s[:idx])
		if convErr == nil && days >= 0 {
			d = time.Duration(days) * 24 * time.Hour
			rest := s[idx+1:]
			if rest == "" {
				return d, nil
			}
			if extra, restErr := time.ParseDuration(rest); restErr == nil {
				return d + extra, nil
			}
		}
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
}
