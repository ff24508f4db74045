package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"cache-warmer/pkg/models"
	"cache-warmer/pkg/utils"
)

// Warm-up marker header. Origins use it to tell warm-up probes apart
// from real visitors (e.g. to exclude them from analytics).
const (
	WarmHeaderName  = "X-Cache-Warmer"
	WarmHeaderValue = "1"
)

// cacheHeaders are checked in order; the first present one becomes the
// outcome's CacheStatus. Recorded for the log only, never interpreted.
var cacheHeaders = []string{"X-Cache", "CF-Cache-Status", "X-Cache-Status", "X-Vercel-Cache"}

// Fetcher issues single warm-up GETs through the shared http.Client.
// One request per URL, never retried: a cold cache entry that fails now
// will be picked up by the next run.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, userAgent string, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		log:       log.WithField("component", "fetcher"),
	}
}

// Fetch performs exactly one GET against pageURL and reports what
// happened. The response body is drained so the fronting cache stores
// the complete object and the connection can be reused. Duration is
// wall-clock around the whole transaction, body drain included.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) models.FetchOutcome {
	reqLog := f.log.WithField("url", pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		reqLog.Errorf("Request creation failed: %v", err)
		return models.FetchOutcome{
			URL:       pageURL,
			ErrorKind: models.ErrorKindTransport,
			Err:       fmt.Errorf("%w: %w", utils.ErrRequestCreation, err),
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set(WarmHeaderName, WarmHeaderValue)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		duration := time.Since(start)
		reqLog.Debugf("Transport error after %v: %v", duration, err)
		return models.FetchOutcome{
			URL:       pageURL,
			Duration:  duration,
			ErrorKind: models.ErrorKindTransport,
			Err:       fmt.Errorf("%w: %w", utils.ErrTransport, err),
		}
	}

	cacheStatus := cacheStatusFromHeaders(resp.Header)

	// Drain before stopping the clock: the warm-up is only complete
	// once the full object has transited the cache.
	_, drainErr := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	duration := time.Since(start)

	outcome := models.FetchOutcome{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		Duration:    duration,
		CacheStatus: cacheStatus,
	}

	switch {
	case drainErr != nil:
		outcome.ErrorKind = models.ErrorKindTransport
		outcome.Err = fmt.Errorf("%w: reading body: %w", utils.ErrTransport, drainErr)
	case resp.StatusCode != http.StatusOK:
		outcome.ErrorKind = models.ErrorKindNonSuccessStatus
		outcome.Err = fmt.Errorf("%w: status %d %s", utils.ErrNonSuccessStatus, resp.StatusCode, resp.Status)
	}

	reqLog.WithFields(logrus.Fields{
		"status_code":  outcome.StatusCode,
		"duration":     outcome.Duration,
		"cache_status": outcome.CacheStatus,
	}).Debug("Fetched")

	return outcome
}

// cacheStatusFromHeaders returns the first present cache header value
func cacheStatusFromHeaders(h http.Header) string {
	for _, name := range cacheHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}
