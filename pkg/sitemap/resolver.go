package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"cache-warmer/pkg/config"
	"cache-warmer/pkg/models"
	"cache-warmer/pkg/parse"
	"cache-warmer/pkg/queue"
	"cache-warmer/pkg/utils"
)

// Resolver expands a root sitemap URL into the full set of page URLs it
// references, walking sitemap index documents breadth-first. Documents are
// processed one at a time with a pause between them so the origin never sees
// a burst of sitemap downloads before the warm-up itself starts.
type Resolver struct {
	client     *http.Client
	userAgent  string
	retryCount int
	retryDelay time.Duration
	childPause time.Duration
	maxDepth   int
	log        *logrus.Entry
}

// NewResolver creates a Resolver using the effective settings for one site.
func NewResolver(siteCfg config.SiteConfig, appCfg config.AppConfig, client *http.Client, log *logrus.Entry) *Resolver {
	retryCount := config.GetEffectiveRetryCount(siteCfg, appCfg)
	if retryCount < 1 {
		retryCount = 1 // every document gets at least one attempt
	}
	return &Resolver{
		client:     client,
		userAgent:  config.GetEffectiveUserAgent(siteCfg, appCfg),
		retryCount: retryCount,
		retryDelay: config.GetEffectiveRetryDelay(siteCfg, appCfg),
		childPause: config.GetEffectiveChildSitemapPause(siteCfg, appCfg),
		maxDepth:   config.GetEffectiveMaxSitemapDepth(siteCfg, appCfg),
		log:        log.WithField("component", "resolver"),
	}
}

// Resolve expands a single root sitemap URL.
func (r *Resolver) Resolve(ctx context.Context, rootURL string) (*models.URLSet, error) {
	return r.ResolveAll(ctx, []string{rootURL})
}

// ResolveAll expands every root sitemap URL into one deduplicated URL set.
// Root downloads that fail after all retries are fatal only if no root
// succeeds; failed child sitemaps are logged and skipped.
func (r *Resolver) ResolveAll(ctx context.Context, rootURLs []string) (*models.URLSet, error) {
	if len(rootURLs) == 0 {
		return nil, fmt.Errorf("%w: no root sitemap URLs given", utils.ErrSitemapDownload)
	}

	q := queue.NewRefQueue(r.log)
	defer q.Close()
	for _, root := range rootURLs {
		q.Push(models.WorkItem{URL: root, Depth: 0})
	}

	urlSet := models.NewURLSet()
	rootSucceeded := false
	var lastRootErr error
	docsProcessed := 0
	childFailures := 0
	first := true

	for {
		item, ok := q.Pop()
		if !ok {
			break
		}

		// Pause before every document after the first, root or child.
		if !first {
			if err := sleepWithContext(ctx, r.childPause); err != nil {
				return nil, err
			}
		}
		first = false

		docLog := r.log.WithField("sitemap_url", item.URL)
		docLog.Info("Processing sitemap")

		doc, err := r.fetchDocument(ctx, item.URL, docLog)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if item.Depth == 0 {
				lastRootErr = err
				docLog.Errorf("Root sitemap failed after %d attempt(s): %v", r.retryCount, err)
			} else {
				childFailures++
				docLog.Warnf("Skipping child sitemap: %v", fmt.Errorf("%w: %w", utils.ErrChildSitemap, err))
			}
			continue
		}
		if item.Depth == 0 {
			rootSucceeded = true
		}
		docsProcessed++

		switch doc.Kind {
		case parse.DocSitemapIndex:
			docLog.Infof("Parsed as Sitemap Index, found %d references.", len(doc.Locs))
			queued := 0
			base, baseErr := url.Parse(item.URL)
			for _, loc := range doc.Locs {
				ref, parseErr := url.Parse(loc)
				if parseErr != nil {
					docLog.WithField("loc", loc).Warnf("Skipping unparsable sitemap reference: %v", parseErr)
					continue
				}
				if baseErr == nil {
					ref = base.ResolveReference(ref)
				}
				childURL := ref.String()
				if !utils.IsHTTPURL(childURL) {
					docLog.WithField("loc", loc).Debug("Skipping non-HTTP sitemap reference")
					continue
				}
				if item.Depth+1 > r.maxDepth {
					docLog.WithFields(logrus.Fields{
						"child_sitemap": childURL,
						"max_depth":     r.maxDepth,
					}).Warnf("Skipping nested sitemap: %v", utils.ErrMaxDepthExceeded)
					continue
				}
				if q.Push(models.WorkItem{URL: childURL, Depth: item.Depth + 1}) {
					queued++
				}
			}
			docLog.Infof("Queued %d nested sitemaps.", queued)

		case parse.DocURLSet:
			docLog.Infof("Parsed as URL Set, found %d URLs.", len(doc.Locs))
			added := 0
			for _, loc := range doc.Locs {
				if !utils.IsHTTPURL(loc) {
					docLog.WithField("loc", loc).Debug("Skipping non-HTTP page URL")
					continue
				}
				if urlSet.Add(loc) {
					added++
				}
			}
			docLog.Infof("Finished URL Set. Added %d new URLs.", added)
		}
	}

	if !rootSucceeded {
		if lastRootErr != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrSitemapDownload, lastRootErr)
		}
		return nil, fmt.Errorf("%w: no root sitemap could be downloaded", utils.ErrSitemapDownload)
	}
	if urlSet.Len() == 0 {
		return nil, fmt.Errorf("%w: %d sitemap document(s) yielded no page URLs", utils.ErrEmptyURLSet, docsProcessed)
	}

	r.log.WithFields(logrus.Fields{
		"documents":      docsProcessed,
		"child_failures": childFailures,
		"urls":           urlSet.Len(),
	}).Info("Sitemap resolution complete")
	return urlSet, nil
}

// fetchDocument downloads and parses one sitemap document, retrying failed
// attempts with a fixed delay. A parse failure counts as a failed attempt the
// same as a transport error or non-2xx status.
func (r *Resolver) fetchDocument(ctx context.Context, docURL string, docLog *logrus.Entry) (*parse.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retryCount; attempt++ {
		if attempt > 1 {
			docLog.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": r.retryCount,
				"delay":        r.retryDelay,
			}).Warn("Retrying sitemap download")
			if err := sleepWithContext(ctx, r.retryDelay); err != nil {
				return nil, fmt.Errorf("cancelled during retry delay after: %w", lastErr)
			}
		}

		doc, err := r.attemptFetch(ctx, docURL)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, utils.ErrRequestCreation) {
			return nil, err // malformed URL, retrying cannot help
		}
		lastErr = err
		docLog.WithField("attempt", attempt).Warnf("Sitemap download attempt failed: %v", err)
	}
	return nil, lastErr
}

// attemptFetch performs a single download-and-parse attempt.
func (r *Resolver) attemptFetch(ctx context.Context, docURL string) (*parse.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body) // Drain body so the connection can be reused
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrNonSuccessStatus, resp.StatusCode, resp.Status)
	}

	reader, err := parse.MaybeGunzip(resp.Body)
	if err != nil {
		return nil, err
	}
	doc, err := parse.Parse(reader)
	if err != nil {
		return nil, err
	}
	if doc.Kind == parse.DocUnknown {
		return nil, fmt.Errorf("%w: unrecognized sitemap document", utils.ErrParsing)
	}
	return doc, nil
}

// sleepWithContext waits for d or until ctx is done, whichever comes first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
