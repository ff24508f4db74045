package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"cache-warmer/pkg/utils"
)

// SitemapLocator finds a site's sitemap URLs via its robots.txt
// Sitemap: directives. Used when a configured URL is a bare site root
// rather than an explicit sitemap location.
type SitemapLocator struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewSitemapLocator creates a SitemapLocator
func NewSitemapLocator(client *http.Client, userAgent string, log *logrus.Entry) *SitemapLocator {
	return &SitemapLocator{
		client:    client,
		userAgent: userAgent,
		log:       log.WithField("component", "sitemap_locator"),
	}
}

// Discover fetches robots.txt for siteURL's host and returns its
// Sitemap: directives. When robots.txt is missing, unfetchable, or has
// no directives, it falls back to the conventional /sitemap.xml.
func (sl *SitemapLocator) Discover(ctx context.Context, siteURL string) ([]string, error) {
	target, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing site URL %q: %w", utils.ErrRequestCreation, siteURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: site URL %q must be http or https", utils.ErrRequestCreation, siteURL)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("%w: site URL %q has no host", utils.ErrRequestCreation, siteURL)
	}

	hostLog := sl.log.WithField("host", target.Hostname())
	fallback := []string{(&url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/sitemap.xml"}).String()}

	robotsURL := &url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}
	data := sl.fetchRobots(ctx, robotsURL.String(), hostLog)
	if data == nil || len(data.Sitemaps) == 0 {
		hostLog.Infof("No sitemap directives, falling back to %s", fallback[0])
		return fallback, nil
	}

	hostLog.Infof("Found %d sitemap directive(s) in robots.txt", len(data.Sitemaps))
	return data.Sitemaps, nil
}

// fetchRobots downloads and parses robots.txt.
// Returns nil on any error or non-2xx status.
func (sl *SitemapLocator) fetchRobots(ctx context.Context, robotsURL string, hostLog *logrus.Entry) *robotstxt.RobotsData {
	robotsLog := hostLog.WithField("robots_url", robotsURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		robotsLog.Errorf("Error creating request: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", sl.userAgent)

	resp, err := sl.client.Do(req)
	if err != nil {
		robotsLog.Warnf("Fetching robots.txt failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		robotsLog.Infof("robots.txt returned status %d", resp.StatusCode)
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Errorf("Error reading body: %v", err)
		return nil
	}

	data, err := robotstxt.FromBytes(bodyBytes)
	if err != nil {
		robotsLog.Errorf("Error parsing content: %v", err)
		return nil
	}
	return data
}
