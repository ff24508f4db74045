package config

import (
	"fmt"
	"net/url"
	"time"

	"cache-warmer/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// DefaultUserAgent
	if c.DefaultUserAgent == "" {
		warnings = append(warnings, "default_user_agent is empty, defaulting to 'cache-warmer/1.0'")
		c.DefaultUserAgent = "cache-warmer/1.0"
	}

	// DefaultRequestsPerSecond
	if c.DefaultRequestsPerSecond <= 0 {
		warnings = append(warnings, "default_requests_per_second should be > 0, defaulting to 4")
		c.DefaultRequestsPerSecond = 4
	}

	// DefaultMaxConcurrent
	if c.DefaultMaxConcurrent <= 0 {
		warnings = append(warnings, "default_max_concurrent should be > 0, defaulting to 8")
		c.DefaultMaxConcurrent = 8
	}

	// RetryCount (total attempts per sitemap document)
	if c.RetryCount < 0 {
		warnings = append(warnings, "retry_count cannot be negative, defaulting to 3")
		c.RetryCount = 3
	}
	if c.RetryCount == 0 {
		c.RetryCount = 3
	}

	// RetryDelay (fixed between attempts, no growth)
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}

	// ChildSitemapPause
	if c.ChildSitemapPause < 0 {
		warnings = append(warnings, "child_sitemap_pause cannot be negative, defaulting to 1s")
		c.ChildSitemapPause = 1 * time.Second
	}
	if c.ChildSitemapPause == 0 {
		c.ChildSitemapPause = 1 * time.Second
	}

	// MaxSitemapDepth
	if c.MaxSitemapDepth <= 0 {
		c.MaxSitemapDepth = 8
	}

	// MaxConcurrentSites
	if c.MaxConcurrentSites <= 0 {
		c.MaxConcurrentSites = 1
	}

	// GlobalWarmTimeout
	if c.GlobalWarmTimeout < 0 {
		warnings = append(warnings, "global_warm_timeout cannot be negative, disabling timeout")
		c.GlobalWarmTimeout = 0
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks SiteConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place.
func (c *SiteConfig) Validate() (warnings []string, err error) {
	// Required: SitemapURL
	if c.SitemapURL == "" {
		return nil, fmt.Errorf("%w: site has no sitemap_url", utils.ErrConfigValidation)
	}
	u, parseErr := url.Parse(c.SitemapURL)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: sitemap_url %q is not a valid URL: %v", utils.ErrConfigValidation, c.SitemapURL, parseErr)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: sitemap_url %q must be absolute http or https", utils.ErrConfigValidation, c.SitemapURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: sitemap_url %q has no host", utils.ErrConfigValidation, c.SitemapURL)
	}

	// RequestsPerSecond
	if c.RequestsPerSecond < 0 {
		warnings = append(warnings, "site requests_per_second cannot be negative, using global default")
		c.RequestsPerSecond = 0
	}

	// MaxConcurrent
	if c.MaxConcurrent < 0 {
		warnings = append(warnings, "site max_concurrent cannot be negative, using global default")
		c.MaxConcurrent = 0
	}

	// RetryCount
	if c.RetryCount < 0 {
		warnings = append(warnings, "site retry_count cannot be negative, using global default")
		c.RetryCount = 0
	}

	// MaxSitemapDepth
	if c.MaxSitemapDepth < 0 {
		warnings = append(warnings, "site max_sitemap_depth cannot be negative, using global default")
		c.MaxSitemapDepth = 0
	}

	return warnings, nil
}
