package config

import "time"

// SiteConfig holds configuration specific to a single site warm run
type SiteConfig struct {
	SitemapURL        string        `yaml:"sitemap_url"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	MaxConcurrent     int           `yaml:"max_concurrent,omitempty"`
	RetryCount        int           `yaml:"retry_count,omitempty"`         // Total download attempts per sitemap document
	RetryDelay        time.Duration `yaml:"retry_delay,omitempty"`         // Fixed delay between attempts (no backoff growth)
	ChildSitemapPause time.Duration `yaml:"child_sitemap_pause,omitempty"` // Pause before each sitemap document after the first
	MaxSitemapDepth   int           `yaml:"max_sitemap_depth,omitempty"`
	Disabled          bool          `yaml:"disabled,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent         string                `yaml:"default_user_agent"`
	DefaultRequestsPerSecond float64               `yaml:"default_requests_per_second"`
	DefaultMaxConcurrent     int                   `yaml:"default_max_concurrent"`
	RetryCount               int                   `yaml:"retry_count,omitempty"`
	RetryDelay               time.Duration         `yaml:"retry_delay,omitempty"`
	ChildSitemapPause        time.Duration         `yaml:"child_sitemap_pause,omitempty"`
	MaxSitemapDepth          int                   `yaml:"max_sitemap_depth,omitempty"`
	MaxConcurrentSites       int                   `yaml:"max_concurrent_sites,omitempty"`
	GlobalWarmTimeout        time.Duration         `yaml:"global_warm_timeout,omitempty"` // Timeout for a whole run across all sites (0 = no timeout)
	HTTPClientSettings       HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Sites                    map[string]SiteConfig `yaml:"sites"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // Explicitly enable/disable HTTP/2 attempt (use pointer for tri-state: nil=default, true=force, false=disable)
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// GetEffectiveUserAgent determines the user agent for a site.
// Site config (if non-empty) overrides global.
func GetEffectiveUserAgent(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.UserAgent != "" {
		return siteCfg.UserAgent
	}
	return appCfg.DefaultUserAgent
}

// GetEffectiveRequestsPerSecond determines the launch rate for a site
func GetEffectiveRequestsPerSecond(siteCfg SiteConfig, appCfg AppConfig) float64 {
	if siteCfg.RequestsPerSecond > 0 {
		return siteCfg.RequestsPerSecond
	}
	return appCfg.DefaultRequestsPerSecond
}

// GetEffectiveMaxConcurrent determines the in-flight request ceiling for a site
func GetEffectiveMaxConcurrent(siteCfg SiteConfig, appCfg AppConfig) int {
	if siteCfg.MaxConcurrent > 0 {
		return siteCfg.MaxConcurrent
	}
	return appCfg.DefaultMaxConcurrent
}

// GetEffectiveRetryCount determines the sitemap download attempt budget for a site
func GetEffectiveRetryCount(siteCfg SiteConfig, appCfg AppConfig) int {
	if siteCfg.RetryCount > 0 {
		return siteCfg.RetryCount
	}
	return appCfg.RetryCount
}

// GetEffectiveRetryDelay determines the fixed delay between download attempts
func GetEffectiveRetryDelay(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.RetryDelay > 0 {
		return siteCfg.RetryDelay
	}
	return appCfg.RetryDelay
}

// GetEffectiveChildSitemapPause determines the pause between sitemap documents
func GetEffectiveChildSitemapPause(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.ChildSitemapPause > 0 {
		return siteCfg.ChildSitemapPause
	}
	return appCfg.ChildSitemapPause
}

// GetEffectiveMaxSitemapDepth determines how deep nested sitemap indexes may go
func GetEffectiveMaxSitemapDepth(siteCfg SiteConfig, appCfg AppConfig) int {
	if siteCfg.MaxSitemapDepth > 0 {
		return siteCfg.MaxSitemapDepth
	}
	return appCfg.MaxSitemapDepth
}
