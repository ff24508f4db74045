package orchestrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-warmer/pkg/config"
	"cache-warmer/pkg/utils"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testAppConfig(sites map[string]config.SiteConfig) *config.AppConfig {
	return &config.AppConfig{
		DefaultUserAgent:         "test-warmer/1.0",
		DefaultRequestsPerSecond: 1000,
		DefaultMaxConcurrent:     4,
		RetryCount:               1,
		RetryDelay:               time.Millisecond,
		ChildSitemapPause:        time.Millisecond,
		MaxSitemapDepth:          3,
		MaxConcurrentSites:       2,
		HTTPClientSettings:       config.HTTPClientConfig{Timeout: 10 * time.Second},
		Sites:                    sites,
	}
}

func siteKeysConfig(siteKeys ...string) *config.AppConfig {
	sites := make(map[string]config.SiteConfig, len(siteKeys))
	for _, key := range siteKeys {
		sites[key] = config.SiteConfig{
			SitemapURL: fmt.Sprintf("https://%s.example.com/sitemap.xml", key),
		}
	}
	return testAppConfig(sites)
}

// fakeSite serves a sitemap and the pages it lists.
func fakeSite(t *testing.T, pageCount int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for i := 0; i < pageCount; i++ {
			fmt.Fprintf(w, "<url><loc>%s/pages/%d</loc></url>", server.URL, i)
		}
		io.WriteString(w, `</urlset>`)
	})
	mux.HandleFunc("/pages/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "warm")
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestValidateSiteKeys(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		cfg := siteKeysConfig("docs", "blog")
		err := ValidateSiteKeys(cfg, []string{"docs", "blog"})
		assert.NoError(t, err)
	})

	t.Run("one invalid", func(t *testing.T) {
		cfg := siteKeysConfig("docs", "blog")
		err := ValidateSiteKeys(cfg, []string{"docs", "missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("empty keys no error", func(t *testing.T) {
		cfg := siteKeysConfig("docs")
		err := ValidateSiteKeys(cfg, []string{})
		assert.NoError(t, err)
	})

	t.Run("empty config", func(t *testing.T) {
		cfg := siteKeysConfig()
		err := ValidateSiteKeys(cfg, []string{"anything"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anything")
	})
}

func TestGetAllSiteKeys(t *testing.T) {
	t.Run("multiple sites sorted", func(t *testing.T) {
		cfg := siteKeysConfig("gamma", "alpha", "beta")
		keys := GetAllSiteKeys(cfg)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, keys)
	})

	t.Run("no sites", func(t *testing.T) {
		cfg := siteKeysConfig()
		keys := GetAllSiteKeys(cfg)
		assert.Empty(t, keys)
	})

	t.Run("single site", func(t *testing.T) {
		cfg := siteKeysConfig("only")
		keys := GetAllSiteKeys(cfg)
		assert.Equal(t, []string{"only"}, keys)
	})
}

func TestRun_SingleSite(t *testing.T) {
	server := fakeSite(t, 3)
	cfg := testAppConfig(map[string]config.SiteConfig{
		"docs": {SitemapURL: server.URL + "/sitemap.xml"},
	})

	o := NewOrchestrator(context.Background(), cfg, []string{"docs"}, testLogger())
	results := o.Run()

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "docs", r.SiteKey)
	assert.True(t, r.Success)
	assert.NoError(t, r.Error)
	assert.Equal(t, int64(3), r.Summary.TotalProcessed)
	assert.Equal(t, int64(3), r.Summary.SuccessCount)
	assert.NotEmpty(t, r.Summary.RunID)
	assert.Greater(t, r.Duration, time.Duration(0))
}

func TestRun_SiteNotFound(t *testing.T) {
	cfg := siteKeysConfig("docs")

	o := NewOrchestrator(context.Background(), cfg, []string{"ghost"}, testLogger())
	results := o.Run()

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	require.Error(t, results[0].Error)
	assert.Contains(t, results[0].Error.Error(), "not found")
}

func TestRun_FailedSiteDoesNotAffectOthers(t *testing.T) {
	goodServer := fakeSite(t, 2)
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(badServer.Close)

	cfg := testAppConfig(map[string]config.SiteConfig{
		"good": {SitemapURL: goodServer.URL + "/sitemap.xml"},
		"bad":  {SitemapURL: badServer.URL + "/sitemap.xml"},
	})

	o := NewOrchestrator(context.Background(), cfg, []string{"good", "bad"}, testLogger())
	results := o.Run()

	require.Len(t, results, 2)
	byKey := make(map[string]SiteResult, 2)
	for _, r := range results {
		byKey[r.SiteKey] = r
	}

	assert.True(t, byKey["good"].Success)
	assert.Equal(t, int64(2), byKey["good"].Summary.SuccessCount)

	assert.False(t, byKey["bad"].Success)
	require.Error(t, byKey["bad"].Error)
	assert.ErrorIs(t, byKey["bad"].Error, utils.ErrSitemapDownload)
}

func TestRun_DiscoversSitemapFromOrigin(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	var robotsServed atomic.Bool
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		robotsServed.Store(true)
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/found.xml\n", server.URL)
	})
	mux.HandleFunc("/found.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<urlset><url><loc>%s/page</loc></url></urlset>`, server.URL)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "warm")
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testAppConfig(map[string]config.SiteConfig{
		"docs": {SitemapURL: server.URL},
	})

	o := NewOrchestrator(context.Background(), cfg, []string{"docs"}, testLogger())
	results := o.Run()

	require.Len(t, results, 1)
	assert.True(t, robotsServed.Load(), "origin URL should trigger robots.txt discovery")
	assert.True(t, results[0].Success)
	assert.Equal(t, int64(1), results[0].Summary.SuccessCount)
}

func TestRun_InvalidSiteConfig(t *testing.T) {
	cfg := testAppConfig(map[string]config.SiteConfig{
		"broken": {SitemapURL: "ftp://example.com/sitemap.xml"},
	})

	o := NewOrchestrator(context.Background(), cfg, []string{"broken"}, testLogger())
	results := o.Run()

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, utils.ErrConfigValidation)
}

func TestRun_Cancelled(t *testing.T) {
	server := fakeSite(t, 2)
	cfg := testAppConfig(map[string]config.SiteConfig{
		"docs": {SitemapURL: server.URL + "/sitemap.xml"},
	})

	o := NewOrchestrator(context.Background(), cfg, []string{"docs"}, testLogger())
	o.Cancel()
	results := o.Run()

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
}

func TestIsOriginURL(t *testing.T) {
	assert.True(t, isOriginURL("https://example.com"))
	assert.True(t, isOriginURL("https://example.com/"))
	assert.False(t, isOriginURL("https://example.com/sitemap.xml"))
	assert.False(t, isOriginURL("https://example.com/?sitemap=1"))
	assert.False(t, isOriginURL("://bad"))
}
