package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"cache-warmer/pkg/config"
	wlog "cache-warmer/pkg/log"
	"cache-warmer/pkg/orchestrate"
	"cache-warmer/pkg/watch"
)

const version = "0.9.2"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "warm":
		runWarm(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-sites":
		runListSites(os.Args[2:])
	case "version":
		fmt.Printf("cache-warmer %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `cache-warmer - Sitemap-driven cache warmer

Usage:
  cache-warmer <command> [options]

Commands:
  warm        Warm every page URL a site's sitemap lists
  watch       Re-warm sites on a schedule
  validate    Validate configuration file
  list-sites  List available site keys
  version     Show version info

Run 'cache-warmer <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// splitSiteKeys parses a comma-separated site key list
func splitSiteKeys(csv string) []string {
	var keys []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			keys = append(keys, s)
		}
	}
	return keys
}

// runWarm handles the warm subcommand
func runWarm(args []string) {
	fs := flag.NewFlagSet("warm", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key from config (single site)")
	sites := fs.String("sites", "", "Comma-separated site keys")
	allSites := fs.Bool("all-sites", false, "Warm all enabled sites")
	adHocURL := fs.String("url", "", "Ad-hoc sitemap or site URL (no config file needed)")
	rps := fs.Float64("rps", 0, "Requests per second for -url mode (0 = default)")
	maxConcurrent := fs.Int("max-concurrent", 0, "Max in-flight requests for -url mode (0 = default)")
	userAgent := fs.String("user-agent", "", "User-Agent for -url mode (empty = default)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	logFile := fs.String("log-file", "", "Also write the run log to this file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cache-warmer warm [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer warm -site docs_site\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer warm -sites docs_site,blog\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer warm --all-sites\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer warm -url https://example.com/sitemap.xml -rps 2\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *adHocURL != "" {
		if *siteKey != "" || *sites != "" || *allSites {
			fmt.Fprintln(os.Stderr, "Error: -url cannot be combined with -site, -sites, or --all-sites")
			fs.Usage()
			os.Exit(1)
		}
		executeAdHocWarm(*adHocURL, *rps, *maxConcurrent, *userAgent, *logLevel, *logFile)
		return
	}

	// Determine which sites to warm
	var siteKeys []string

	if *allSites {
		siteKeys = nil // Signal to use all enabled sites
	} else if *sites != "" {
		siteKeys = splitSiteKeys(*sites)
	} else if *siteKey != "" {
		siteKeys = []string{*siteKey}
	} else {
		fmt.Fprintln(os.Stderr, "Error: one of -site, -sites, --all-sites, or -url is required")
		fs.Usage()
		os.Exit(1)
	}

	executeWarm(*configFile, siteKeys, *allSites, *logLevel, *logFile)
}

// runWatch handles the watch subcommand
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key from config (single site)")
	sites := fs.String("sites", "", "Comma-separated site keys")
	allSites := fs.Bool("all-sites", false, "Watch all enabled sites")
	interval := fs.String("interval", "24h", "Re-warm interval (e.g., 30m, 1h, 24h, 7d)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	logFile := fs.String("log-file", "", "Also write the run log to this file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cache-warmer watch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer watch -site docs_site --interval 24h\n")
		fmt.Fprintf(os.Stderr, "  cache-warmer watch --all-sites --interval 1d12h\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// Determine which sites to watch
	var siteKeys []string

	if *allSites {
		siteKeys = nil
	} else if *sites != "" {
		siteKeys = splitSiteKeys(*sites)
	} else if *siteKey != "" {
		siteKeys = []string{*siteKey}
	} else {
		fmt.Fprintln(os.Stderr, "Error: one of -site, -sites, or --all-sites is required")
		fs.Usage()
		os.Exit(1)
	}

	executeWatch(*configFile, siteKeys, *allSites, *interval, *logLevel, *logFile)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cache-warmer validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, *siteKey, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, siteKey string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Validate app config
	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	if siteKey != "" {
		// Validate specific site
		siteCfg, ok := appCfg.Sites[siteKey]
		if !ok {
			fmt.Fprintf(stderr, "Error: site '%s' not found in config\n", siteKey)
			return 1
		}
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", siteKey, err)
			return 1
		}
		for _, w := range siteWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", siteKey, w)
		}
		fmt.Fprintf(stdout, "OK: Site '%s' configuration is valid\n", siteKey)
	} else {
		// Validate all sites
		hasError := false
		keys := orchestrate.GetAllSiteKeys(appCfg)

		for _, key := range keys {
			siteCfg := appCfg.Sites[key]
			siteWarnings, err := siteCfg.Validate()
			if err != nil {
				fmt.Fprintf(stderr, "ERROR: [%s] %v\n", key, err)
				hasError = true
				continue
			}
			for _, w := range siteWarnings {
				fmt.Fprintf(stdout, "WARN: [%s] %s\n", key, w)
			}
			fmt.Fprintf(stdout, "OK: [%s]\n", key)
		}
		if hasError {
			return 1
		}
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListSites handles the list-sites subcommand
func runListSites(args []string) {
	fs := flag.NewFlagSet("list-sites", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cache-warmer list-sites [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doListSites(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doListSites lists sites and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListSites(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	keys := orchestrate.GetAllSiteKeys(appCfg)

	fmt.Fprintf(stdout, "Sites in %s:\n\n", configPath)
	for _, key := range keys {
		site := appCfg.Sites[key]
		fmt.Fprintf(stdout, "  %s\n", key)
		fmt.Fprintf(stdout, "    Sitemap: %s\n", site.SitemapURL)
		if site.UserAgent != "" {
			fmt.Fprintf(stdout, "    User-Agent: %s\n", site.UserAgent)
		}
		if site.RequestsPerSecond > 0 {
			fmt.Fprintf(stdout, "    Rate: %.1f req/s\n", site.RequestsPerSecond)
		}
		if site.MaxConcurrent > 0 {
			fmt.Fprintf(stdout, "    Max Concurrent: %d\n", site.MaxConcurrent)
		}
		if site.Disabled {
			fmt.Fprintln(stdout, "    Disabled: yes")
		}
		fmt.Fprintln(stdout)
	}
	return 0
}

// setupLogger creates the run logger, optionally teeing output to a file.
// The returned closer is nil when no log file was requested.
func setupLogger(logLevelStr, logFile string) (*logrus.Logger, func() error) {
	log := wlog.New(logLevelStr)

	if logFile == "" {
		return log, nil
	}
	closeLog, err := wlog.AddFileOutput(log, logFile)
	if err != nil {
		log.Fatalf("Failed to open log file '%s': %v", logFile, err)
	}
	log.Infof("Also writing log output to %s", logFile)
	return log, closeLog
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	log.Infof("Loading configuration from %s", configFile)
	appCfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	appWarnings, _ := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}

	return appCfg
}

// validateSiteConfigs validates the configuration for each site key and logs warnings.
func validateSiteConfigs(appCfg *config.AppConfig, siteKeys []string, log *logrus.Logger) {
	for _, key := range siteKeys {
		siteCfg := appCfg.Sites[key]
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			log.Fatalf("Site '%s' configuration error: %v", key, err)
		}
		for _, w := range siteWarnings {
			log.Warnf("[%s] %s", key, w)
		}
	}
}

// activeSiteKeys returns all site keys that are not disabled
func activeSiteKeys(appCfg *config.AppConfig) []string {
	var keys []string
	for _, key := range orchestrate.GetAllSiteKeys(appCfg) {
		if appCfg.Sites[key].Disabled {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// executeWarm runs a one-shot warm-up for config-selected sites
func executeWarm(configFile string, siteKeys []string, allSites bool, logLevelStr, logFile string) {
	log, closeLog := setupLogger(logLevelStr, logFile)
	appCfg := loadAndValidateConfig(configFile, log)

	if allSites {
		siteKeys = activeSiteKeys(appCfg)
		log.Infof("All sites mode: found %d enabled sites", len(siteKeys))
		if len(siteKeys) == 0 {
			log.Fatal("No enabled sites in configuration")
		}
	}

	if err := orchestrate.ValidateSiteKeys(appCfg, siteKeys); err != nil {
		log.Fatalf("Invalid site keys: %v", err)
	}

	validateSiteConfigs(appCfg, siteKeys, log)

	code := runWarmup(appCfg, siteKeys, log)
	if closeLog != nil {
		closeLog()
	}
	os.Exit(code)
}

// executeAdHocWarm warms a single URL given on the command line, without a
// config file. Global defaults apply unless overridden by flags.
func executeAdHocWarm(rawURL string, rps float64, maxConcurrent int, userAgent, logLevelStr, logFile string) {
	log, closeLog := setupLogger(logLevelStr, logFile)

	appCfg := &config.AppConfig{
		Sites: map[string]config.SiteConfig{
			"adhoc": {
				SitemapURL:        rawURL,
				RequestsPerSecond: rps,
				MaxConcurrent:     maxConcurrent,
				UserAgent:         userAgent,
			},
		},
	}
	// Defaults for everything the flags leave unset; expected, so not warned
	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		log.Debug(w)
	}

	validateSiteConfigs(appCfg, []string{"adhoc"}, log)

	code := runWarmup(appCfg, []string{"adhoc"}, log)
	if closeLog != nil {
		closeLog()
	}
	os.Exit(code)
}

// runWarmup runs the orchestrator with signal handling and the optional
// global timeout, and returns the process exit code.
func runWarmup(appCfg *config.AppConfig, siteKeys []string, log *logrus.Logger) int {
	var warmCtx context.Context
	var cancelWarm context.CancelFunc

	if appCfg.GlobalWarmTimeout > 0 {
		log.Infof("Setting global warm-up timeout: %v", appCfg.GlobalWarmTimeout)
		warmCtx, cancelWarm = context.WithTimeout(context.Background(), appCfg.GlobalWarmTimeout)
	} else {
		warmCtx, cancelWarm = context.WithCancel(context.Background())
	}
	defer cancelWarm()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancelWarm()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	orch := orchestrate.NewOrchestrator(warmCtx, appCfg, siteKeys, logrus.NewEntry(log))
	results := orch.Run()

	if errors.Is(warmCtx.Err(), context.DeadlineExceeded) {
		log.Error("Warm-up timed out (global timeout).")
	} else if errors.Is(warmCtx.Err(), context.Canceled) {
		log.Warn("Warm-up cancelled gracefully.")
	}

	return warmExitCode(warmCtx.Err(), results)
}

// warmExitCode maps run results to the process exit code: 0 for completed
// runs (partial per-URL failures included) and graceful cancellation, 1 for
// any fatal condition.
func warmExitCode(ctxErr error, results []orchestrate.SiteResult) int {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return 1
	}
	for _, r := range results {
		if r.Error != nil && !errors.Is(r.Error, context.Canceled) {
			return 1
		}
	}
	return 0
}

// executeWatch runs the watch scheduler
func executeWatch(configFile string, siteKeys []string, allSites bool, intervalStr, logLevelStr, logFile string) {
	log, closeLog := setupLogger(logLevelStr, logFile)

	interval, err := watch.ParseInterval(intervalStr)
	if err != nil {
		log.Fatalf("Invalid interval: %v", err)
	}
	log.Infof("Watch interval: %s", watch.FormatInterval(interval))

	appCfg := loadAndValidateConfig(configFile, log)

	if allSites {
		siteKeys = activeSiteKeys(appCfg)
		log.Infof("All sites mode: found %d enabled sites", len(siteKeys))
		if len(siteKeys) == 0 {
			log.Fatal("No enabled sites in configuration")
		}
	}

	if err := orchestrate.ValidateSiteKeys(appCfg, siteKeys); err != nil {
		log.Fatalf("Invalid site keys: %v", err)
	}

	validateSiteConfigs(appCfg, siteKeys, log)

	scheduler := watch.NewScheduler(context.Background(), appCfg, siteKeys, interval, logrus.NewEntry(log))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal %v, stopping watch...", sig)
		scheduler.Stop()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	if err := scheduler.Run(); err != nil {
		log.Fatalf("Watch scheduler error: %v", err)
	}

	log.Info("Watch mode stopped")
	if closeLog != nil {
		closeLog()
	}
}
