// Command instalink links business records in an XLSX workbook to their
// Instagram profiles.
//
// Usage:
//
//	instalink -file vendors.xlsx
//	instalink -file vendors.xlsx -dry-run -limit 10
//	instalink -file vendors.xlsx -score-only   # skip Claude verification
//	instalink -file vendors.xlsx -sessionid abc123 -csrftoken def456
//
// Credentials are read from the environment (or a .env file):
//
//	ANTHROPIC_API_KEY      match verification (optional, score-only without it)
//	GOOGLE_API_KEY         Google Custom Search (optional, scrape fallback without it)
//	GOOGLE_CSE_ID          Custom Search engine ID
//	INSTAGRAM_SESSIONID    Instagram session cookie (optional)
//	INSTAGRAM_CSRFTOKEN    Instagram CSRF cookie (optional)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vendorscout/instalink/auth"
	"github.com/vendorscout/instalink/fallback"
	"github.com/vendorscout/instalink/httpcache"
	"github.com/vendorscout/instalink/instagram"
	"github.com/vendorscout/instalink/pipeline"
	"github.com/vendorscout/instalink/search"
	"github.com/vendorscout/instalink/sheet"
	"github.com/vendorscout/instalink/verify"
)

func main() {
	file := flag.String("file", "", "path to the vendors XLSX workbook (required)")
	dryRun := flag.Bool("dry-run", false, "resolve vendors without writing results back")
	limit := flag.Int("limit", 0, "process at most N vendors (0 = all)")
	minDelay := flag.Duration("min-delay", 3*time.Second, "minimum pause between search queries")
	maxDelay := flag.Duration("max-delay", 7*time.Second, "maximum pause between search queries")
	scoreOnly := flag.Bool("score-only", false, "skip Claude verification, decide on composite scores")
	model := flag.String("model", "", "verification model (default: "+verify.DefaultModel+")")
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	noBrowser := flag.Bool("no-browser", false, "disable reading Instagram cookies from browser stores")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching")
	cacheTTL := flag.Duration("cache-ttl", 30*24*time.Hour, "cache time-to-live")
	sessionID := flag.String("sessionid", "", "Instagram sessionid cookie (overrides environment and browser)")
	csrfToken := flag.String("csrftoken", "", "Instagram csrftoken cookie")
	flag.Parse()

	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: instalink [options] -file <vendors.xlsx>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// A .env next to the workbook is a convenience, not a requirement.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, runConfig{
		file:      *file,
		dryRun:    *dryRun,
		limit:     *limit,
		minDelay:  *minDelay,
		maxDelay:  *maxDelay,
		scoreOnly: *scoreOnly,
		model:     *model,
		noBrowser: *noBrowser,
		noCache:   *noCache,
		cacheTTL:  *cacheTTL,
		sessionID: *sessionID,
		csrfToken: *csrfToken,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted, progress saved")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runConfig struct {
	file      string
	model     string
	sessionID string
	csrfToken string
	minDelay  time.Duration
	maxDelay  time.Duration
	cacheTTL  time.Duration
	limit     int
	dryRun    bool
	scoreOnly bool
	noBrowser bool
	noCache   bool
}

func run(ctx context.Context, logger *slog.Logger, cfg runConfig) error {
	cache := buildCache(logger, cfg)
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()

	store, err := sheet.Open(cfg.file, sheet.WithLogger(logger))
	if err != nil {
		return err
	}

	searcher := search.NewSearcher(buildBackends(logger, cache),
		search.WithLogger(logger),
		search.WithDelays(cfg.minDelay, cfg.maxDelay))

	extractorOpts := []instagram.Option{
		instagram.WithHTTPCache(cache),
		instagram.WithLogger(logger),
	}
	if cookies := loadCookies(ctx, logger, cfg); len(cookies) > 0 {
		extractorOpts = append(extractorOpts, instagram.WithCookies(cookies))
	}
	extractor := instagram.NewExtractor(extractorOpts...)

	resolver := fallback.NewResolver(
		fallback.WithCache(cache),
		fallback.WithLogger(logger))

	orchestratorOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithLimit(cfg.limit),
		pipeline.WithDryRun(cfg.dryRun),
	}
	if v := buildVerifier(logger, cfg); v != nil {
		orchestratorOpts = append(orchestratorOpts, pipeline.WithVerifier(v))
	}

	o := pipeline.New(store, searcher, extractor, resolver, orchestratorOpts...)

	stats, runErr := o.Run(ctx)
	fmt.Printf("\nprocessed: %d\n  found:        %d\n  needs review: %d\n  not found:    %d\n  errors:       %d\n",
		stats.Processed, stats.Found, stats.NeedsReview, stats.NotFound, stats.Errors)
	return runErr
}

func buildCache(logger *slog.Logger, cfg runConfig) *httpcache.Cache {
	if cfg.noCache {
		return httpcache.NewNull()
	}
	cache, err := httpcache.New(cfg.cacheTTL)
	if err != nil {
		logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		return httpcache.NewNull()
	}
	logger.Debug("HTTP cache initialized", "ttl", cfg.cacheTTL.String())
	return cache
}

func buildBackends(logger *slog.Logger, cache *httpcache.Cache) []search.Backend {
	var backends []search.Backend
	cse, err := search.NewCSE(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GOOGLE_CSE_ID"),
		search.WithCSECache(cache),
		search.WithCSELogger(logger))
	if err != nil {
		logger.Info("custom search unavailable, using HTML scrape only", "error", err)
	} else {
		backends = append(backends, cse)
	}
	backends = append(backends, search.NewScrape(
		search.WithScrapeCache(cache),
		search.WithScrapeLogger(logger)))
	return backends
}

func buildVerifier(logger *slog.Logger, cfg runConfig) verify.Verifier {
	if cfg.scoreOnly {
		logger.Info("score-only mode, skipping model verification")
		return nil
	}
	v, err := verify.NewClaude(os.Getenv("ANTHROPIC_API_KEY"),
		verify.WithModel(cfg.model),
		verify.WithLogger(logger))
	if err != nil {
		logger.Info("no verification credentials, deciding on scores alone", "error", err)
		return nil
	}
	return v
}

// loadCookies gathers Instagram session cookies from command-line flags
// first, then the environment, then browser stores. Missing cookies are
// fine; extraction just sees the logged-out page more often.
func loadCookies(ctx context.Context, logger *slog.Logger, cfg runConfig) map[string]string {
	sources := []auth.Source{
		auth.NewStaticSource(map[string]string{
			"sessionid": cfg.sessionID,
			"csrftoken": cfg.csrfToken,
		}),
		auth.EnvSource{},
	}
	if !cfg.noBrowser {
		sources = append(sources, auth.NewBrowserSource(logger))
	}
	cookies, err := auth.ChainSources(ctx, sources...)
	if err != nil || len(cookies) == 0 {
		logger.Debug("no Instagram cookies found", "vars", auth.EnvVars(), "error", err)
		return nil
	}
	logger.Debug("Instagram cookies loaded", "count", len(cookies))
	return cookies
}
