package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nemanja-m/mrhistory/internal/fetcher/api/output"
	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
	"github.com/nemanja-m/mrhistory/internal/fetcher/service"
	"github.com/nemanja-m/mrhistory/internal/history"
	"github.com/nemanja-m/mrhistory/internal/shared/config"
	"github.com/nemanja-m/mrhistory/internal/shared/logging"
	"github.com/nemanja-m/mrhistory/internal/shared/metrics"
	"github.com/nemanja-m/mrhistory/pkg/local"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to fetcher config file (default: config/fetcher.yaml)")
		input      = flag.String("input", "", "glob of files listing one application id per line")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [application_id ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadFetcher(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewFromConfig(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	appIDs, err := collectAppIDs(flag.Args(), *input)
	if err != nil {
		logger.Fatal("Failed to read application ids", "error", err)
	}
	if len(appIDs) == 0 {
		logger.Fatal("No application ids given; pass them as arguments or with -input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, cfg, logger, appIDs, os.Stdout)
	if err != nil {
		logger.Fatal("Fetcher stopped", "error", err)
	}
	if failed > 0 {
		stop()
		os.Exit(1)
	}
}

// run fetches every application and writes one JSON line per application to
// w. It returns the number of applications that could not be fetched.
func run(ctx context.Context, cfg *config.FetcherConfig, logger logging.Logger, appIDs []string, w io.Writer) (int64, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server forced to shutdown", "error", err)
			}
		}()
	}

	urls, err := history.NewURLBuilder(cfg.History.Addr)
	if err != nil {
		return 0, err
	}

	logger.Info("Connecting to the job history server", "addr", cfg.History.Addr)
	if err := history.Verify(ctx, &http.Client{Timeout: cfg.History.Timeout}, urls.Root()); err != nil {
		return 0, err
	}
	logger.Info("Connection success")

	auth, err := history.NewAuthenticator(cfg.Auth.Type, cfg.Auth.User)
	if err != nil {
		return 0, err
	}

	clients := make([]core.HistoryClient, cfg.Workers)
	for worker := range clients {
		session := history.NewSession(worker, urls.Root().URL, history.SessionOptions{
			Authenticator: auth,
			Timeout:       cfg.History.Timeout,
			RateLimit:     cfg.History.RateLimit,
			Metrics:       m,
			Logger:        logger,
		})
		clients[worker] = history.NewClient(urls, session)
	}

	fetcher := service.NewFetcher(cfg.Fetcher.Params, logger, service.WithMetrics(m))
	out := output.NewWriter(w)

	logger.Info("Fetching applications",
		"applications", len(appIDs),
		"workers", cfg.Workers,
		"sampling_enabled", service.SamplingEnabled(cfg.Fetcher.Params),
	)

	var fetched, failed atomic.Int64
	pool := local.NewPool(cfg.Workers)
	pool.Start()
	for _, appID := range appIDs {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func(worker int) {
			rec, err := fetcher.Fetch(ctx, clients[worker], appID)
			if err != nil {
				failed.Add(1)
				logger.Error("Failed to fetch application", "app_id", appID, "worker_id", worker, "error", err)
				if err := out.WriteError(appID, err); err != nil {
					logger.Error("Failed to write error", "app_id", appID, "error", err)
				}
				return
			}
			fetched.Add(1)
			if err := out.WriteRecord(rec); err != nil {
				logger.Error("Failed to write record", "app_id", appID, "error", err)
			}
		})
	}
	pool.Close()

	logger.Info("Finished",
		"fetched", fetched.Load(),
		"failed", failed.Load(),
		"skipped", int64(len(appIDs))-fetched.Load()-failed.Load(),
	)
	if err := ctx.Err(); err != nil {
		return failed.Load(), fmt.Errorf("interrupted: %w", err)
	}
	return failed.Load(), nil
}

func startMetricsServer(addr string, m *metrics.Metrics, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}()
	return srv
}

// collectAppIDs merges ids given as arguments with ids read from files
// matching pattern, dropping duplicates and keeping first-seen order.
func collectAppIDs(args []string, pattern string) ([]string, error) {
	ids := append([]string(nil), args...)
	if pattern != "" {
		files, err := local.FindFiles([]string{pattern})
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no files matched the input pattern: %s", pattern)
		}
		for _, file := range files {
			fileIDs, err := local.ReadIDs(file)
			if err != nil {
				return nil, err
			}
			ids = append(ids, fileIDs...)
		}
	}

	seen := make(map[string]bool, len(ids))
	unique := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique, nil
}
