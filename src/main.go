package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/batch"
	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/hosting"
	"github.com/lunefort/tuneid/src/features/identify"
	"github.com/lunefort/tuneid/src/features/jobs"
	"github.com/lunefort/tuneid/src/features/logging"
	"github.com/lunefort/tuneid/src/features/matchcache"
	"github.com/lunefort/tuneid/src/features/metrics"
	"github.com/lunefort/tuneid/src/infra/acoustid"
	"github.com/lunefort/tuneid/src/infra/audd"
	"github.com/lunefort/tuneid/src/infra/chroma"
	"github.com/lunefort/tuneid/src/infra/musicbrainz"
	"github.com/lunefort/tuneid/src/infra/notify"
	"github.com/lunefort/tuneid/src/infra/quotadb"
	"github.com/lunefort/tuneid/src/infra/tagmeta"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := cfgManager.Get()

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	// Match cache
	cache := matchcache.New(cfg.Cache.Path, time.Duration(cfg.Cache.TTLHours)*time.Hour, cfg.Cache.Enabled)

	// Access and quota policies. With no users configured the service runs
	// open; quota metering still applies if the store is enabled.
	var policy access.AccessPolicy = access.AllowAllPolicy{}
	if len(cfg.Users) > 0 {
		policy = access.AttributePolicy{}
	}

	var quota access.QuotaPolicy = access.UnlimitedQuota{}
	if cfg.Quota.Enabled {
		store, err := quotadb.NewStore(cfg.Quota.DatabasePath, cfg.Quota.WindowHours)
		if err != nil {
			log.Fatalf("failed to open quota store: %v", err)
		}
		defer store.Close()
		quota = store
	}

	// Notification sinks
	sink := notify.Multi{notify.NewSlogSink()}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegramSink(cfgManager)
		if err != nil {
			slog.Error("Failed to initialize Telegram sink", "error", err)
		} else {
			sink = append(sink, tg)
		}
	}

	// Lookup providers
	fingerprinter := chroma.NewFingerprintService()
	primary := acoustid.NewClient(cfgManager)
	fallback := audd.NewClient(cfgManager)
	var enricher identify.EnrichmentProvider
	if cfg.Providers.MusicBrainz.Enabled {
		enricher = musicbrainz.NewClient(cfgManager)
	}
	extractor := tagmeta.NewExtractor()

	identifyService := identify.NewService(fingerprinter, primary, fallback, enricher, extractor, cache, sink, recorder)

	// Jobs and batch runner
	jobService := jobs.NewService(&cfg.Jobs, sink)
	batchService := batch.NewService(identifyService, cfgManager, policy, quota)
	jobService.RegisterHandler(batch.JobTypeDirectory, jobs.NewBaseTaskHandler(batch.NewDirectoryIdentifyTask(batchService)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchRunner := batch.NewWatchRunner(cfgManager, jobService)
	if err := watchRunner.Start(ctx); err != nil {
		slog.Error("Failed to start drop-directory watcher", "error", err)
	}
	defer watchRunner.Stop()

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, identifyService, jobService, policy, quota, registry)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfg.Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
