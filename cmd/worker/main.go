package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/bookkeeper/internal/banking"
	"github.com/dvloznov/bookkeeper/internal/billing"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/export"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/jobs/inmemory"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/dvloznov/bookkeeper/internal/secret"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// The worker exports the association report, and one report per listed
// provider, on a cron schedule.
func main() {
	var (
		schedule  = flag.String("schedule", "@every 24h", "Cron schedule of export rounds")
		providers = flag.String("providers", "", "Comma-separated providers to export besides the association")
	)
	flag.Parse()

	log := logger.New("info")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	if !cfg.ExportEnabled() {
		log.Fatal().Msg("BUGBUILDERS_EXPORT_BUCKET is required")
	}

	cipher, err := secret.NewCipher(cfg.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to derive anonymization key")
	}
	aggregator, err := reconcile.NewAggregator(reconcile.DefaultSchedule,
		reconcile.NewClassifier(reconcile.NewAnonymizer(cipher, log)), cfg.StartYear)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tax schedule")
	}
	svc := reconcile.NewService(
		banking.NewClient(banking.Config{
			BaseURL: cfg.QontoURL,
			Login:   cfg.QontoLogin,
			Secret:  cfg.QontoSecret,
			Timeout: cfg.HTTPTimeout,
		}, log),
		billing.NewClient(cfg.StripeKey, cfg.StripeAccount, nil, log),
		aggregator,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := export.NewGCSWriter(ctx, cfg.ExportBucket, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create export writer")
	}
	defer writer.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	if err := jobQueue.Start(ctx, export.NewExporter(svc, writer, log).Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	targets := append([]string{""}, splitProviders(*providers)...)
	scheduler, err := newScheduler(ctx, *schedule, jobQueue, targets, log)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", *schedule).Msg("Invalid export schedule")
	}

	enqueueRound(ctx, jobQueue, targets, log)
	scheduler.Start()
	log.Info().
		Str("schedule", *schedule).
		Int("reports", len(targets)).
		Msg("Export worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down export worker...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("Export round still running at shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancel()

	log.Info().Msg("Export worker stopped")
}

// newScheduler registers one export round per tick of schedule. Standard five
// field expressions and descriptors such as "@daily" or "@every 6h" are accepted.
func newScheduler(ctx context.Context, schedule string, publisher jobs.Publisher, targets []string, log zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		enqueueRound(ctx, publisher, targets, log)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func enqueueRound(ctx context.Context, publisher jobs.Publisher, targets []string, log zerolog.Logger) {
	for _, provider := range targets {
		job := &jobs.ExportReportJob{Provider: provider}
		if err := publisher.PublishExportReport(ctx, job); err != nil {
			log.Error().Err(err).Str("provider", provider).Msg("Failed to enqueue export")
			continue
		}
		log.Debug().Str("job_id", job.JobID).Str("provider", provider).Msg("Export enqueued")
	}
}

func splitProviders(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
