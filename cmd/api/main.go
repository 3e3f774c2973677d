package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/bookkeeper/internal/api/handlers"
	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/banking"
	"github.com/dvloznov/bookkeeper/internal/billing"
	"github.com/dvloznov/bookkeeper/internal/cloudbilling"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/customer"
	"github.com/dvloznov/bookkeeper/internal/export"
	"github.com/dvloznov/bookkeeper/internal/jobs/inmemory"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/dvloznov/bookkeeper/internal/secret"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	// The anonymization key is derived once and never changes while running.
	cipher, err := secret.NewCipher(cfg.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to derive anonymization key")
	}

	bankClient := banking.NewClient(banking.Config{
		BaseURL: cfg.QontoURL,
		Login:   cfg.QontoLogin,
		Secret:  cfg.QontoSecret,
		Timeout: cfg.HTTPTimeout,
	}, log)
	billingClient := billing.NewClient(cfg.StripeKey, cfg.StripeAccount, nil, log)

	classifier := reconcile.NewClassifier(reconcile.NewAnonymizer(cipher, log))
	aggregator, err := reconcile.NewAggregator(reconcile.DefaultSchedule, classifier, cfg.StartYear)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid tax schedule")
	}
	reconcileSvc := reconcile.NewService(bankClient, billingClient, aggregator, log)
	customerSvc := customer.NewService(billingClient, log)

	routes := handlers.Routes{
		Bank:     handlers.NewBankHandler(reconcileSvc),
		Customer: handlers.NewCustomerHandler(customerSvc),
		Ping:     handlers.NewPingHandler(billingClient),
		Auth:     middleware.BasicAuth(customerSvc, log),
	}

	if cfg.ScalewayKey != "" {
		scaleway := cloudbilling.NewClient(cfg.ScalewayURL, cfg.ScalewayKey, cfg.HTTPTimeout, log)
		routes.Invoices = handlers.NewInvoicesHandler(scaleway)
	} else {
		log.Warn().Msg("No Scaleway key configured - /invoices/scaleway disabled")
	}

	ctx := context.Background()

	// Report exports run on an in-memory queue when a bucket is configured.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.ExportEnabled() {
		writer, err := export.NewGCSWriter(ctx, cfg.ExportBucket, cfg.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create export writer")
		}
		defer writer.Close()

		exporter := export.NewExporter(reconcileSvc, writer, log)

		log.Info().Str("bucket", cfg.ExportBucket).Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, exporter.Handle); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export worker")
		}
		routes.Exports = handlers.NewExportsHandler(jobQueue, jobStore)
	} else {
		log.Warn().Msg("No export bucket configured - report exports disabled")
	}

	// Recovery is outermost; Logger needs the request ID.
	handler := middleware.Chain(routes.Mux(),
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight exports finish before cancelling the workers.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
