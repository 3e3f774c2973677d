package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bookkeeper/internal/banking"
	"github.com/dvloznov/bookkeeper/internal/billing"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/export"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/dvloznov/bookkeeper/internal/secret"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encrypt":
		runEncrypt(log)
	case "decrypt":
		runDecrypt(log)
	case "hash-password":
		runHashPassword(log)
	case "tax":
		runTax(log)
	case "report":
		runReport(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bookkeeper CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  encrypt        Encrypt a label with the configured secret key")
	fmt.Println("  decrypt        Decrypt an anonymized label")
	fmt.Println("  hash-password  Generate a salt and password hash for a member")
	fmt.Println("  tax            Compute the yearly tax of an income in cents")
	fmt.Println("  report         Reconcile a provider or the association and write the report")
	fmt.Println("  help           Show this help message")
}

func mustConfig(log zerolog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

func mustCipher(log zerolog.Logger, cfg *config.Config) *secret.Cipher {
	c, err := secret.NewCipher(cfg.SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to derive key")
	}
	return c
}

func runEncrypt(log zerolog.Logger) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli encrypt TEXT")
	}

	out, err := mustCipher(log, mustConfig(log)).Encrypt(fs.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("Encryption failed")
	}
	fmt.Println(out)
}

func runDecrypt(log zerolog.Logger) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli decrypt HEX")
	}

	out, err := mustCipher(log, mustConfig(log)).Decrypt(fs.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("Decryption failed")
	}
	fmt.Println(out)
}

func runHashPassword(log zerolog.Logger) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	salt := fs.String("salt", "", "Salt to use (random when empty)")
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli hash-password [-salt SALT] PASSWORD")
	}

	if *salt == "" {
		*salt = uuid.NewString()
	}

	fmt.Printf("salt=%s\n", *salt)
	fmt.Printf("password=%s\n", secret.HashPassword(*salt, fs.Arg(0)))
}

func runTax(log zerolog.Logger) {
	fs := flag.NewFlagSet("tax", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		log.Fatal().Msg("Usage: cli tax INCOME_CENTS")
	}

	income, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Str("income", fs.Arg(0)).Msg("Invalid income")
	}

	schedule := reconcile.DefaultSchedule
	tax := schedule.TaxAmount(income)

	fmt.Printf("income:         %d\n", income)
	fmt.Printf("tax:            %d\n", tax)
	fmt.Printf("effective rate: %d%% (%s%%)\n",
		reconcile.EffectiveRate(income, tax),
		reconcile.EffectiveRatePrecise(income, tax).StringFixed(2))
}

// stdoutWriter prints the report instead of storing it.
type stdoutWriter struct{}

func (stdoutWriter) Write(ctx context.Context, name string, data []byte) (string, error) {
	if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
		return "", err
	}
	return "stdout", nil
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	provider := fs.String("provider", "", "Provider to reconcile (association when empty)")
	out := fs.String("out", "", "Destination: a file path or gs://bucket/object (stdout when empty)")
	fs.Parse(os.Args[2:])

	// Keep stdout clean for the report itself.
	log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := mustConfig(log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	classifier := reconcile.NewClassifier(reconcile.NewAnonymizer(mustCipher(log, cfg), log))
	aggregator, err := reconcile.NewAggregator(reconcile.DefaultSchedule, classifier, cfg.StartYear)
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

	var (
		writer export.Writer = stdoutWriter{}
		name                 = "report.json"
	)

	switch {
	case strings.HasPrefix(*out, "gs://"):
		bucket, object, err := export.ParseGSURI(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid destination")
		}
		gcs, err := export.NewGCSWriter(ctx, bucket, cfg.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcs.Close()
		writer, name = gcs, object
	case *out != "":
		writer, name = export.FileWriter{Dir: filepath.Dir(*out)}, filepath.Base(*out)
	}

	uri, err := export.NewExporter(svc, writer, log).Export(ctx, *provider, name)
	if err != nil {
		log.Fatal().Err(err).Msg("Report failed")
	}

	if uri != "stdout" {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", uri)
	}
}
