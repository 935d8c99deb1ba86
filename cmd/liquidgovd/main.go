package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"liquidgov/api"
	apimw "liquidgov/api/middleware"
	"liquidgov/config"
	"liquidgov/native/attestation"
	"liquidgov/native/delegation"
	"liquidgov/native/streaming"
	"liquidgov/observability/logging"
	telemetry "liquidgov/observability/otel"
	"liquidgov/storage/boltstore"
	"liquidgov/storage/noncejournal"
)

func main() {
	var cfgPath, operatorSeedPath, nonceJournalPath string
	flag.StringVar(&cfgPath, "config", "liquidgov.toml", "path to the liquidgovd config file")
	flag.StringVar(&operatorSeedPath, "operators", "operators.yaml", "path to the genesis operator registry file")
	flag.StringVar(&nonceJournalPath, "nonce-journal-path", "", "optional path to a time-indexed nonce observation journal; disabled when empty")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LIQUIDGOV_ENV"))
	logger := logging.Setup("liquidgovd", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if otlpEndpoint == "" {
		otlpEndpoint = cfg.OTelEndpoint
		insecure = cfg.OTelInsecure
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "liquidgovd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	store, err := boltstore.Open(filepath.Join(cfg.DataDir, "liquidgov.db"), &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	delegationEngine := delegation.NewEngine(store.Delegation())
	delegationEngine.SetLogger(logger)

	attestationVerifier := attestation.NewVerifier(store.Attestation())
	attestationVerifier.SetLogger(logger)
	if cfg.AttestationM > 0 {
		attestationVerifier.SetThreshold(cfg.AttestationM)
	}

	streamingAllocator := streaming.NewAllocator(store.Streaming())
	streamingAllocator.SetLogger(logger)

	// AV hands every accepted attestation's distribution straight to RA, per
	// the synchronous nested-call concurrency model.
	attestationVerifier.SetRewardAllocator(streamingAllocator)

	if strings.TrimSpace(nonceJournalPath) != "" {
		journal, err := noncejournal.Open(nonceJournalPath)
		if err != nil {
			log.Fatalf("open nonce journal: %v", err)
		}
		defer func() { _ = journal.Close() }()
		attestationVerifier.SetNonceJournal(journal)
	}

	seeds, err := loadOperatorSeeds(operatorSeedPath)
	if err != nil {
		log.Fatalf("load operator seeds: %v", err)
	}
	if err := bootstrapOperators(attestationVerifier, seeds); err != nil {
		log.Fatalf("bootstrap operators: %v", err)
	}

	authenticator := apimw.NewAuthenticator(apimw.AuthConfig{
		Enabled:    cfg.JWTSigningSecret != "",
		HMACSecret: cfg.JWTSigningSecret,
		Issuer:     cfg.JWTIssuer,
	}, nil)
	observability := apimw.NewObservability(apimw.ObservabilityConfig{
		ServiceName: "liquidgovd",
		Enabled:     true,
		LogRequests: false,
	}, nil)

	handler, err := api.New(api.Config{
		Delegation:    delegationEngine,
		Attestation:   attestationVerifier,
		Streaming:     streamingAllocator,
		Authenticator: authenticator,
		Observability: observability,
	})
	if err != nil {
		log.Fatalf("build api handler: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("liquidgovd listening on %s", cfg.ListenAddress)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("forced shutdown: %v", err)
		}
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve http: %v", err)
		}
	}
}
