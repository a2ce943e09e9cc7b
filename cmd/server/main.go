package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/hindi-asr-service/internal/config"
	"github.com/skypro1111/hindi-asr-service/internal/inference"
	"github.com/skypro1111/hindi-asr-service/internal/metrics"
	"github.com/skypro1111/hindi-asr-service/internal/server"
	"github.com/skypro1111/hindi-asr-service/internal/transcribe"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "hindi-asr-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int64("max_upload_bytes", cfg.HTTP.MaxUploadBytes),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("min_clip_duration", cfg.Audio.MinClipDuration),
		slog.Float64("max_clip_duration", cfg.Audio.MaxClipDuration),
		slog.String("model_path", cfg.Model.ModelPath),
		slog.String("tokens_path", cfg.Model.TokensPath),
		slog.Int("workers", cfg.Model.Workers),
		slog.String("provider", cfg.Model.Provider),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Load the acoustic model before accepting traffic; a broken model
	// artifact must fail startup rather than every request.
	session, err := inference.OpenSession(inference.SessionConfig{
		ModelPath:      cfg.Model.ModelPath,
		LibraryPath:    cfg.Model.LibraryPath,
		IntraOpThreads: cfg.Model.IntraOpThreads,
		InterOpThreads: cfg.Model.InterOpThreads,
		Provider:       cfg.Model.Provider,
	}, logger)
	if err != nil {
		logger.Error("Failed to load acoustic model", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine := inference.NewEngine(session, cfg.Model.Workers, logger)
	logger.Info("Inference engine initialized",
		slog.Int("workers", engine.Workers()),
	)

	svc := transcribe.NewService(engine, cfg.Model.TokensPath, appMetrics, logger)
	logger.Info("Transcription service initialized")

	httpServer := server.NewHTTPServer(cfg, svc, appMetrics, logger)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop the HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Drain the inference workers and release the model
	if err := engine.Close(); err != nil {
		logger.Error("Error closing inference engine", slog.String("error", err.Error()))
	}

	// Final statistics
	stats := httpServer.Stats()
	logger.Info("Final server statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("successful_transcriptions", stats.SuccessfulTranscripts),
		slog.Uint64("failed_transcriptions", stats.FailedTranscripts),
		slog.Float64("average_processing_time", stats.AverageProcessingTime),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
