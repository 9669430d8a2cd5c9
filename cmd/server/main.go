package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/goutham-m7/VerbaFlow/internal/api"
	"github.com/goutham-m7/VerbaFlow/internal/config"
	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/internal/storage/sqlite"
	"github.com/goutham-m7/VerbaFlow/internal/transcribe"
	"github.com/goutham-m7/VerbaFlow/internal/translation"
	"github.com/goutham-m7/VerbaFlow/internal/websocket"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting VerbaFlow server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create SQLite storage using a daily database file
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("verbaflow-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	// Ensure the directory exists
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	log.Info("Using daily database", logger.String("path", dbPath))

	database, err := sqlite.NewDatabase(dbPath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer database.Close()

	// Create transcript storage
	transcriptStorage := sqlite.NewTranscriptStorage(database.GetDB(), log)

	// Create translation service (Gemini-backed, or mock when no API key)
	translationService, err := translation.NewService(ctx, translation.Config{
		APIKey:         cfg.Translation.GeminiAPIKey,
		Model:          cfg.Translation.Model,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
	}, log)
	if err != nil {
		log.Error("Failed to create translation service", logger.Error(err))
		os.Exit(1)
	}

	// Create room registry and WebSocket server
	registry := room.NewRegistry(log)
	wsServer := websocket.NewServer(registry, int64(cfg.Rooms.MaxMessageSizeKB)*1024, log)

	// Create live transcription server
	deepgramClient := transcribe.NewClient(cfg.Transcription.DeepgramAPIKey, cfg.Transcription.DeepgramBaseURL, log)
	transcribeServer := transcribe.NewServer(
		deepgramClient,
		translationService,
		transcriptStorage,
		transcribe.LiveConfig{
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			Encoding:       cfg.Transcription.Encoding,
			SampleRate:     cfg.Transcription.SampleRate,
			InterimResults: cfg.Transcription.InterimResults,
			Punctuate:      cfg.Transcription.Punctuate,
			SmartFormat:    cfg.Transcription.SmartFormat,
			Diarize:        cfg.Transcription.Diarize,
		},
		log,
	)

	// Create API router
	router := api.NewRouter(registry, wsServer, transcribeServer, translationService, transcriptStorage, cfg, log)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}       // Start with the primary port
	if len(cfg.Server.AdditionalPorts) > 0 { // Only append if there are additional ports
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	// Start a server for each configured port
	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(), // All servers use the same main router
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Cancel the main context
	cancel()

	// Shutdown all HTTP servers
	log.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			log.Info("Attempting to shutdown HTTP server", logger.String("addr", srv.Addr))
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait() // Wait for all server shutdowns to complete

	log.Info("All HTTP servers shutdown.")

	log.Info("Server fully stopped")
}
