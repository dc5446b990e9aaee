package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2811Yash/Voice-AI/internal/agent"
	"github.com/2811Yash/Voice-AI/internal/api"
	"github.com/2811Yash/Voice-AI/internal/config"
	"github.com/2811Yash/Voice-AI/internal/infrastructure/sqlite"
	"github.com/2811Yash/Voice-AI/internal/log"
	"github.com/2811Yash/Voice-AI/internal/sessions"
	"github.com/2811Yash/Voice-AI/internal/tracing"
	"github.com/2811Yash/Voice-AI/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent server",
	Long: `Run the agent server: an HTTP API for starting and stopping the voice
agent worker, with SSE streams for its logs and transcript events.

Example:
  voice-ai serve                     # Listen on the configured address
  voice-ai serve --addr :9000        # Override the listen address`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	debug := os.Getenv("VOICE_AI_DEBUG") != "" || debugFlag || cfg.Debug
	if debug {
		logPath := os.Getenv("VOICE_AI_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()

		log.Info(log.CatConfig, "voice-ai server starting", "debug", true, "logPath", logPath)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Session history storage
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening session database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sessionService := sessions.NewService(db.SessionRepository())
	supervisor := agent.New(cfg, sessionService)

	// Tracing
	tracesPath := cfg.Tracing.FilePath
	if tracesPath == "" {
		tracesPath = config.DefaultTracesFilePath()
	}
	traceProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     tracesPath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  "voice-ai",
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	// Worker program watcher: surfaces on-disk edits on the log stream so
	// connected clients know a restart is needed.
	if cfg.Worker.Watch {
		if program := cfg.WorkerProgram(); program != "" {
			w, err := watcher.New(watcher.DefaultConfig(program))
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			onChange, err := w.Start()
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()

			log.SafeGo("worker-watcher", func() {
				for range onChange {
					log.Info(log.CatWatcher, "worker program changed", "path", program)
					supervisor.Logs().Publish(agent.LogLine{
						Text: "worker program changed on disk; restart the agent to pick up changes",
					})
				}
			})
		} else {
			log.Warn(log.CatWatcher, "watch enabled but no worker program file found", "args", cfg.Worker.Args)
		}
	}

	// Determine API server address
	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	handler := api.NewHandler(api.HandlerConfig{
		Supervisor: supervisor,
		Sessions:   sessionService,
		KeepAlive:  cfg.Streams.KeepAlive(),
	})

	var tracer = traceProvider.Tracer()
	if !traceProvider.Enabled() {
		tracer = nil
	}
	server, err := api.NewServer(api.ServerConfig{
		Addr:    addr,
		Handler: handler,
		Tracer:  tracer,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("voice-ai server started on port %d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop API server first so streams end before brokers close
	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatAPI, "error stopping API server", err)
	}

	// Stop the worker and close the brokers
	if err := supervisor.Close(shutdownCtx); err != nil {
		log.ErrorErr(log.CatAgent, "error stopping agent", err)
	}

	if err := traceProvider.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatTrace, "error shutting down tracing", err)
	}

	fmt.Println("Server stopped")
	return nil
}
