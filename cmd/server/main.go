package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinabrahms/boardcore/internal/config"
	"github.com/justinabrahms/boardcore/internal/results"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/justinabrahms/boardcore/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line flags
	var showHelp bool
	var configDir string
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.StringVar(&configDir, "config", "", "Directory containing config.yaml")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	// Setup logging
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load config
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	defaults, err := cfg.SessionDefaults()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid game defaults")
	}

	ledger := results.NewLedger(cfg.Results.Limit)
	if cfg.Results.Archive != "" {
		n, err := ledger.LoadFile(cfg.Results.Archive)
		if err != nil {
			log.Fatal().Err(err).Str("archive", cfg.Results.Archive).Msg("Failed to load results archive")
		}
		log.Info().Int("results", n).Str("archive", cfg.Results.Archive).Msg("Loaded results archive")
	}
	reporter := results.Fanout{results.LogReporter{Logger: log.Logger}, ledger}

	manager := session.NewManager(
		session.WithReporter(reporter),
		session.WithSearchOptions(cfg.SearchOptions()...),
	)
	hub := web.NewHub()
	service := web.NewService(manager, ledger, hub, defaults)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx)
	go manager.RunSweeper(ctx, cfg.Server.SweepInterval)

	// Create server. Expert searches can outlast a short write timeout.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      service.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Str("variant", string(defaults.Variant)).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stop()

	for _, sess := range manager.List() {
		manager.Remove(sess.ID())
	}
	if cfg.Results.Archive != "" {
		if err := ledger.SaveFile(cfg.Results.Archive); err != nil {
			log.Error().Err(err).Str("archive", cfg.Results.Archive).Msg("Failed to save results archive")
		} else {
			log.Info().Int("results", ledger.Len()).Str("archive", cfg.Results.Archive).Msg("Saved results archive")
		}
	}

	log.Info().Msg("Server exited")
}

func showHelpMessage() {
	fmt.Println(`boardcore server

DESCRIPTION:
    HTTP and WebSocket service for two-player board games against a
    minimax opponent. Plays Chess, Checkers, Reversi, Go and Backgammon.

USAGE:
    boardcore-server [OPTIONS]

OPTIONS:
    -h, --help       Show this help message
    -config DIR      Directory containing config.yaml (default: . and ./config)

CONFIGURATION:
    Settings come from config.yaml and BOARDCORE_* environment variables,
    e.g. BOARDCORE_SERVER_PORT=9090.

    Example config.yaml:
        server:
          host: localhost
          port: 8080
          sweep_interval: 5s

        game:
          variant: chess
          difficulty: medium
          player_side: a
          opponent: ai
          time_control:
            per_player: 10m

        search:
          profiles:
            expert:
              depth: 6
              time: 10s
          depth_caps:
            go: 2

        results:
          limit: 1000
          archive: results.car

        development:
          debug: false
          log_level: info

API ENDPOINTS:
    GET    /api/health                 - Service health check
    GET    /api/variants               - Supported games and difficulties
    POST   /api/sessions               - Start a session
    GET    /api/sessions               - Sessions in progress (?all=true for every session)
    GET    /api/sessions/{id}          - Session snapshot
    DELETE /api/sessions/{id}          - Abandon and remove a session
    GET    /api/sessions/{id}/moves    - Move history and legal moves
    POST   /api/sessions/{id}/moves    - Submit a move, optionally with a computer reply
    POST   /api/sessions/{id}/ai       - Let the computer move
    POST   /api/sessions/{id}/undo     - Take back one move or a pair
    GET    /api/sessions/{id}/clock    - Remaining time
    GET    /api/results                - Finished games and per-variant tallies
    GET    /ws?session={id}            - Live session events

EXAMPLES:
    # Start with default configuration
    boardcore-server

    # Start a Go game on a 13x13 board
    curl -X POST http://localhost:8080/api/sessions \
      -H "Content-Type: application/json" \
      -d '{"variant": "go", "size": 13, "difficulty": "easy"}'

    # Play e2e4 and let the computer answer
    curl -X POST http://localhost:8080/api/sessions/{id}/moves \
      -H "Content-Type: application/json" \
      -d '{"move": "e2e4", "reply": true}'`)
}
