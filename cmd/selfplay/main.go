package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinabrahms/boardcore/internal/config"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/results"
	"github.com/justinabrahms/boardcore/internal/search"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		showHelp   bool
		variant    string
		difficulty string
		games      int
		seed       uint64
		depth      int
		size       int
		archive    string
		showBoard  bool
		configDir  string
	)
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.StringVar(&variant, "variant", "chess", "Game to play")
	flag.StringVar(&difficulty, "difficulty", "easy", "Search difficulty for both sides")
	flag.IntVar(&games, "games", 1, "Number of games")
	flag.Uint64Var(&seed, "seed", 0, "Seed for the first game (0 uses the clock)")
	flag.IntVar(&depth, "depth", 0, "Override the search depth of the chosen difficulty")
	flag.IntVar(&size, "size", 0, "Go board size")
	flag.StringVar(&archive, "archive", "", "Append results to this CAR file")
	flag.BoolVar(&showBoard, "board", false, "Print the final position of each game")
	flag.StringVar(&configDir, "config", "", "Directory containing config.yaml")
	flag.Parse()

	if showHelp {
		flag.Usage()
		return
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	kind, err := engine.ParseKind(variant)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid variant")
	}
	d, err := search.ParseDifficulty(difficulty)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid difficulty")
	}

	options := cfg.SearchOptions()
	if depth > 0 {
		p := search.DefaultProfiles()[d]
		if configured, ok := cfg.Search.Profiles[string(d)]; ok {
			p = configured
		}
		p.Depth = depth
		options = append(options,
			search.WithProfiles(map[search.Difficulty]search.Profile{d: p}),
			search.WithDepthCaps(map[engine.Kind]int{kind: depth}),
		)
	}

	ledger := results.NewLedger(cfg.Results.Limit)
	if archive != "" {
		if _, err := ledger.LoadFile(archive); err != nil {
			log.Fatal().Err(err).Str("archive", archive).Msg("Failed to load results archive")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(
		session.WithReporter(results.Fanout{results.LogReporter{Logger: log.Logger}, ledger}),
		session.WithSearchOptions(options...),
	)

	for i := 0; i < games && ctx.Err() == nil; i++ {
		gameSeed := seed
		if seed != 0 {
			gameSeed = seed + uint64(i)
		}
		sess, err := manager.Create(session.Config{
			Variant:    kind,
			Difficulty: d,
			Opponent:   session.OpponentSelf,
			Options:    engine.Options{Size: size},
			Seed:       gameSeed,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start game")
		}
		if err := play(ctx, sess); err != nil {
			log.Error().Err(err).Str("session", sess.ID()).Msg("Game interrupted")
			manager.Remove(sess.ID())
			break
		}
		if showBoard {
			fmt.Println(sess.Snapshot().Text)
		}
		manager.Remove(sess.ID())
	}

	for k, tally := range ledger.Summary() {
		log.Info().
			Str("variant", string(k)).
			Int("games", tally.Games).
			Int("wins_a", tally.WinsA).
			Int("wins_b", tally.WinsB).
			Int("draws", tally.Draws).
			Msg("Summary")
	}

	if archive != "" {
		if err := ledger.SaveFile(archive); err != nil {
			log.Fatal().Err(err).Str("archive", archive).Msg("Failed to save results archive")
		}
	}
}

// play lets the computer move for both sides until the game ends.
func play(ctx context.Context, sess *session.Session) error {
	for sess.Status() == session.StatusInProgress {
		if _, err := sess.PlayAI(ctx); err != nil {
			return err
		}
		h := sess.History()
		last := h[len(h)-1]
		log.Debug().
			Str("session", sess.ID()).
			Int("ply", len(h)).
			Str("player", last.Player.String()).
			Str("move", last.Notation).
			Msg("Move")
	}
	return nil
}
