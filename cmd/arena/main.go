package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spellfaire/spellfaire-engine/internal/card"
	"github.com/spellfaire/spellfaire-engine/internal/config"
	"github.com/spellfaire/spellfaire-engine/internal/deck"
	"github.com/spellfaire/spellfaire-engine/internal/game"
	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/repository"
)

const (
	botA = "bot-a"
	botB = "bot-b"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	games      = flag.Int("games", -1, "number of matches (overrides arena.games)")
	seed       = flag.Uint64("seed", 0, "random seed (overrides arena.seed)")
	replayPath = flag.String("replay", "", "print a saved replay file and exit")
	frame      = flag.Int("frame", -1, "with -replay, print only this frame")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *games >= 0 {
		cfg.Arena.Games = *games
	}
	if *seed != 0 {
		cfg.Arena.Seed = *seed
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *replayPath != "" {
		if err := printReplay(*replayPath, *frame); err != nil {
			logger.Fatal("failed to print replay", zap.String("path", *replayPath), zap.Error(err))
		}
		return
	}

	logger.Info("starting arena",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("catalog", cfg.Catalog.Source),
		zap.Int("games", cfg.Arena.Games),
		zap.Uint64("seed", cfg.Arena.Seed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.close()

	seeds := seedSource(cfg.Arena.Seed)
	decks := deck.NewMemorySource()
	bus := rules.NewEventBus()
	t := &tally{}
	t.watch(bus, logger.Named("events"))

	opts := []game.Option{game.WithSeedSource(seeds.Uint64), game.WithEventBus(bus)}
	var replays *game.ReplayRecorder
	if cfg.Arena.ReplayDir != "" {
		replays = game.NewReplayRecorder(logger.Named("replay"), cfg.Arena.ReplayDir)
		opts = append(opts, game.WithReplayRecorder(replays))
	}
	engine := game.NewEngine(logger.Named("engine"), store.games, store.catalog, decks, opts...)

	a := &arena{
		logger:  logger,
		engine:  engine,
		catalog: store.catalog,
		decks:   decks,
		replays: replays,
		cfg:     cfg.Arena,
		rng:     seeds,
		tally:   t,
	}
	result, err := a.run(ctx)
	if err != nil {
		logger.Fatal("arena stopped", errorFields(err)...)
	}
	result.print(os.Stdout)
}

// storage bundles whatever backs the engine for this run.
type storage struct {
	games   repository.GameRepository
	catalog card.Catalog
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	s := &storage{close: func() {}}

	needPool := cfg.Storage.Driver == config.DriverPostgres || cfg.Catalog.Source == config.CatalogPostgres
	var pool *pgxpool.Pool
	if needPool {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Postgres.ConnectTimeout)
		defer cancel()
		p, err := repository.NewPool(connectCtx, repository.PoolConfig{
			URL:      cfg.Storage.Postgres.URL,
			MaxConns: cfg.Storage.Postgres.MaxConns,
			MinConns: cfg.Storage.Postgres.MinConns,
		})
		if err != nil {
			return nil, err
		}
		pool = p
		s.close = p.Close
	}

	switch cfg.Catalog.Source {
	case config.CatalogPostgres:
		cards, err := repository.NewCardStore(ctx, pool)
		if err != nil {
			return nil, err
		}
		catalog, err := cards.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		s.catalog = catalog
	default:
		catalog, err := card.NewEmbeddedCatalog()
		if err != nil {
			return nil, err
		}
		s.catalog = catalog
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo, err := repository.NewPostgresGameRepository(ctx, pool, logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		s.games = repo
	case config.DriverSQLite:
		repo, err := repository.OpenSQLite(cfg.Storage.SQLite.Path, logger.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		s.games = repo
		prev := s.close
		s.close = func() {
			_ = repo.Close()
			prev()
		}
	default:
		s.games = repository.NewMemoryGameRepository()
	}
	return s, nil
}

// seedSource returns the arena's random stream. Seed 0 means unseeded.
func seedSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
