// Package main provides the arena server binary: an HTTP/websocket gateway
// in front of the turn and combat engine.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/bot"
	"github.com/cory-johannsen/arena/internal/game/clock"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/items"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/gameserver"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	itemsPath := flag.String("items", "", "path to an item catalog YAML file; empty = built-in catalog")
	migrateOnStart := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena server", zap.String("addr", cfg.Server.Addr()))

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	catalog := items.DefaultCatalog()
	if *itemsPath != "" {
		catalog, err = items.LoadCatalog(*itemsPath)
		if err != nil {
			logger.Fatal("loading item catalog", zap.String("path", *itemsPath), zap.Error(err))
		}
	}

	brain := bot.NewBrain()
	scriptMgr := scripting.NewManager(roller, logger)
	scriptMgr.GetBot = brain.Lookup
	defer scriptMgr.Close()
	planners, err := bot.LoadPlanners(scriptMgr, cfg.Bots)
	if err != nil {
		logger.Fatal("loading bot planners", zap.Error(err))
	}

	hub := ws.NewHub(logger)
	deps := gameserver.Deps{
		Rules:       cfg.Rules,
		Games:       match.NewRegistry(),
		Sessions:    session.NewRegistry(clock.Real{}, logger),
		Broadcaster: hub,
		Roller:      roller,
		Items:       items.NewService(catalog, logger),
		Planners:    planners,
		Brain:       brain,
		Logger:      logger,
	}

	var routerOpts []ws.RouterOption
	if cfg.Database.Enabled {
		if *migrateOnStart {
			if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
				logger.Fatal("migrating database", zap.Error(err))
			}
		}
		dbStart := time.Now()
		pool, err := postgres.NewPool(context.Background(), cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo := postgres.NewMatchRepository(pool.DB())
		deps.Results = repo
		routerOpts = append(routerOpts, ws.WithResults(repo))
	}

	srv := gameserver.New(deps)
	handler := ws.NewHandler(srv, hub, ws.Options{
		WriteTimeout: cfg.Server.WriteTimeout,
		PingInterval: cfg.Server.PingInterval,
		PongTimeout:  cfg.Server.PongTimeout,
	}, logger)
	router := ws.NewRouter(srv, handler, logger, routerOpts...)

	lifecycle := server.NewLifecycle(logger, 10*time.Second)
	lifecycle.Add("http", ws.NewHTTPService(cfg.Server, router, logger))
	lifecycle.Add("games", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		StopFn: func(context.Context) {
			logger.Info("stopping games", zap.Int("active", srv.Games()))
			srv.Shutdown()
		},
	})

	logger.Info("arena server initialized", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Error("arena server stopped", zap.Error(err))
	}
}
