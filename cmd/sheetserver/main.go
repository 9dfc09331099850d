// Package main provides the sheet server binary: per-owner sheet workspaces
// served over gRPC and persisted to the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/pokesheet/internal/config"
	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/status"
	"github.com/cory-johannsen/pokesheet/internal/observability"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/scripting"
	"github.com/cory-johannsen/pokesheet/internal/server"
	"github.com/cory-johannsen/pokesheet/internal/sheetserver"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
	"github.com/cory-johannsen/pokesheet/internal/storage/memstore"
	"github.com/cory-johannsen/pokesheet/internal/storage/postgres"
	"github.com/cory-johannsen/pokesheet/internal/storage/sqlite"
)

// backend is an opened storage driver.
type backend struct {
	sheets sheetsync.Store
	slots  roster.Store
	health func(ctx context.Context) error
	close  func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return backend{}, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected", zap.String("host", cfg.Database.Host))
		return backend{
			sheets: postgres.NewSheetRepository(pool.DB()),
			slots:  postgres.NewRosterRepository(pool.DB()),
			health: func(ctx context.Context) error { return pool.Health(ctx, 5*time.Second) },
			close:  pool.Close,
		}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return backend{}, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Storage.SQLitePath))
		return backend{
			sheets: store,
			slots:  store,
			health: func(ctx context.Context) error { return store.Health(ctx, 5*time.Second) },
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("closing sqlite store", zap.Error(err))
				}
			},
		}, nil
	case config.DriverMemory:
		store := memstore.New()
		logger.Warn("using in-memory storage; sheets are lost on exit")
		return backend{
			sheets: store,
			slots:  store,
			health: func(context.Context) error { return nil },
			close:  func() {},
		}, nil
	}
	return backend{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func loadClassifier(cfg config.SheetConfig, logger *zap.Logger) (species.Classifier, func(), error) {
	if cfg.ClassifierScript == "" {
		return species.DefaultThresholds(), func() {}, nil
	}
	c, err := scripting.LoadClassifier(cfg.ClassifierScript, scripting.DefaultInstructionLimit, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("lua dice-class classifier loaded", zap.String("script", cfg.ClassifierScript))
	return c, c.Close, nil
}

// untilStopped returns a service that idles until stopped, then runs stop.
func untilStopped(stop func()) *server.FuncService {
	done := make(chan struct{})
	var once sync.Once
	return &server.FuncService{
		StartFn: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
			case <-done:
			}
			return nil
		},
		StopFn: func() {
			once.Do(func() {
				close(done)
				stop()
			})
		},
	}
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("health-interval", 30*time.Second, "storage health check interval")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	diceRoller := dice.NewLoggedRoller(dice.NewCryptoSource(), observability.Component(logger, "dice"))

	logger.Info("starting sheet server",
		zap.String("grpc_addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	contentStart := time.Now()
	yamlSpecies, err := species.LoadDirectory(cfg.Sheet.SpeciesDir)
	if err != nil {
		logger.Fatal("loading species", zap.Error(err))
	}
	statuses, err := status.LoadDirectory(cfg.Sheet.StatusesDir)
	if err != nil {
		logger.Fatal("loading status effects", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("species", len(yamlSpecies.IDs())),
		zap.Int("statuses", statuses.Len()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	classifier, closeClassifier, err := loadClassifier(cfg.Sheet, observability.Component(logger, "scripting"))
	if err != nil {
		logger.Fatal("loading classifier", zap.Error(err))
	}
	defer closeClassifier()

	store, err := openStorage(ctx, cfg, observability.Component(logger, "storage"))
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}

	provider := species.NewCachingProvider(yamlSpecies)
	sheets := sheetserver.NewServer(sheetserver.Deps{
		Provider:   provider,
		Classifier: classifier,
		Roster:     roster.New(store.slots, store.sheets, cfg.Sheet.RosterSlots, sheetsync.NewIdentity, observability.Component(logger, "roster")),
		Store:      store.sheets,
		Statuses:   statuses,
		Roller:     diceRoller,
		Options:    sheet.Options{MaxLevel: cfg.Sheet.MaxLevel},
		Debounce:   cfg.Sheet.AutosaveDebounce,
		Logger:     observability.Component(logger, "sheets"),
	})

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(sheetserver.LoggingInterceptor(observability.Component(logger, "grpc"))))
	sheetserver.Register(grpcServer, sheets)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(sheetserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Wire lifecycle; services stop in reverse order.
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("storage", untilStopped(store.close))

	lifecycle.Add("storage-health", server.Ticker("storage-health", *healthInterval, logger, func(ctx context.Context) error {
		if err := store.health(ctx); err != nil {
			healthServer.SetServingStatus(sheetserver.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			return fmt.Errorf("storage health check: %w", err)
		}
		healthServer.SetServingStatus(sheetserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		return nil
	}))

	lifecycle.Add("content-reload", server.OnSignal("content-reload", logger, func(context.Context) error {
		reloaded, err := species.LoadDirectory(cfg.Sheet.SpeciesDir)
		if err != nil {
			return fmt.Errorf("reloading species: %w", err)
		}
		invalidated := provider.Reload(reloaded)
		logger.Info("species reloaded",
			zap.Int("species", len(reloaded.IDs())),
			zap.Ints("invalidated", invalidated),
		)
		return nil
	}, syscall.SIGHUP))

	lifecycle.Add("autosave", untilStopped(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sheets.Close(flushCtx); err != nil {
			logger.Error("flushing sheets on shutdown", zap.Error(err))
		}
	}))

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	logger.Info("sheet server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
