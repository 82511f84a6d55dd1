package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/db"
	kbhttp "github.com/yungbote/knowledge-backend/internal/http"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/jwtauth"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/realtime"
	"github.com/yungbote/knowledge-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Usecases knowledge.Usecases
	Metrics  *observability.Metrics
	Server   *kbhttp.Server

	pg           *db.PostgresService
	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log)
	shutdownOtel := observability.InitOTel(ctx, log,
		observability.OtelConfigFromEnv(cfg.ServiceName, cfg.Environment, cfg.Version))

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)
	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}
	uc := wireUsecases(theDB, log, cfg, reposet, clients, metrics)

	tokens, err := jwtauth.New(cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if err != nil {
		clients.close(log)
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}
	handlerset := wireHandlers(log, theDB, uc, tokens)
	middleware := wireMiddleware(log, tokens)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Usecases:     uc,
		Metrics:      metrics,
		Server:       wireServer(log, cfg, metrics, handlerset, middleware),
		pg:           pg,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// Without Temporal the pending sweep runs in this process too.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Metrics.StartSLOEvaluator(ctx, a.Log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Run(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	if a.Clients.Temporal == nil {
		g.Go(func() error { return a.sweepPending(gctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunWorker executes resolve workflows when Temporal is configured and sweeps
// unresolved book nodes on an interval until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Metrics.StartSLOEvaluator(ctx, a.Log)
	if err := a.Clients.Signals.StartForwarder(ctx, a.logSignal); err != nil {
		a.Log.Warn("signal forwarder unavailable", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.Usecases)
		if err != nil {
			return err
		}
		g.Go(func() error { return runner.Start(gctx) })
	}
	g.Go(func() error { return a.sweepPending(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) sweepPending(ctx context.Context) error {
	every := a.Cfg.PendingSweepEvery
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := a.Usecases.ResolvePending(ctx, a.Cfg.PendingSweepBatch)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Warn("pending sweep failed", "error", err)
		} else if n > 0 {
			a.Log.Info("pending sweep resolved nodes", "count", n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) logSignal(sig realtime.Signal) {
	a.Log.Info("knowledge signal",
		"type", string(sig.Type),
		"knowledge_id", sig.KnowledgeID,
		"user_id", sig.UserID,
		"book_id", sig.BookID,
		"merged_into", sig.MergedInto,
	)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.close(a.Log)
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
