// Package server initializes and runs the RecordHub server: it opens the
// database, runs migrations, wires the cache and services, and starts the
// HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/recordhub/internal/logging"
	"github.com/dmitrijs2005/recordhub/internal/server/cache"
	"github.com/dmitrijs2005/recordhub/internal/server/config"
	"github.com/dmitrijs2005/recordhub/internal/server/httpapi"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
	"github.com/dmitrijs2005/recordhub/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	cache  cache.Cache
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var c cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		c = rc
	}

	s := schema.Default()
	if cfg.SchemaFile != "" {
		s, err = schema.Load(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("schema load error: %w", err)
		}
	}

	if err := rm.EnsureUniqueIndexes(ctx, db, s.UniqueFields()); err != nil {
		return nil, fmt.Errorf("unique index error: %w", err)
	}

	recordService := services.NewRecordService(db, rm, s, c, cfg)
	authService := services.NewAuthService(db, rm, s, cfg)
	attachmentService := services.NewAttachmentService(db, rm, cfg)

	handler := httpapi.NewHandler(recordService, authService, attachmentService, logger, cfg.Env == "dev")
	server := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, handler, authService, cfg.Env == "dev")

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		cache:  c,
		server: server,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env, "schema", app.schemaName())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	app.close(ctx)
}

func (app *App) schemaName() string {
	if app.config.SchemaFile != "" {
		return app.config.SchemaFile
	}
	return "default"
}

func (app *App) close(ctx context.Context) {
	if closer, ok := app.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error(ctx, "cache close error", "error", err.Error())
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
