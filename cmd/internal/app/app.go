// Package app wires the vidtube server runtime: config, logging,
// persistence, credential services, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vidtube/cmd/account"
	authapi "vidtube/cmd/internal/auth/api"
	"vidtube/cmd/internal/auth/credential"
	"vidtube/cmd/internal/media"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the vidtube server runtime. It owns the DB pool lifecycle and
// the wired HTTP handlers.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	users *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
// Missing or weak signing secrets abort startup here rather than
// surfacing per request.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	credCfg, err := credential.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := credential.NewTokenManager(credCfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: VIDTUBE_DATABASE_URL is required")
	}

	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg); err != nil {
			return nil, err
		}
		log.Info("db.migrations.applied")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	a.dbEnabled = true
	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	accounts, err := account.NewPostgresStore(pool, account.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}

	creds := credential.NewService(accounts, tokens)

	var opts []authapi.HandlerOption
	mediaCfg, err := media.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	if mediaCfg.Enabled {
		store, err := media.NewStore(ctx, mediaCfg)
		if err != nil {
			pool.Close()
			return nil, err
		}
		opts = append(opts, authapi.WithMediaStore(store))
		log.Info("media.enabled", "bucket", mediaCfg.Bucket)
	} else {
		log.Info("media.disabled")
	}

	users, err := authapi.NewHandler(log, accounts, creds, authapi.LoadConfigFromEnv(), opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.users = users

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.users)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
