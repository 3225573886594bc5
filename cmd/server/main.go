package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	accounthandler "btoflow/internal/account/handler"
	accountservice "btoflow/internal/account/service"
	accountstore "btoflow/internal/account/store"
	"btoflow/internal/account/store/revocation"
	apphandler "btoflow/internal/application/handler"
	appmetrics "btoflow/internal/application/metrics"
	appservice "btoflow/internal/application/service"
	appstore "btoflow/internal/application/store"
	"btoflow/internal/audit"
	httpapi "btoflow/internal/http"
	jwttoken "btoflow/internal/jwt_token"
	"btoflow/internal/platform/config"
	"btoflow/internal/platform/httpserver"
	"btoflow/internal/platform/logger"
	"btoflow/internal/platform/metrics"
	platformredis "btoflow/internal/platform/redis"
	projecthandler "btoflow/internal/project/handler"
	projectmetrics "btoflow/internal/project/metrics"
	projectservice "btoflow/internal/project/service"
	projectstore "btoflow/internal/project/store"
	"btoflow/internal/records"
	reghandler "btoflow/internal/registration/handler"
	regmetrics "btoflow/internal/registration/metrics"
	regservice "btoflow/internal/registration/service"
	regstore "btoflow/internal/registration/store"
)

const auditBufferSize = 256

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, db, err := buildStores(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	trl, redisClient, err := buildRevocationList(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	outbox := make(chan audit.Event, auditBufferSize)
	publisher := audit.NewPublisher(outbox)
	worker := audit.NewWorker(stores.audit, outbox, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	accountSvc := accountservice.New(stores.accounts, jwtService, trl,
		accountservice.WithLogger(log),
		accountservice.WithAuditPublisher(publisher),
		accountservice.WithTokenTTL(cfg.TokenTTL),
	)
	projectSvc := projectservice.New(stores.projects, stores.applications, stores.registrations,
		projectservice.WithLogger(log),
		projectservice.WithAuditPublisher(publisher),
		projectservice.WithMetrics(projectmetrics.New()),
	)
	applicationSvc := appservice.New(stores.applications, stores.projects, stores.accounts,
		appservice.WithLogger(log),
		appservice.WithAuditPublisher(publisher),
		appservice.WithMetrics(appmetrics.New()),
	)
	registrationSvc := regservice.New(stores.registrations, stores.projects, stores.applications,
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(publisher),
		regservice.WithMetrics(regmetrics.New()),
	)

	if cfg.RecordsDir != "" {
		loader := records.NewLoader(accountSvc, stores.projects, log)
		if err := loader.Load(ctx, cfg.RecordsDir); err != nil {
			return err
		}
		log.Info("seeded stores from records", "dir", cfg.RecordsDir)
	}

	m := metrics.New()
	router := httpapi.NewRouter(log, m,
		accounthandler.New(accountSvc, jwtService, log, m, jwtValidator, trl),
		projecthandler.New(projectSvc, log, m, jwtValidator, trl),
		apphandler.New(applicationSvc, log, m, jwtValidator, trl),
		reghandler.New(registrationSvc, log, m, jwtValidator, trl),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting btoflow", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// storeSet holds one implementation per aggregate; memory by default,
// postgres when a DSN is configured.
type storeSet struct {
	accounts      accountStore
	projects      projectStore
	applications  applicationStore
	registrations registrationStore
	audit         audit.Store
}

func buildStores(cfg config.Server) (storeSet, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return storeSet{
			accounts:      accountstore.NewInMemory(),
			projects:      projectstore.NewInMemory(),
			applications:  appstore.NewInMemory(),
			registrations: regstore.NewInMemory(),
			audit:         audit.NewInMemoryStore(),
		}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return storeSet{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return storeSet{}, nil, err
	}
	for _, schema := range []string{
		accountstore.Schema,
		projectstore.Schema,
		appstore.Schema,
		regstore.Schema,
		audit.Schema,
	} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return storeSet{}, nil, err
		}
	}

	return storeSet{
		accounts:      accountstore.NewPostgres(db),
		projects:      projectstore.NewPostgres(db),
		applications:  appstore.NewPostgres(db),
		registrations: regstore.NewPostgres(db),
		audit:         audit.NewPostgresStore(db),
	}, db, nil
}

// tokenRevocationList is satisfied by both the in-process and Redis lists.
type tokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func buildRevocationList(ctx context.Context, cfg config.Server, log *slog.Logger) (tokenRevocationList, *goredis.Client, error) {
	client, err := platformredis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("redis not configured, token revocation list runs in memory")
		return revocation.NewInMemoryTRL(), nil, nil
	}
	return revocation.NewRedisTRL(client), client, nil
}
