package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/autolink"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/linking"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/redis"
	auditroutes "github.com/Ramsey-B/thistle/pkg/routes/audit"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	linkingroutes "github.com/Ramsey-B/thistle/pkg/routes/linking"
	matchingroutes "github.com/Ramsey-B/thistle/pkg/routes/matching"
	"github.com/Ramsey-B/thistle/pkg/routes/normalize"
	suggestionroutes "github.com/Ramsey-B/thistle/pkg/routes/suggestions"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/store"
	"github.com/Ramsey-B/thistle/pkg/store/memory"
	"github.com/Ramsey-B/thistle/pkg/store/postgres"
	"github.com/Ramsey-B/thistle/pkg/suggestions"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type app struct {
	cfg    *config.Config
	logger ectologger.Logger

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	graph    *graph.Client
	server   *http.Server
	serveErr chan error
}

func newApp(cfg *config.Config, logger ectologger.Logger) *app {
	return &app{cfg: cfg, logger: logger, serveErr: make(chan error, 1)}
}

// Run starts every dependency, serves until ctx is done, then shuts down
func (a *app) Run(ctx context.Context) error {
	s := startup.NewStartup(a.logger, a.cfg.StartupMaxAttempts)
	httpNeeds := []string{"tracing"}

	var traceShutdown func(context.Context) error
	s.AddDependency(startup.Func{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			shutdown, err := tracing.Setup(ctx, tracing.Config{
				ServiceName: a.cfg.AppName,
				Exporter:    a.cfg.TracingExporter,
				Protocol:    a.cfg.TracingProtocol,
				Endpoint:    a.cfg.TracingEndpoint,
				Insecure:    a.cfg.TracingInsecure,
				Timeout:     a.cfg.TracingTimeout,
			})
			traceShutdown = shutdown
			return err
		},
		StopFn: func(ctx context.Context) error { return traceShutdown(ctx) },
	})

	if a.cfg.StoreDriver == "postgres" {
		s.AddDependency(startup.Func{
			Name:    "postgres",
			StartFn: a.startPostgres,
			StopFn:  func(context.Context) error { return a.db.Close() },
		})
		s.AddDependency(startup.Func{
			Name:  "migrations",
			Needs: []string{"postgres"},
			StartFn: func(context.Context) error {
				migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
					MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
					Version:             uint(a.cfg.DatabaseMigrationVersion),
					Force:               a.cfg.DatabaseMigrationForce,
				})
				return migrations.Migrate(a.cfg.DatabaseName, a.db.SQL())
			},
		})
		httpNeeds = append(httpNeeds, "migrations")
	}

	if a.cfg.RedisEnabled {
		s.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:      a.cfg.RedisHost,
					Port:      a.cfg.RedisPort,
					Password:  a.cfg.RedisPassword,
					DB:        a.cfg.RedisDB,
					KeyPrefix: a.cfg.RedisKeyPrefix,
				}, a.logger)
				a.redis = client
				return err
			},
			StopFn: func(context.Context) error { return a.redis.Close() },
		})
		httpNeeds = append(httpNeeds, "redis")
	}

	if a.cfg.KafkaEnabled {
		s.AddDependency(startup.Func{
			Name: "kafka",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      a.cfg.KafkaBrokers,
					Topic:        a.cfg.KafkaAuditTopic,
					BatchSize:    a.cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: a.cfg.KafkaRequiredAcks,
					Compression:  a.cfg.KafkaCompression,
				}, a.logger)
				return nil
			},
			StopFn: func(context.Context) error { return a.producer.Close() },
		})
		httpNeeds = append(httpNeeds, "kafka")
	}

	if a.cfg.GraphEnabled {
		s.AddDependency(startup.Func{
			Name:    "graph",
			StartFn: a.startGraph,
			StopFn:  func(ctx context.Context) error { return a.graph.Close(ctx) },
		})
		httpNeeds = append(httpNeeds, "graph")
	}

	s.AddDependency(startup.Func{
		Name:    "http",
		Needs:   httpNeeds,
		StartFn: a.startHTTP,
		StopFn:  func(ctx context.Context) error { return a.server.Shutdown(ctx) },
	})

	if err := s.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case serveErr = <-a.serveErr:
		a.logger.WithError(serveErr).Error("HTTP server stopped unexpectedly")
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(a.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return errors.Join(serveErr, s.Stop(stopCtx))
}

func (a *app) startPostgres(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Driver:          "postgres",
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		User:            a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) startGraph(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     a.cfg.GraphHost,
		Port:     a.cfg.GraphPort,
		Username: a.cfg.GraphUsername,
		Password: a.cfg.GraphPassword,
		Database: a.cfg.GraphDatabase,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("graph database unreachable: %w", err)
	}
	a.graph = client
	return nil
}

func (a *app) hints() models.Hints {
	return models.Hints{
		DefaultRegion: a.cfg.DefaultRegion,
		DateOrder:     a.cfg.DateOrder,
		CurrencyHint:  a.cfg.CurrencyHint,
	}
}

func (a *app) newStore() store.Store {
	if a.db != nil {
		return postgres.New(a.db, a.logger)
	}
	a.logger.Warn("Using the in-memory store; nothing will survive a restart")
	return memory.New()
}

func (a *app) observers() []linking.Observer {
	var observers []linking.Observer
	if a.producer != nil {
		observers = append(observers, events.NewEmitter(a.producer, a.logger, events.Config{
			Attempts: uint(a.cfg.EventAttempts),
		}))
	}
	if a.graph != nil {
		observers = append(observers, graph.NewProjection(a.graph, a.logger))
	}
	return observers
}

func (a *app) healthCheckers() []health.Checker {
	var checkers []health.Checker
	if a.db != nil {
		checkers = append(checkers, health.CheckFunc{CheckName: "postgres", Fn: a.db.PingContext})
	}
	if a.redis != nil {
		checkers = append(checkers, health.CheckFunc{CheckName: "redis", Fn: a.redis.Ping})
	}
	if a.graph != nil {
		checkers = append(checkers, health.CheckFunc{CheckName: "graph", Fn: a.graph.VerifyConnectivity})
	}
	return checkers
}

func (a *app) startHTTP(context.Context) error {
	hints := a.hints()
	normalizer := normalizers.New()
	st := a.newStore()

	engine := matching.NewEngine(a.logger, st, normalizer, matching.Config{
		FuzzyCandidateLimit: a.cfg.FuzzyCandidateLimit,
		TierTimeout:         a.cfg.MatchTierTimeout,
		Hints:               hints,
	})
	scorer := autolink.NewScorer(a.logger, st, normalizer, nil, autolink.Config{
		MinScore:  a.cfg.AutoLinkMinScore,
		ScanLimit: a.cfg.AutoLinkScanLimit,
		Hints:     hints,
	})
	suggestionService := suggestions.NewService(a.logger, st, engine, scorer, normalizer, suggestions.Config{
		Concurrency: a.cfg.SuggestionConcurrency,
		Threshold:   a.cfg.MatchThreshold,
		Hints:       hints,
	})

	var locker linking.Locker
	if a.redis != nil {
		locker = linking.NewRedisLocker(redis.NewLocker(a.redis), a.logger, a.cfg.LockTTL, a.cfg.LockWait)
	}
	linkingService := linking.NewService(a.logger, st, normalizer, locker, linking.Config{
		DefaultLinkConfidence: a.cfg.DefaultLinkConfidence,
		ObserverTimeout:       a.cfg.ObserverTimeout,
		Hints:                 hints,
	}, a.observers()...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(
		echomw.Recover(),
		echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: a.cfg.AllowOrigins}),
		otelecho.Middleware(a.cfg.AppName),
		middleware.Context(),
		middleware.Logger(a.logger),
	)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	health.NewHandler(2*time.Second, a.healthCheckers()...).Register(e)

	v1 := e.Group("/v1")
	normalize.NewHandler(normalizer, hints).Register(v1)
	matchingroutes.NewHandler(engine).Register(v1)
	suggestionroutes.NewHandler(suggestionService, scorer).Register(v1)
	auditroutes.NewHandler(st).Register(v1)
	linkingroutes.NewHandler(linkingService).Register(v1, middleware.RequireUser())

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	go func() {
		a.logger.Infof("Listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
	}()
	return nil
}
