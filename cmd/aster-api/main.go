package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/aster/config"
	"github.com/Ramsey-B/aster/internal/repositories/ingestrun"
	"github.com/Ramsey-B/aster/internal/repositories/matchaudit"
	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/internal/repositories/surveyschema"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/ingest"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/logging"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/middleware"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizer"
	"github.com/Ramsey-B/aster/pkg/query"
	"github.com/Ramsey-B/aster/pkg/routes/health"
	ingestionroutes "github.com/Ramsey-B/aster/pkg/routes/ingestion"
	objectroutes "github.com/Ramsey-B/aster/pkg/routes/object"
	pendingroutes "github.com/Ramsey-B/aster/pkg/routes/pending"
	runroutes "github.com/Ramsey-B/aster/pkg/routes/run"
	schemaroutes "github.com/Ramsey-B/aster/pkg/routes/surveyschema"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
	"github.com/Ramsey-B/aster/pkg/startup"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/tracing/exporters"
)

const version = "1.0.0"

// prioritySource merges the registered schema priorities with any
// config overrides; overrides win.
type prioritySource struct {
	overrides []models.SurveyPriority
	schemas   *schema.Service
}

func (p *prioritySource) Priorities(ctx context.Context) ([]models.SurveyPriority, error) {
	base, err := p.schemas.Priorities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.SurveyPriority, 0, len(base)+len(p.overrides))
	overridden := make(map[string]bool, len(p.overrides))
	for _, o := range p.overrides {
		out = append(out, o)
		overridden[o.Survey] = true
	}
	for _, b := range base {
		if !overridden[b.Survey] {
			out = append(out, b)
		}
	}
	return out, nil
}

// component adapts a start/stop pair to the startup graph.
type component struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (c *component) GetName() string     { return c.name }
func (c *component) DependsOn() []string { return c.dependsOn }
func (c *component) Start(ctx context.Context) error {
	if c.start == nil {
		return nil
	}
	return c.start(ctx)
}
func (c *component) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	return c.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	var (
		sqlDB        *sqlx.DB
		objectStore  object.Store
		pendingStore pendingrecord.Store
		auditStore   matchaudit.Store
		runStore     ingestrun.Store
		schemaStore  surveyschema.Store
	)

	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("Using in-memory store, data will not survive restarts")
		objectStore = object.NewMemory()
		pendingStore = pendingrecord.NewMemory()
		auditStore = matchaudit.NewMemory()
		runStore = ingestrun.NewMemory()
		schemaStore = surveyschema.NewMemory()
	default:
		var err error
		sqlDB, err = connectDatabase(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer sqlDB.Close()

		db := database.NewDatabaseInstance(sqlDB, logger)
		objectStore = object.NewRepository(db, logger)
		pendingStore = pendingrecord.NewRepository(db, logger)
		auditStore = matchaudit.NewRepository(db, logger)
		runStore = ingestrun.NewRepository(db, logger)
		schemaStore = surveyschema.NewRepository(db, logger)
	}

	schemaService := schema.NewService(schemaStore, logger)
	priorities := cfg.ParsedSurveyPriorities()

	index := spatialindex.New()
	resolver := matching.NewResolver(index, objectStore, priorities, logger, matching.ResolverConfig{
		RadiusArcsec:  cfg.MatchRadiusArcsec,
		MaxCandidates: cfg.MatchMaxCandidates,
	})

	var producer *kafka.Producer
	var emitter *events.Emitter
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaOutputTopic != "" {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	engine := merging.NewEngine(resolver, index, objectStore, pendingStore, auditStore, emitter, logger)
	norm := normalizer.New(schemaService, logger)
	runner := ingest.NewRunner(norm, engine, runStore, logger, ingest.ConfigFromApp(cfg))
	queryService := query.NewService(index, objectStore, &prioritySource{overrides: priorities, schemas: schemaService}, logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled && len(cfg.KafkaBrokers) > 0 {
		consumer = kafka.NewConsumer(cfg, logger, runner.HandleMessage)
	}

	if err := registerDependencies(logger, engine, runner, queryService, schemaService, pendingStore, runStore); err != nil {
		return fmt.Errorf("failed to register dependencies: %w", err)
	}

	var healthConsumer interface{ Health() bool }
	if consumer != nil {
		healthConsumer = consumer
	}
	checker := health.NewChecker(sqlDB, healthConsumer, version)

	e := buildServer(cfg, logger, checker)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&component{
		name: "spatial-index",
		start: func(ctx context.Context) error {
			entries, err := objectStore.Positions(ctx)
			if err != nil {
				return err
			}
			index.Load(entries)
			logger.WithContext(ctx).WithFields(map[string]any{
				"objects": len(entries),
			}).Info("Spatial index loaded")
			return nil
		},
	})
	if consumer != nil {
		boot.AddDependency(&component{
			name:      "kafka-consumer",
			dependsOn: []string{"spatial-index"},
			start:     consumer.Start,
			stop:      func(context.Context) error { return consumer.Stop() },
		})
	}
	boot.AddDependency(&component{
		name:      "http-server",
		dependsOn: []string{"spatial-index"},
		start: func(context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}
	logger.WithField("port", cfg.Port).Info("Service started")

	<-ctx.Done()
	logger.Info("Shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return boot.Stop(stopCtx)
}

func connectDatabase(cfg config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func registerDependencies(
	logger ectologger.Logger,
	engine *merging.Engine,
	runner *ingest.Runner,
	queryService *query.Service,
	schemaService *schema.Service,
	pendingStore pendingrecord.Store,
	runStore ingestrun.Store,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*merging.Engine](container, engine); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ingest.Runner](container, runner); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*query.Service](container, queryService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*schema.Service](container, schemaService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[pendingrecord.Store](container, pendingStore); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[ingestrun.Store](container, runStore)
}

func buildServer(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	objectroutes.Register(api.Group("/objects"))
	pendingroutes.Register(api.Group("/pending"))
	runroutes.Register(api.Group("/runs"))
	ingestionroutes.Register(api.Group("/ingest"))
	schemaroutes.Register(api.Group("/schemas"))

	return e
}

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	otlpConfig := exporters.DefaultOTLPConfig()
	otlpConfig.Endpoint = cfg.OTLPEndpoint
	otlpConfig.Protocol = cfg.OTLPProtocol

	exporter, err := exporters.NewOTLPExporter(ctx, otlpConfig)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}
