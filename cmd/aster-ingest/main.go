// Command aster-ingest loads one survey catalog file into the registry
// from the command line, sharing the server's store and matching
// configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/aster/config"
	"github.com/Ramsey-B/aster/internal/repositories/ingestrun"
	"github.com/Ramsey-B/aster/internal/repositories/matchaudit"
	"github.com/Ramsey-B/aster/internal/repositories/object"
	"github.com/Ramsey-B/aster/internal/repositories/pendingrecord"
	"github.com/Ramsey-B/aster/internal/repositories/surveyschema"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/ingest"
	"github.com/Ramsey-B/aster/pkg/logging"
	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizer"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/spatialindex"
)

func main() {
	survey := flag.String("survey", "", "survey name the file belongs to (required)")
	file := flag.String("file", "", "catalog file to ingest, .csv or .jsonl (required)")
	radius := flag.Float64("radius", 0, "matching radius in arcseconds (default from config)")
	flag.Parse()

	if *survey == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind config: %v\n", err)
		os.Exit(1)
	}
	if *radius > 0 {
		cfg.MatchRadiusArcsec = *radius
	}

	logger, err := logging.New("aster-ingest", cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := ingestFile(ctx, cfg, logger, *survey, *file)
	if err != nil {
		logger.WithError(err).Error("Ingestion failed")
		os.Exit(1)
	}

	fmt.Printf("run %s %s: total=%d created=%d merged=%d unchanged=%d pending=%d malformed=%d failed=%d\n",
		run.ID, run.Status,
		run.Summary.Total, run.Summary.Created, run.Summary.Merged, run.Summary.Unchanged,
		run.Summary.Pending, run.Summary.Malformed, run.Summary.Failed,
	)
	if run.Status != models.RunStatusCompleted {
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, cfg config.Config, logger ectologger.Logger, survey, path string) (*models.IngestRun, error) {
	var (
		objectStore  object.Store
		pendingStore pendingrecord.Store
		auditStore   matchaudit.Store
		runStore     ingestrun.Store
		schemaStore  surveyschema.Store
	)

	if cfg.StoreBackend == "memory" {
		objectStore = object.NewMemory()
		pendingStore = pendingrecord.NewMemory()
		auditStore = matchaudit.NewMemory()
		runStore = ingestrun.NewMemory()
		schemaStore = surveyschema.NewMemory()
	} else {
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
			cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
		)
		sqlDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer sqlDB.Close()

		driver, err := migratepg.WithInstance(sqlDB.DB, &migratepg.Config{})
		if err != nil {
			return nil, err
		}
		migrations := database.NewMigrationService(logger, &database.MigrationConfig{
			MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
			AutoRollback:        cfg.DatabaseMigrationAutoRollback,
		})
		if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		db := database.NewDatabaseInstance(sqlDB, logger)
		objectStore = object.NewRepository(db, logger)
		pendingStore = pendingrecord.NewRepository(db, logger)
		auditStore = matchaudit.NewRepository(db, logger)
		runStore = ingestrun.NewRepository(db, logger)
		schemaStore = surveyschema.NewRepository(db, logger)
	}

	index := spatialindex.New()
	entries, err := objectStore.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load object positions: %w", err)
	}
	index.Load(entries)

	schemaService := schema.NewService(schemaStore, logger)
	resolver := matching.NewResolver(index, objectStore, cfg.ParsedSurveyPriorities(), logger, matching.ResolverConfig{
		RadiusArcsec:  cfg.MatchRadiusArcsec,
		MaxCandidates: cfg.MatchMaxCandidates,
	})
	engine := merging.NewEngine(resolver, index, objectStore, pendingStore, auditStore, nil, logger)
	runner := ingest.NewRunner(normalizer.New(schemaService, logger), engine, runStore, logger, ingest.ConfigFromApp(cfg))

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows <-chan map[string]any
	var errs <-chan error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, errs = ingest.ReadCSV(f)
	case ".jsonl", ".ndjson":
		rows, errs = ingest.ReadJSONL(f)
	default:
		return nil, fmt.Errorf("unsupported file extension %q, expected .csv or .jsonl", filepath.Ext(path))
	}

	run, err := runner.Run(ctx, survey, filepath.Base(path), rows)
	if err != nil {
		return nil, err
	}
	if readErr := <-errs; readErr != nil {
		return run, fmt.Errorf("file read failed: %w", readErr)
	}
	return run, nil
}
