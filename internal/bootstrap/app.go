package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/etl"
	"curiosity-sync/internal/jobs"
	"curiosity-sync/internal/queue"
	"curiosity-sync/internal/services/health"
	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/server"
	"curiosity-sync/internal/shared/storage/db"
	"curiosity-sync/internal/triggers"
	"curiosity-sync/internal/workerproc"
)

// App holds shared dependencies for the API server, the worker and the CLI.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     docstore.Store
	Fetcher   etl.Fetcher
	Runner    *etl.Runner
	Jobs      *jobs.Registry
	Queue     queue.Client
	Triggers  *triggers.Handler
	Processor *workerproc.Processor
	Health    *health.Service
}

// Options adjusts Build for the calling binary.
type Options struct {
	// DBOptions is the Postgres pool profile; DB_* settings override it.
	DBOptions db.Options
	// DB replaces the Postgres pool when DOC_STORE=postgres.
	DB *sql.DB
	// Store replaces the configured document store, mainly for tests.
	Store docstore.Store
}

var (
	runMigrations = db.RunMigrations
	newQueue      = queue.NewSQSClient
)

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	registry := jobs.Default()
	overrides, err := jobs.LoadOverrides(cfg.JobsFile)
	if err != nil {
		return nil, err
	}
	if err := overrides.Apply(registry); err != nil {
		return nil, err
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Fetcher: fetcher, Jobs: registry}

	if opts.Store != nil {
		app.Store = opts.Store
	} else if err := buildStore(ctx, cfg, opts, app); err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Queue = queueClient

	app.Runner = etl.NewRunner(fetcher, app.Store, etl.Options{
		FetchTimeout: cfg.FetchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		JobTimeout:   cfg.JobTimeout,
		WritePolicy:  cfg.WriteFailurePolicy,
		PageSize:     cfg.AirtablePageSize,
	})
	app.Triggers = triggers.NewHandler(app.Runner, registry, cfg.CronSecret)
	app.Processor = &workerproc.Processor{Runner: app.Runner, Jobs: registry}

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(app.Store.Kind(), registry.Names(), pinger)

	app.Router = server.NewRouter(server.RouterDeps{
		Triggers:     app.Triggers,
		Health:       app.Health,
		TriggerRPS:   cfg.TriggerRPS,
		TriggerBurst: cfg.TriggerBurst,
	})

	if cfg.CronSecret == "" {
		log.Printf("bootstrap: CRON_SECRET empty; protected sync endpoints will reject every call")
	}
	return app, nil
}

// Close releases the document store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func buildFetcher(cfg config.Config) (etl.Fetcher, error) {
	client, err := airtable.NewClient(airtable.Config{
		APIURL:       cfg.AirtableAPIURL,
		BaseID:       cfg.AirtableBaseID,
		Token:        cfg.AirtablePAT,
		PageSize:     cfg.AirtablePageSize,
		RateLimitRPS: cfg.AirtableRateLimitRPS,
		Timeout:      cfg.FetchTimeout,
	})
	if err == nil {
		return client, nil
	}
	if errors.Is(err, airtable.ErrMissingCredentials) && cfg.IsDevLike() {
		log.Printf("bootstrap: Airtable credentials missing; sync runs will fail until AIRTABLE_BASE_ID and AIRTABLE_PAT are set")
		return unconfiguredFetcher{err: err}, nil
	}
	return nil, err
}

func buildStore(ctx context.Context, cfg config.Config, opts Options, app *App) error {
	switch cfg.DocStore {
	case config.StoreFirestore:
		store, err := docstore.NewFirestoreStore(ctx, docstore.FirestoreConfig{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return err
		}
		app.Store = store
	case config.StorePostgres:
		sqlDB := opts.DB
		if sqlDB == nil {
			profile := opts.DBOptions
			if profile == (db.Options{}) {
				profile = db.ServerOptions()
			}
			opened, err := db.Open(ctx, cfg.DatabaseURL, profile.WithConfig(cfg))
			if err != nil {
				return err
			}
			sqlDB = opened
		}
		if err := runMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
		app.DB = sqlDB
		app.Store = docstore.NewPostgresStore(sqlDB)
	default:
		if !cfg.IsDevLike() {
			log.Printf("bootstrap: DOC_STORE=%s in %s; documents are not persisted", cfg.DocStore, cfg.Env)
		}
		app.Store = docstore.NewMemoryStore()
	}
	return nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	client, err := newQueue(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("sqs client: %w", err)
	}
	return client, nil
}

// unconfiguredFetcher fails every fetch with the credential error so the
// server can still start in dev.
type unconfiguredFetcher struct {
	err error
}

func (f unconfiguredFetcher) ListAll(ctx context.Context, req airtable.ListRequest) ([]airtable.Record, error) {
	return nil, &airtable.FetchError{Op: "list", Table: req.Table, View: req.View, Message: f.err.Error(), Err: f.err}
}
