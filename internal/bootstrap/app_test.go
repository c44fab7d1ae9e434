package bootstrap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/queue"
	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/telemetry"
)

func baseConfig() config.Config {
	return config.Config{
		Env:                "dev",
		DocStore:           config.StoreMemory,
		CronSecret:         "s3cret",
		AirtablePageSize:   100,
		WriteFailurePolicy: config.WritePolicyAbort,
	}
}

func serve(t *testing.T, app *App, target string) (int, map[string]any) {
	t.Helper()
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return resp.Code, body
}

func TestBuildDevWithoutCredentials(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	app, err := Build(context.Background(), baseConfig(), Options{})
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "memory", app.Store.Kind())
	assert.Nil(t, app.Queue)

	code, body := serve(t, app, "/api/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", body["store"])

	code, body = serve(t, app, "/api/sync/hooks")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "base id and token are required")
}

func TestBuildRejectsMissingCredentialsInProduction(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	_, err := Build(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestBuildRunsJobsEndToEnd(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"recX","fields":{"Curiosity Slug":"lunar-halos","Title":"Telescope","Commission Rate":"4.5"}}]}`))
	}))
	defer upstream.Close()

	cfg := baseConfig()
	cfg.AirtableAPIURL = upstream.URL
	cfg.AirtableBaseID = "appX"
	cfg.AirtablePAT = "patX.y"
	store := docstore.NewMemoryStore()

	app, err := Build(context.Background(), cfg, Options{Store: store})
	require.NoError(t, err)

	code, body := serve(t, app, "/api/sync/extensions?token=s3cret")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["wrote"])

	doc, ok := store.Get("curiosities_global/lunar-halos/extensions/recX")
	require.True(t, ok)
	assert.Equal(t, 4.5, doc["commissionRate"])

	out, err := app.Processor.HandleMessage(context.Background(), `{"job":"extensions","requestId":"r1","version":1}`)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Written)
}

func TestBuildAppliesJobOverrides(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  hooks:\n    view: Staging_Hooks\n    requireAuth: true\n"), 0o600))

	cfg := baseConfig()
	cfg.JobsFile = path
	app, err := Build(context.Background(), cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Staging_Hooks", app.Jobs.MustLookup("hooks").View)
	code, _ := serve(t, app, "/api/sync/hooks")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func postgresConfig() config.Config {
	cfg := baseConfig()
	cfg.DocStore = config.StorePostgres
	cfg.DatabaseURL = "postgres://documents"
	return cfg
}

func TestBuildPostgresMigratesInjectedPool(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[{"id":"recB","fields":{"City":"Austin","Title":"Free Yoga"}}]}`))
	}))
	defer upstream.Close()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	var migrated *sql.DB
	prev := runMigrations
	runMigrations = func(ctx context.Context, database *sql.DB) error {
		migrated = database
		return nil
	}
	defer func() { runMigrations = prev }()

	cfg := postgresConfig()
	cfg.AirtableAPIURL = upstream.URL
	cfg.AirtableBaseID = "appPG"
	cfg.AirtablePAT = "patPG.x"

	app, err := Build(context.Background(), cfg, Options{DB: sqlDB})
	require.NoError(t, err)
	assert.Same(t, sqlDB, migrated)
	assert.Same(t, sqlDB, app.DB)
	assert.Equal(t, "postgres", app.Store.Kind())

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("cities/Austin/local_hooks", "free-yoga", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectClose()

	res := app.Runner.Run(context.Background(), app.Jobs.MustLookup("hooks"))
	require.True(t, res.OK, res.Error)
	assert.Equal(t, 1, res.Written)

	require.NoError(t, app.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildClosesPoolWhenMigrationsFail(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	prev := runMigrations
	runMigrations = func(ctx context.Context, database *sql.DB) error {
		return errors.New("goose: dirty database")
	}
	defer func() { runMigrations = prev }()

	_, err = Build(context.Background(), postgresConfig(), Options{DB: sqlDB})
	assert.ErrorContains(t, err, "run migrations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildClosesStoreWhenQueueFails(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	prevMigrate, prevQueue := runMigrations, newQueue
	runMigrations = func(ctx context.Context, database *sql.DB) error { return nil }
	newQueue = func(ctx context.Context, queueURL, region string) (*queue.SQSClient, error) {
		return nil, errors.New("no credentials")
	}
	defer func() { runMigrations, newQueue = prevMigrate, prevQueue }()

	cfg := postgresConfig()
	cfg.SQSQueueURL = "https://sqs.us-east-1.amazonaws.com/123/sync"
	_, err = Build(context.Background(), cfg, Options{DB: sqlDB})
	assert.ErrorContains(t, err, "sqs client")
	assert.NoError(t, mock.ExpectationsWereMet())
}
