package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Document store kinds accepted by DOC_STORE.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Write failure policies accepted by SYNC_WRITE_FAILURE_POLICY.
const (
	WritePolicyAbort    = "abort"
	WritePolicyContinue = "continue"
)

// Config holds application configuration.
type Config struct {
	Port string
	Env  string

	AirtableBaseID       string
	AirtablePAT          string
	AirtableAPIURL       string
	AirtablePageSize     int
	AirtableRateLimitRPS float64

	CronSecret string

	DocStore              string
	FirestoreProjectID    string
	GoogleCredentialsFile string
	DatabaseURL           string

	// Zero pool settings keep the calling binary's defaults.
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration

	FetchTimeout       time.Duration
	WriteTimeout       time.Duration
	JobTimeout         time.Duration
	WriteFailurePolicy string
	JobsFile           string

	TriggerRPS   float64
	TriggerBurst int

	SQSQueueURL          string
	AWSRegion            string
	SQSVisibilityTimeout time.Duration
	WorkerConcurrency    int
	ShutdownTimeout      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", ".env.local")

	env := normalizeEnv(getEnv("ENV", "dev"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   env,
		AirtableBaseID:        strings.TrimSpace(os.Getenv("AIRTABLE_BASE_ID")),
		AirtablePAT:           strings.TrimSpace(os.Getenv("AIRTABLE_PAT")),
		AirtableAPIURL:        strings.TrimRight(getEnv("AIRTABLE_API_URL", "https://api.airtable.com/v0"), "/"),
		AirtablePageSize:      clampPageSize(getEnvInt("AIRTABLE_PAGE_SIZE", 100)),
		AirtableRateLimitRPS:  getEnvFloat("AIRTABLE_RATE_LIMIT_RPS", 5),
		CronSecret:            os.Getenv("CRON_SECRET"),
		DocStore:              normalizeStore(getEnv("DOC_STORE", ""), env),
		FirestoreProjectID:    getEnv("FIRESTORE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:        getEnvInt("DB_MAX_IDLE_CONNS", 0),
		DBConnMaxLifetime:     getEnvDuration("DB_CONN_MAX_LIFETIME", 0),
		DBConnMaxIdleTime:     getEnvDuration("DB_CONN_MAX_IDLE_TIME", 0),
		DBPingTimeout:         getEnvDuration("DB_PING_TIMEOUT", 0),
		FetchTimeout:          getEnvDuration("SYNC_FETCH_TIMEOUT", 30*time.Second),
		WriteTimeout:          getEnvDuration("SYNC_WRITE_TIMEOUT", 10*time.Second),
		JobTimeout:            getEnvDuration("SYNC_JOB_TIMEOUT", 5*time.Minute),
		WriteFailurePolicy:    normalizeWritePolicy(getEnv("SYNC_WRITE_FAILURE_POLICY", WritePolicyAbort)),
		JobsFile:              getEnv("SYNC_JOBS_FILE", ""),
		TriggerRPS:            getEnvFloat("SYNC_TRIGGER_RPS", 1),
		TriggerBurst:          getEnvInt("SYNC_TRIGGER_BURST", 5),
		SQSQueueURL:           strings.TrimSpace(os.Getenv("SYNC_SQS_QUEUE_URL")),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		SQSVisibilityTimeout:  getEnvSeconds("SYNC_SQS_VISIBILITY_TIMEOUT_SECONDS", 900*time.Second),
		WorkerConcurrency:     max(1, getEnvInt("SYNC_WORKER_CONCURRENCY", 2)),
		ShutdownTimeout:       getEnvSeconds("SYNC_SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("config: %v", err)
	}
	return cfg
}

// Validate reports settings the sync jobs cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.AirtableBaseID == "" {
		errs = append(errs, errors.New("AIRTABLE_BASE_ID is required"))
	}
	if c.AirtablePAT == "" {
		errs = append(errs, errors.New("AIRTABLE_PAT is required"))
	}
	switch c.DocStore {
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DOC_STORE=postgres"))
		}
	case StoreFirestore:
		if strings.TrimSpace(c.FirestoreProjectID) == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT_ID is required when DOC_STORE=firestore"))
		}
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether the environment tolerates missing credentials.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	secs := getEnvInt(key, -1)
	if secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func clampPageSize(n int) int {
	if n <= 0 || n > 100 {
		return 100
	}
	return n
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStore(raw, env string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "firestore":
		return StoreFirestore
	case "postgres", "pg":
		return StorePostgres
	case "memory":
		return StoreMemory
	}
	if env == "dev" || env == "local" {
		return StoreMemory
	}
	return StoreFirestore
}

func normalizeWritePolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "continue":
		return WritePolicyContinue
	default:
		return WritePolicyAbort
	}
}
