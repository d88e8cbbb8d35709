package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	Storage            string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	AuditRequestsTopic string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	FixturesPath       string

	FetchTimeout       time.Duration
	NearFutureWindow   time.Duration
	AuditConcurrency   int
	AuditWindowBack    int
	AuditWindowForward int
	AuditCron          string
	ReportDir          string
	HoldLockTTL        time.Duration
	RegenerateMonths   int
	MaxStayNights      int

	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3UseSSL     bool
	S3ReportsDir string
}

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		Storage:            strings.ToLower(getEnv("STORAGE", StorageMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "staycal"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "staycal-auditor"),
		AuditRequestsTopic: getEnv("AUDIT_REQUESTS_TOPIC", "audit.requests.v1"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		FixturesPath:       os.Getenv("PROPERTY_FIXTURES"),
		AuditCron:          getEnv("AUDIT_CRON", "0 3 * * *"),
		ReportDir:          os.Getenv("AUDIT_REPORT_DIR"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "staycal-audits"),
		S3ReportsDir:       getEnv("S3_REPORTS_PREFIX", "reports"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"CALENDAR_FETCH_TIMEOUT", 5 * time.Second, &cfg.FetchTimeout},
		{"AUDIT_NEAR_FUTURE_WINDOW", 30 * 24 * time.Hour, &cfg.NearFutureWindow},
		{"HOLD_LOCK_TTL", 15 * time.Second, &cfg.HoldLockTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"AUDIT_CONCURRENCY", 4, &cfg.AuditConcurrency},
		{"AUDIT_WINDOW_BACK", 6, &cfg.AuditWindowBack},
		{"AUDIT_WINDOW_FORWARD", 6, &cfg.AuditWindowForward},
		{"REGENERATE_MONTHS", 12, &cfg.RegenerateMonths},
		{"MAX_STAY_NIGHTS", 365, &cfg.MaxStayNights},
	}
	for _, i := range ints {
		if *i.dst, err = parseIntEnv(i.key, i.def); err != nil {
			return Config{}, err
		}
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL

	switch cfg.Storage {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE %q: want memory or mongo", cfg.Storage)
	}
	if cfg.AuditConcurrency < 1 {
		return Config{}, fmt.Errorf("AUDIT_CONCURRENCY must be positive")
	}
	if cfg.AuditWindowBack < 0 || cfg.AuditWindowForward < 0 {
		return Config{}, fmt.Errorf("audit window bounds must not be negative")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
