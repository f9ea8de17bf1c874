// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the lead lock backend, Kafka wiring, matching-engine
// tunables, rate limiting and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Lead lock backends.
const (
	LockMemory   = "memory"
	LockPostgres = "postgres"
	LockRedis    = "redis"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "lead-dispatch")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and locates the relational store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	URL    string // Postgres DSN
}

// LockConfig selects the backend guarding per-lead allocation.
type LockConfig struct {
	Backend       string        // memory|postgres|redis
	RedisAddr     string        // host:port
	RedisPassword string
	RedisDB       int           // logical database
	TTL           time.Duration // redis key lifetime
	Wait          time.Duration // max time to wait for the lock
}

// KafkaConfig wires the event publisher and the lead intake consumer.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	AssignmentTopic string
	LeadTopic       string // empty disables the consumer
	ConsumerGroup   string
}

// EngineConfig holds allocation engine tunables that are not part of the
// persisted matching configuration.
type EngineConfig struct {
	ConfigCacheTTL      time.Duration // 0 disables caching
	MergeMaxDepth       int
	ReserveRetries      int
	ExpirySweepInterval time.Duration // 0 disables the sweeper
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB     DBConfig
	Lock   LockConfig
	Kafka  KafkaConfig
	Engine EngineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:   getenv("DB_PATH", "dispatch.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		Lock: LockConfig{
			Backend:       strings.ToLower(getenv("LOCK_BACKEND", LockMemory)),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			TTL:           getdur("LOCK_TTL", 30*time.Second),
			Wait:          getdur("LOCK_WAIT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         getbool("KAFKA_ENABLED", false),
			Brokers:         splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			AssignmentTopic: getenv("KAFKA_ASSIGNMENT_TOPIC", "lead-assignments"),
			LeadTopic:       getenv("KAFKA_LEAD_TOPIC", "leads"),
			ConsumerGroup:   getenv("KAFKA_CONSUMER_GROUP", "lead-dispatch"),
		},
		Engine: EngineConfig{
			ConfigCacheTTL:      getdur("CONFIG_CACHE_TTL", 30*time.Second),
			MergeMaxDepth:       getint("MERGE_MAX_DEPTH", 10),
			ReserveRetries:      getint("RESERVE_RETRIES", 3),
			ExpirySweepInterval: getdur("EXPIRY_SWEEP_INTERVAL", 0),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "lead-dispatch"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = DriverPostgres
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.Lock.Backend {
	case LockMemory:
	case LockPostgres:
		if cfg.DB.Driver != DriverPostgres {
			return cfg, errors.New("LOCK_BACKEND=postgres requires DB_DRIVER=postgres")
		}
	case LockRedis:
		if strings.TrimSpace(cfg.Lock.RedisAddr) == "" {
			return cfg, errors.New("REDIS_ADDR must not be empty when LOCK_BACKEND=redis")
		}
	default:
		return cfg, errors.New("LOCK_BACKEND must be one of: memory, postgres, redis")
	}
	if cfg.Lock.TTL <= 0 || cfg.Lock.Wait <= 0 {
		return cfg, errors.New("LOCK_TTL and LOCK_WAIT must be positive durations")
	}
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return cfg, errors.New("KAFKA_BROKERS must not be empty when KAFKA_ENABLED")
		}
		if strings.TrimSpace(cfg.Kafka.AssignmentTopic) == "" {
			return cfg, errors.New("KAFKA_ASSIGNMENT_TOPIC must not be empty when KAFKA_ENABLED")
		}
	}
	if cfg.Engine.ConfigCacheTTL < 0 {
		return cfg, errors.New("CONFIG_CACHE_TTL must be >= 0")
	}
	if cfg.Engine.MergeMaxDepth < 1 {
		return cfg, errors.New("MERGE_MAX_DEPTH must be >= 1")
	}
	if cfg.Engine.ReserveRetries < 0 {
		return cfg, errors.New("RESERVE_RETRIES must be >= 0")
	}
	if cfg.Engine.ExpirySweepInterval < 0 {
		return cfg, errors.New("EXPIRY_SWEEP_INTERVAL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
