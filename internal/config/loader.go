package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "finch.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FINCH_PORT")
	setString(&cfg.Server.CORSOrigin, "FINCH_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FINCH_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FINCH_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FINCH_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FINCH_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FINCH_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LLM.URL, "FINCH_LLM_URL")
	setString(&cfg.LLM.APIKey, "FINCH_LLM_API_KEY")
	setString(&cfg.LLM.Model, "FINCH_LLM_MODEL")
	setString(&cfg.LLM.MiniModel, "FINCH_LLM_MINI_MODEL")
	setDuration(&cfg.LLM.Timeout, "FINCH_LLM_TIMEOUT")
	setString(&cfg.Logging.Level, "FINCH_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FINCH_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "FINCH_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FINCH_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "FINCH_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.KnowledgeTTL, "FINCH_CACHE_KNOWLEDGE_TTL")
	setString(&cfg.Catalogs.Overrides, "FINCH_OVERRIDES_PATH")
	setString(&cfg.Catalogs.Topics, "FINCH_TOPICS_PATH")
	setString(&cfg.Webhook.Secret, "FINCH_WEBHOOK_SECRET")
	setFloat64(&cfg.Orchestrator.ConfidenceThreshold, "FINCH_CONFIDENCE_THRESHOLD")
	setInt(&cfg.Orchestrator.MaxConcerns, "FINCH_MAX_CONCERNS")
	setFloat64(&cfg.Orchestrator.HighPriorityThreshold, "FINCH_HIGH_PRIORITY_THRESHOLD")
	setInt(&cfg.Orchestrator.HighPriorityConcerns, "FINCH_HIGH_PRIORITY_CONCERNS")
	setFloat64(&cfg.Orchestrator.MediumThreshold, "FINCH_MEDIUM_THRESHOLD")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Orchestrator.ConfidenceThreshold <= 0 || cfg.Orchestrator.ConfidenceThreshold > 1 {
		return errors.New("orchestrator.confidence_threshold must be in (0, 1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
