package bootstrap

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stillwaterhq/datacore/internal/domain"
)

// Config is the resolved runtime configuration for DataCore.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	// MasterKey is the 32-byte root secret every per-user data key is wrapped
	// under. It is accepted from the environment only, never from the config
	// file, and the process refuses to start without it.
	MasterKey   []byte
	TokenSecret string

	KafkaBrokers []string
	BusTopic     string

	ExportDir     string
	ExportLockTTL time.Duration
	ExportTTL     time.Duration

	MaxDBConns int32

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxBackoff   time.Duration

	RevocationFilterCapacity  int64
	RevocationFilterErrorRate float64
	JanitorInterval           time.Duration
	JanitorBatchSize          int

	InvalidationChannel string
	CacheTTL            time.Duration

	IdempotencyTTL time.Duration
	ListLimit      int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		BusTopic     string   `yaml:"bus_topic"`
	} `yaml:"dependencies"`
	Exports struct {
		Dir string `yaml:"dir"`
	} `yaml:"exports"`
	Cache struct {
		InvalidationChannel string `yaml:"invalidation_channel"`
	} `yaml:"cache"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Config{
		ServiceID:                 "DataCore-Service",
		HTTPPort:                  8084,
		GRPCPort:                  9094,
		BusTopic:                  "datacore.events",
		ExportDir:                 "exports",
		ExportLockTTL:             30 * time.Second,
		ExportTTL:                 7 * 24 * time.Hour,
		MaxDBConns:                20,
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
		OutboxClaimTTL:            30 * time.Second,
		OutboxMaxBackoff:          time.Minute,
		RevocationFilterCapacity:  1_000_000,
		RevocationFilterErrorRate: 0.01,
		JanitorInterval:           5 * time.Minute,
		JanitorBatchSize:          1000,
		InvalidationChannel:       "datacore:invalidations",
		CacheTTL:                  time.Minute,
		IdempotencyTTL:            24 * time.Hour,
		ListLimit:                 20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.BusTopic != "" {
			cfg.BusTopic = f.Dependencies.BusTopic
		}
		if f.Exports.Dir != "" {
			cfg.ExportDir = f.Exports.Dir
		}
		if f.Cache.InvalidationChannel != "" {
			cfg.InvalidationChannel = f.Cache.InvalidationChannel
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.TokenSecret = envOrDefault("TOKEN_SECRET", cfg.TokenSecret)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.BusTopic = envOrDefault("BUS_TOPIC", cfg.BusTopic)
	cfg.ExportDir = envOrDefault("EXPORT_DIR", cfg.ExportDir)
	cfg.InvalidationChannel = envOrDefault("INVALIDATION_CHANNEL", cfg.InvalidationChannel)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.JanitorBatchSize = envInt("JANITOR_BATCH_SIZE", cfg.JanitorBatchSize)
	cfg.ListLimit = envInt("LIST_LIMIT", cfg.ListLimit)
	cfg.RevocationFilterCapacity = int64(envInt("REVOCATION_FILTER_CAPACITY", int(cfg.RevocationFilterCapacity)))
	cfg.RevocationFilterErrorRate = envFloat("REVOCATION_FILTER_ERROR_RATE", cfg.RevocationFilterErrorRate)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxBackoff = time.Duration(envInt("OUTBOX_MAX_BACKOFF_SECONDS", int(cfg.OutboxMaxBackoff.Seconds()))) * time.Second
	cfg.ExportLockTTL = time.Duration(envInt("EXPORT_LOCK_TTL_SECONDS", int(cfg.ExportLockTTL.Seconds()))) * time.Second
	cfg.ExportTTL = time.Duration(envInt("EXPORT_TTL_HOURS", int(cfg.ExportTTL.Hours()))) * time.Hour
	cfg.JanitorInterval = time.Duration(envInt("JANITOR_INTERVAL_SECONDS", int(cfg.JanitorInterval.Seconds()))) * time.Second
	cfg.CacheTTL = time.Duration(envInt("CACHE_TTL_SECONDS", int(cfg.CacheTTL.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour

	masterKey, err := decodeMasterKey(os.Getenv("ENCRYPTION_MASTER_KEY"))
	if err != nil {
		return Config{}, err
	}
	cfg.MasterKey = masterKey

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%w: missing DB_URL/POSTGRES_URL", domain.ErrConfiguration)
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("%w: missing REDIS_URL", domain.ErrConfiguration)
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("%w: missing TOKEN_SECRET", domain.ErrConfiguration)
	}

	return cfg, nil
}

// decodeMasterKey enforces the fail-closed startup contract: no key, short
// key, or undecodable key means the process does not come up. The error never
// echoes the provided value.
func decodeMasterKey(encoded string) ([]byte, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, fmt.Errorf("%w: missing ENCRYPTION_MASTER_KEY", domain.ErrConfiguration)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: ENCRYPTION_MASTER_KEY is not valid base64", domain.ErrConfiguration)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: ENCRYPTION_MASTER_KEY must decode to 32 bytes", domain.ErrConfiguration)
	}
	return key, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
