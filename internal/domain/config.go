package domain

import (
	"strconv"
	"strings"
	"time"
)

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which cache and event bus back the service
	Tier DeploymentTier `json:"tier"`

	// Ingestion and scoring
	Ingest IngestConfig `json:"ingest"`

	// Component configurations
	Cache    CacheConfig    `json:"cache"`
	EventBus EventBusConfig `json:"eventBus"`

	// Alert worker tenants; empty means all tenants
	AlertTenants []string `json:"alertTenants"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
	MaxUploadMB  int    `json:"maxUploadMb"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	// MaxWorkers bounds parallel per-user scoring.
	MaxWorkers int `json:"maxWorkers"`

	// MemberSince is assigned to users created from uploaded rows.
	MemberSince string `json:"memberSince"`

	// UploadTTL is how long scored uploads stay queryable.
	UploadTTL time.Duration `json:"uploadTtl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	ServiceName string  `json:"serviceName"`
	Endpoint    string  `json:"endpoint"` // OTLP gRPC collector
	SampleRate  float64 `json:"sampleRate"`
}

// DeploymentTier represents the deployment profile.
type DeploymentTier string

const (
	// TierCommunity runs with an in-process LRU cache and channel bus
	TierCommunity DeploymentTier = "community"

	// TierPro runs with Redis and NATS
	TierPro DeploymentTier = "pro"
)

// DefaultMemberSince is the membership date given to ingested users.
const DefaultMemberSince = "2024-01-01"

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			MaxUploadMB:  32,
		},
		Tier: TierCommunity,
		Ingest: IngestConfig{
			MaxWorkers:  8,
			MemberSince: DefaultMemberSince,
			UploadTTL:   24 * time.Hour,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 256,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
			SampleRate:  1.0,
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   64,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// LoadConfig picks the tier from HERON_TIER and applies the remaining overrides.
func LoadConfig(lookup func(string) string) *Config {
	cfg := DefaultConfig()
	if DeploymentTier(lookup("HERON_TIER")) == TierPro {
		cfg = ProConfig()
	}
	cfg.ApplyEnv(lookup)
	return cfg
}

// ApplyEnv overrides settings from HERON_* variables. Unset or malformed
// values leave the current setting untouched.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if v := lookup("HERON_HOST"); v != "" {
		c.Server.Host = v
	}
	if n, ok := positiveInt(lookup("HERON_PORT")); ok {
		c.Server.Port = n
	}
	if v := lookup("HERON_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := lookup("HERON_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := lookup("HERON_NATS_URL"); v != "" {
		c.EventBus.NATSUrl = v
	}
	if v := lookup("HERON_LOG_FORMAT"); v == "json" || v == "text" {
		c.Logging.Format = v
	}
	if lookup("HERON_DEBUG") == "true" {
		c.Logging.Level = "debug"
	}
	if n, ok := positiveInt(lookup("HERON_WORKERS")); ok {
		c.Ingest.MaxWorkers = n
	}
	if n, ok := positiveInt(lookup("HERON_UPLOAD_TTL")); ok {
		c.Ingest.UploadTTL = time.Duration(n) * time.Second
	}
	switch lookup("HERON_TRACING") {
	case "true":
		c.Tracing.Enabled = true
	case "false":
		c.Tracing.Enabled = false
	}
	if v := lookup("HERON_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	if f, err := strconv.ParseFloat(lookup("HERON_TRACE_SAMPLE_RATE"), 64); err == nil && f > 0 && f <= 1 {
		c.Tracing.SampleRate = f
	}
	if v := lookup("HERON_TENANTS"); v != "" {
		c.AlertTenants = c.AlertTenants[:0]
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.AlertTenants = append(c.AlertTenants, t)
			}
		}
	}
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
