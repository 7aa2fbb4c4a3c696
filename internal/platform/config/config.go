// Package config reads runtime settings from the environment (and optionally a
// YAML file) through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pstrings "studentreg/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	AdminToken      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig selects the shared form store. An empty URL keeps forms in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig backs the admin roster. An empty DSN disables it.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig backs the audit sink. No brokers means audit stays in memory.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	EnsureTopic       bool
	Partitions        int32
	ReplicationFactor int16
}

// GatewayConfig points at the downstream signup endpoint. An empty URL selects
// the in-process mock gateway.
type GatewayConfig struct {
	URL         string
	Timeout     time.Duration
	MockLatency time.Duration
}

// RosterConfig controls where the admin board loads students from.
type RosterConfig struct {
	SourceURL      string
	CacheTTL       time.Duration
	SubmitDuration time.Duration
}

// RateLimitConfig caps form creation and submission per client IP.
type RateLimitConfig struct {
	Enabled        bool
	CreateRequests int
	SubmitRequests int
	Window         time.Duration
}

// TracingConfig enables OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	OTLPEndpoint string
	SampleRate   float64
	ServiceName  string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string
	Level  string
}

// Config is the full service configuration.
type Config struct {
	Server      Server
	Redis       RedisConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Gateway     GatewayConfig
	Roster      RosterConfig
	RateLimit   RateLimitConfig
	Tracing     TracingConfig
	Log         LogConfig
	CatalogPath string
	FormTTL     time.Duration
	SweepEvery  time.Duration
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("admin_token", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 2)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)

	v.SetDefault("database_url", "")
	v.SetDefault("database_max_open_conns", 10)
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("database_conn_max_lifetime", 30*time.Minute)

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("audit_topic", "studentreg.audit")
	v.SetDefault("audit_topic_ensure", true)
	v.SetDefault("audit_topic_partitions", 1)
	v.SetDefault("audit_topic_replication", 1)

	v.SetDefault("gateway_url", "")
	v.SetDefault("gateway_timeout", 15*time.Second)
	v.SetDefault("gateway_mock_latency", 0)

	v.SetDefault("roster_source_url", "")
	v.SetDefault("roster_cache_ttl", 5*time.Minute)
	v.SetDefault("roster_submit_duration", 1500*time.Millisecond)

	v.SetDefault("ratelimit_enabled", true)
	v.SetDefault("ratelimit_create_requests", 30)
	v.SetDefault("ratelimit_submit_requests", 10)
	v.SetDefault("ratelimit_window", time.Minute)

	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_exporter", "stdout")
	v.SetDefault("otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing_sample_rate", 1.0)
	v.SetDefault("tracing_service_name", "studentreg")

	v.SetDefault("log_format", "json")
	v.SetDefault("log_level", "info")

	v.SetDefault("catalog_path", "")
	v.SetDefault("form_ttl", 30*time.Minute)
	v.SetDefault("form_sweep_interval", time.Minute)
}

// New returns a viper instance wired to the environment with defaults set.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return Load(New())
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            v.GetString("addr"),
			AdminToken:      v.GetString("admin_token"),
			RequestTimeout:  v.GetDuration("request_timeout"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis_url"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
		},
		Postgres: PostgresConfig{
			DSN:             v.GetString("database_url"),
			MaxOpenConns:    v.GetInt("database_max_open_conns"),
			MaxIdleConns:    v.GetInt("database_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database_conn_max_lifetime"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(v.GetString("kafka_brokers")),
			Topic:             v.GetString("audit_topic"),
			EnsureTopic:       v.GetBool("audit_topic_ensure"),
			Partitions:        v.GetInt32("audit_topic_partitions"),
			ReplicationFactor: int16(v.GetInt("audit_topic_replication")),
		},
		Gateway: GatewayConfig{
			URL:         strings.TrimRight(v.GetString("gateway_url"), "/"),
			Timeout:     v.GetDuration("gateway_timeout"),
			MockLatency: v.GetDuration("gateway_mock_latency"),
		},
		Roster: RosterConfig{
			SourceURL:      v.GetString("roster_source_url"),
			CacheTTL:       v.GetDuration("roster_cache_ttl"),
			SubmitDuration: v.GetDuration("roster_submit_duration"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        v.GetBool("ratelimit_enabled"),
			CreateRequests: v.GetInt("ratelimit_create_requests"),
			SubmitRequests: v.GetInt("ratelimit_submit_requests"),
			Window:         v.GetDuration("ratelimit_window"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("tracing_enabled"),
			Exporter:     v.GetString("tracing_exporter"),
			OTLPEndpoint: v.GetString("otlp_endpoint"),
			SampleRate:   v.GetFloat64("tracing_sample_rate"),
			ServiceName:  v.GetString("tracing_service_name"),
		},
		Log: LogConfig{
			Format: strings.ToLower(v.GetString("log_format")),
			Level:  strings.ToLower(v.GetString("log_level")),
		},
		CatalogPath: v.GetString("catalog_path"),
		FormTTL:     v.GetDuration("form_ttl"),
		SweepEvery:  v.GetDuration("form_sweep_interval"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.FormTTL <= 0 {
		return fmt.Errorf("form_ttl must be positive, got %s", c.FormTTL)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway_timeout must be positive, got %s", c.Gateway.Timeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit_window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing_sample_rate must be between 0.0 and 1.0, got %v", c.Tracing.SampleRate)
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing_exporter must be \"none\", \"stdout\" or \"otlp\", got %q", c.Tracing.Exporter)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be \"json\" or \"text\", got %q", c.Log.Format)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("audit_topic must be set when kafka_brokers is configured")
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(raw, ","))
}
