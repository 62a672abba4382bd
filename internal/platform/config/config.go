package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "idregistry/pkg/platform/strings"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Forwarder modes.
const (
	ForwarderHeader = "header"
	ForwarderJWT    = "jwt"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server       Server
	Registry     Registry
	Store        Store
	Postgres     PostgresConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Forwarder    ForwarderConfig
	Registration RegistrationConfig
	Log          LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Registry identifies the registry this process administers and the identities
// it is bootstrapped with. Bootstrap values are ignored when the registry
// already exists.
type Registry struct {
	ID            string
	Owner         string
	TrustedCaller string
}

type Store struct {
	Backend string
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	TxTimeout    time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the notification stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ForwarderConfig selects how the caller identity is resolved from a request.
type ForwarderConfig struct {
	Mode       string
	Header     string
	SigningKey string
	Issuer     string
	Audience   string
}

type RegistrationConfig struct {
	UpstreamURL string
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getEnv("REGISTRY_ADDR", ":8080"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Registry: Registry{
			ID:            getEnv("REGISTRY_ID", "main"),
			Owner:         os.Getenv("REGISTRY_OWNER"),
			TrustedCaller: os.Getenv("REGISTRY_TRUSTED_CALLER"),
		},
		Store: Store{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 10),
			TxTimeout:    getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:             getEnv("KAFKA_TOPIC", "registry.notifications"),
			Partitions:        int32(getInt("KAFKA_PARTITIONS", 1)),
			ReplicationFactor: int16(getInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Forwarder: ForwarderConfig{
			Mode:       strings.ToLower(getEnv("FORWARDER_MODE", ForwarderHeader)),
			Header:     getEnv("FORWARDER_HEADER", "X-Forwarded-Caller"),
			SigningKey: os.Getenv("FORWARDER_SIGNING_KEY"),
			Issuer:     getEnv("FORWARDER_ISSUER", "trusted-forwarder"),
			Audience:   getEnv("FORWARDER_AUDIENCE", "idregistry"),
		},
		Registration: RegistrationConfig{
			UpstreamURL: os.Getenv("REGISTRATION_UPSTREAM_URL"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Registry.ID == "" {
		errs = append(errs, errors.New("REGISTRY_ID is required"))
	}
	if c.Registry.Owner == "" {
		errs = append(errs, errors.New("REGISTRY_OWNER is required"))
	}
	if c.Registry.TrustedCaller == "" {
		errs = append(errs, errors.New("REGISTRY_TRUSTED_CALLER is required"))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	switch c.Forwarder.Mode {
	case ForwarderHeader:
		if c.Forwarder.Header == "" {
			errs = append(errs, errors.New("FORWARDER_HEADER is required in header mode"))
		}
	case ForwarderJWT:
		if len(c.Forwarder.SigningKey) < 32 {
			errs = append(errs, errors.New("FORWARDER_SIGNING_KEY must be at least 32 bytes in jwt mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FORWARDER_MODE %q", c.Forwarder.Mode))
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
