// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	LogLevel      string
	LogFormat     string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	VerificationTokenTTL time.Duration
	ContestCacheSize     int
	Canton               CantonDefaults
}

// RedisConfig configures the projection and verification token stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay and consumers. Empty Brokers keeps
// the event pipeline in process.
type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
	AuditTopic  string
	// DeadLetterTopic receives records a consumer could not handle. Empty
	// stops the consumer on such a record instead.
	DeadLetterTopic string
	Group           string
	Partitions      int32
}

// CantonDefaults are the policy toggles applied when a contest carries no
// canton settings of its own.
type CantonDefaults struct {
	PublishResultsBeforeAuditedTentatively bool
	EnforceDetailedEntry                   bool
}

// InMemory reports whether no database is configured.
func (s Server) InMemory() bool {
	return s.DatabaseURL == ""
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:          getEnv("VOTUM_ADDR", ":8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "votum"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic:     getEnv("KAFKA_EVENTS_TOPIC", "votum.events"),
			AuditTopic:      getEnv("KAFKA_AUDIT_TOPIC", "votum.audit"),
			DeadLetterTopic: os.Getenv("KAFKA_DEAD_LETTER_TOPIC"),
			Group:           getEnv("KAFKA_GROUP", "votum-projector"),
			Partitions:      int32(getInt("KAFKA_PARTITIONS", 6)),
		},
		VerificationTokenTTL: getDuration("VERIFICATION_TOKEN_TTL", 10*time.Minute),
		ContestCacheSize:     getInt("CONTEST_CACHE_SIZE", 256),
		Canton: CantonDefaults{
			PublishResultsBeforeAuditedTentatively: os.Getenv("PUBLISH_BEFORE_AUDITED_TENTATIVELY") == "true",
			EnforceDetailedEntry:                   os.Getenv("ENFORCE_DETAILED_ENTRY") == "true",
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
