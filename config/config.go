package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"thistle-api"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
	ShutdownTimeoutSeconds        int      `env:"SHUTDOWN_TIMEOUT_SECONDS" env-default:"15"`

	// Store driver: "memory" or "postgres"
	StoreDriver string `env:"STORE_DRIVER" env-default:"postgres"`

	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"thistle"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Redis backs the cross-process subject locks. Disabled means an in-process lock.
	RedisEnabled   bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost      string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int           `env:"REDIS_DB" env-default:"0"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" env-default:"thistle:"`
	LockTTL        time.Duration `env:"LOCK_TTL" env-default:"30s"`
	LockWait       time.Duration `env:"LOCK_WAIT" env-default:"10s"`

	// Kafka receives one audit event per committed mutation
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaAuditTopic   string   `env:"KAFKA_AUDIT_TOPIC" env-default:"linking-audit"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	EventAttempts     int      `env:"EVENT_PUBLISH_ATTEMPTS" env-default:"3"`

	// Neo4j receives the graph projection of committed mutations
	GraphEnabled  bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphHost     string `env:"NEO4J_HOST" env-default:"localhost"`
	GraphPort     int    `env:"NEO4J_PORT" env-default:"7687"`
	GraphUsername string `env:"NEO4J_USERNAME" env-default:"neo4j"`
	GraphPassword string `env:"NEO4J_PASSWORD" env-default:""`
	GraphDatabase string `env:"NEO4J_DATABASE" env-default:"neo4j"`

	TracingExporter string        `env:"TRACING_EXPORTER" env-default:"none"`
	TracingProtocol string        `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingEndpoint string        `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingInsecure bool          `env:"TRACING_INSECURE" env-default:"true"`
	TracingTimeout  time.Duration `env:"TRACING_TIMEOUT" env-default:"5s"`

	// Hints applied when a request does not carry its own
	DefaultRegion string `env:"DEFAULT_REGION" env-default:""`
	DateOrder     string `env:"DATE_ORDER" env-default:""`
	CurrencyHint  string `env:"CURRENCY_HINT" env-default:""`

	MatchThreshold        float64       `env:"MATCH_THRESHOLD" env-default:"0"`
	FuzzyCandidateLimit   int           `env:"FUZZY_CANDIDATE_LIMIT" env-default:"500"`
	MatchTierTimeout      time.Duration `env:"MATCH_TIER_TIMEOUT" env-default:"2s"`
	SuggestionConcurrency int           `env:"SUGGESTION_CONCURRENCY" env-default:"8"`
	AutoLinkMinScore      float64       `env:"AUTOLINK_MIN_SCORE" env-default:"7"`
	AutoLinkScanLimit     int           `env:"AUTOLINK_SCAN_LIMIT" env-default:"5000"`
	DefaultLinkConfidence float64       `env:"DEFAULT_LINK_CONFIDENCE" env-default:"0.8"`
	ObserverTimeout       time.Duration `env:"OBSERVER_TIMEOUT" env-default:"5s"`
}

// Load reads an optional .env file then binds the environment
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to bind environment")
	}
	if cfg.StoreDriver != "memory" && cfg.StoreDriver != "postgres" {
		return nil, errors.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}
