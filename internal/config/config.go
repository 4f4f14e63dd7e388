package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the compliance engine
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig holds PostgreSQL configuration for the history repository
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration for the idempotency store and
// watchlist snapshot cache
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SnapshotTTL  time.Duration `mapstructure:"snapshot_ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	TransactionTopic string   `mapstructure:"transaction_topic"`
	VerdictTopic     string   `mapstructure:"verdict_topic"`
	DeadLetterTopic  string   `mapstructure:"dead_letter_topic"`
}

// ScreeningConfig holds sanctions screening configuration
type ScreeningConfig struct {
	// Deadline bounds one whole screening request across all sources.
	Deadline time.Duration `mapstructure:"deadline"`
	// AdapterTimeout bounds each individual source so one slow list
	// cannot starve the decision.
	AdapterTimeout  time.Duration `mapstructure:"adapter_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`

	// Sources maps source list identifiers to their JSON endpoints. The
	// fallback URL, when set, is a consolidated multi-provider tier tried
	// only after every primary source fails.
	Sources     map[string]string `mapstructure:"sources"`
	FallbackURL string            `mapstructure:"fallback_url"`

	// FloorScore discards candidate matches below this combined score.
	FloorScore float64 `mapstructure:"floor_score"`

	// CommonNames get a false-positive score reduction; scores only ever
	// move down, never up, and MAXIMUM matches are never discarded.
	CommonNames        []string `mapstructure:"common_names"`
	CommonNamePenalty  float64  `mapstructure:"common_name_penalty"`
	LargeAmountContext float64  `mapstructure:"large_amount_context"`

	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `mapstructure:"breaker_open_timeout"`
}

// RulesConfig holds AML rule thresholds, explicit per jurisdiction
type RulesConfig struct {
	// Structuring
	ReportingThreshold  float64       `mapstructure:"reporting_threshold"`
	StructuringBand     float64       `mapstructure:"structuring_band"`
	StructuringMinCount int           `mapstructure:"structuring_min_count"`
	StructuringWindow   time.Duration `mapstructure:"structuring_window"`

	// Velocity
	HourlyVelocityCap int `mapstructure:"hourly_velocity_cap"`
	DailyVelocityCap  int `mapstructure:"daily_velocity_cap"`

	// Cumulative thresholds
	DailyCumulativeLimit   float64 `mapstructure:"daily_cumulative_limit"`
	WeeklyCumulativeLimit  float64 `mapstructure:"weekly_cumulative_limit"`
	MonthlyCumulativeLimit float64 `mapstructure:"monthly_cumulative_limit"`

	// Rapid movement
	RapidMovementWindow time.Duration `mapstructure:"rapid_movement_window"`

	// Round amount heuristic
	RoundAmountFloor  float64   `mapstructure:"round_amount_floor"`
	SuspiciousAmounts []float64 `mapstructure:"suspicious_amounts"`

	// Dormant reactivation
	DormantPeriod time.Duration `mapstructure:"dormant_period"`

	// Geographic risk
	HighRiskCountries []string `mapstructure:"high_risk_countries"`

	// LargeAmountThreshold amplifies geographic risk and adds a fixed
	// increment to the aggregate risk score.
	LargeAmountThreshold float64 `mapstructure:"large_amount_threshold"`
	LargeAmountIncrement float64 `mapstructure:"large_amount_increment"`
}

// DecisionConfig holds decision aggregation thresholds
type DecisionConfig struct {
	HighRiskScore       float64       `mapstructure:"high_risk_score"`
	SARFilingScore      float64       `mapstructure:"sar_filing_score"`
	ClearedReviewAfter  time.Duration `mapstructure:"cleared_review_after"`
	FlaggedReviewAfter  time.Duration `mapstructure:"flagged_review_after"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("COMPLIANCE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/compliance-engine")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 1048576) // 1MB

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "compliance_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "30m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.snapshot_ttl", "24h")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "compliance-engine-group")
	v.SetDefault("kafka.transaction_topic", "banking.transactions.created")
	v.SetDefault("kafka.verdict_topic", "banking.compliance.verdicts")
	v.SetDefault("kafka.dead_letter_topic", "banking.compliance.dlq")

	// Screening defaults
	v.SetDefault("screening.deadline", "5s")
	v.SetDefault("screening.adapter_timeout", "2s")
	v.SetDefault("screening.refresh_interval", "24h")
	v.SetDefault("screening.fetch_timeout", "60s")
	v.SetDefault("screening.sources", map[string]string{
		"OFAC_SDN":        "https://sanctions.internal/ofac/sdn.json",
		"EU_CONSOLIDATED": "https://sanctions.internal/eu/consolidated.json",
		"UN_CONSOLIDATED": "https://sanctions.internal/un/consolidated.json",
		"UK_SANCTIONS":    "https://sanctions.internal/uk/sanctions.json",
	})
	v.SetDefault("screening.fallback_url", "https://sanctions.internal/aggregated/all.json")
	v.SetDefault("screening.floor_score", 0.70)
	v.SetDefault("screening.common_names", []string{
		"john smith", "maria garcia", "mohammed ali", "james johnson",
		"wei li", "anna ivanova",
	})
	v.SetDefault("screening.common_name_penalty", 0.05)
	v.SetDefault("screening.large_amount_context", 100000.0)
	v.SetDefault("screening.breaker_failure_threshold", 5)
	v.SetDefault("screening.breaker_open_timeout", "30s")

	// Rule defaults (US BSA baseline, tune per jurisdiction)
	v.SetDefault("rules.reporting_threshold", 10000.0)
	v.SetDefault("rules.structuring_band", 0.95)
	v.SetDefault("rules.structuring_min_count", 2)
	v.SetDefault("rules.structuring_window", "24h")
	v.SetDefault("rules.hourly_velocity_cap", 5)
	v.SetDefault("rules.daily_velocity_cap", 20)
	v.SetDefault("rules.daily_cumulative_limit", 15000.0)
	v.SetDefault("rules.weekly_cumulative_limit", 50000.0)
	v.SetDefault("rules.monthly_cumulative_limit", 150000.0)
	v.SetDefault("rules.rapid_movement_window", "30m")
	v.SetDefault("rules.round_amount_floor", 1000.0)
	v.SetDefault("rules.suspicious_amounts", []float64{9000, 9500, 9900, 49000, 99000})
	v.SetDefault("rules.dormant_period", "2160h") // 90 days
	v.SetDefault("rules.high_risk_countries", []string{
		"IR", "KP", "SY", "CU", "VE", "MM", "BY", "RU",
	})
	v.SetDefault("rules.large_amount_threshold", 10000.0)
	v.SetDefault("rules.large_amount_increment", 0.1)

	// Decision defaults
	v.SetDefault("decision.high_risk_score", 0.7)
	v.SetDefault("decision.sar_filing_score", 0.7)
	v.SetDefault("decision.cleared_review_after", "2160h") // 90 days
	v.SetDefault("decision.flagged_review_after", "720h")  // 30 days

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "compliance-engine")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
}
