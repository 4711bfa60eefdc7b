package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Platform  PlatformConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string `validate:"oneof=postgres sqlite"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
	AutoMigrate     bool   // create tables from models on startup (sqlite/local only)
	MaxOpenConns    int    `validate:"gt=0"`
	MaxIdleConns    int    `validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string `validate:"oneof=debug info warn warning error fatal"`
	Format    string `validate:"oneof=json console"`
	Output    string // stdout, stderr, or file path
	GormLevel string // silent, error, warn, info
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// PlatformConfig holds the external storefront API settings.
// URL and credentials come from PLATFORM_URL, CONSUMER_KEY and CONSUMER_SECRET.
type PlatformConfig struct {
	URL            string        `validate:"required,url"`
	ConsumerKey    string        `validate:"required"`
	ConsumerSecret string        `validate:"required"`
	APIPath        string        `validate:"required,startswith=/"`
	Timeout        time.Duration `validate:"gt=0"`
	RateLimit      float64       `validate:"gt=0"` // requests per second
	RateBurst      int           `validate:"gt=0"`
	UserAgent      string
}

// SyncConfig holds sync run settings
type SyncConfig struct {
	RunTimeout         time.Duration `validate:"gt=0"`
	LockBackend        string        `validate:"oneof=database redis"`
	LockTTL            time.Duration `validate:"gt=0"`
	PageSize           int           `validate:"gt=0,lte=100"`
	MaxOrderPages      int           `validate:"gt=0"`
	OrderMatchKeys     []string      `validate:"min=1,dive,oneof=id_number phone email"`
	IDNumberMetaKey    string
	CountryCallingCode string   `validate:"required,numeric"`
	Phases             []string `validate:"dive,oneof=categories products orders inventory"`
	// ScheduleInterval runs a sync from the server process on this interval; 0 disables it
	ScheduleInterval time.Duration `validate:"gte=0"`
	RetryAttempts    int           `validate:"gte=0,lte=10"`
	RetryDelay       time.Duration `validate:"gte=0"`
}

// PhaseEnabled reports whether the named phase should run. An empty list enables all phases.
func (s SyncConfig) PhaseEnabled(name string) bool {
	if len(s.Phases) == 0 {
		return true
	}
	for _, p := range s.Phases {
		if p == name {
			return true
		}
	}
	return false
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// Platform credentials are read from these unprefixed variables
const (
	EnvPlatformURL    = "PLATFORM_URL"
	EnvConsumerKey    = "CONSUMER_KEY"
	EnvConsumerSecret = "CONSUMER_SECRET"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRM_ prefix (e.g., CRM_DATABASE_PASSWORD),
// plus PLATFORM_URL / CONSUMER_KEY / CONSUMER_SECRET
// 2. config.toml
// 3. Built-in defaults
//
// Platform credentials are not checked here; commands that talk to the
// platform call RequirePlatform.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/crm-sync")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sync.retry_attempts", 2)

	// BindEnv with explicit names bypasses the prefix
	_ = v.BindEnv("platform.url", EnvPlatformURL, "CRM_PLATFORM_URL")
	_ = v.BindEnv("platform.consumer_key", EnvConsumerKey, "CRM_PLATFORM_CONSUMER_KEY")
	_ = v.BindEnv("platform.consumer_secret", EnvConsumerSecret, "CRM_PLATFORM_CONSUMER_SECRET")

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:     v.GetString("log.level"),
			Format:    v.GetString("log.format"),
			Output:    v.GetString("log.output"),
			GormLevel: v.GetString("log.gorm_level"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
		},
		Platform: PlatformConfig{
			URL:            v.GetString("platform.url"),
			ConsumerKey:    v.GetString("platform.consumer_key"),
			ConsumerSecret: v.GetString("platform.consumer_secret"),
			APIPath:        v.GetString("platform.api_path"),
			Timeout:        v.GetDuration("platform.timeout"),
			RateLimit:      v.GetFloat64("platform.rate_limit"),
			RateBurst:      v.GetInt("platform.rate_burst"),
			UserAgent:      v.GetString("platform.user_agent"),
		},
		Sync: SyncConfig{
			RunTimeout:         v.GetDuration("sync.run_timeout"),
			LockBackend:        v.GetString("sync.lock_backend"),
			LockTTL:            v.GetDuration("sync.lock_ttl"),
			PageSize:           v.GetInt("sync.page_size"),
			MaxOrderPages:      v.GetInt("sync.max_order_pages"),
			OrderMatchKeys:     splitList(v.GetStringSlice("sync.order_match_keys")),
			IDNumberMetaKey:    v.GetString("sync.id_number_meta_key"),
			CountryCallingCode: v.GetString("sync.country_calling_code"),
			Phases:             splitList(v.GetStringSlice("sync.phases")),
			ScheduleInterval:   v.GetDuration("sync.schedule_interval"),
			RetryAttempts:      v.GetInt("sync.retry_attempts"),
			RetryDelay:         v.GetDuration("sync.retry_delay"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList accepts both TOML arrays and comma separated env values
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crm-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "crm"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "crm.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.GormLevel == "" {
		cfg.Log.GormLevel = "warn"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// manual runs answer only after the run finishes
		cfg.HTTP.WriteTimeout = 35 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Platform.APIPath == "" {
		cfg.Platform.APIPath = "/wp-json/wc/v3"
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30 * time.Second
	}
	if cfg.Platform.RateLimit == 0 {
		cfg.Platform.RateLimit = 5
	}
	if cfg.Platform.RateBurst == 0 {
		cfg.Platform.RateBurst = 5
	}
	if cfg.Platform.UserAgent == "" {
		cfg.Platform.UserAgent = "crm-sync/1.0"
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 30 * time.Minute
	}
	if cfg.Sync.LockBackend == "" {
		cfg.Sync.LockBackend = "database"
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = cfg.Sync.RunTimeout + 5*time.Minute
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.MaxOrderPages == 0 {
		cfg.Sync.MaxOrderPages = 20
	}
	if len(cfg.Sync.OrderMatchKeys) == 0 {
		cfg.Sync.OrderMatchKeys = []string{"email"}
	}
	if cfg.Sync.IDNumberMetaKey == "" {
		cfg.Sync.IDNumberMetaKey = "_billing_id_number"
	}
	if cfg.Sync.CountryCallingCode == "" {
		cfg.Sync.CountryCallingCode = "57"
	}
	if cfg.Sync.RetryDelay == 0 {
		cfg.Sync.RetryDelay = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

var validate = validator.New()

// validate performs validation on everything except the platform section
func (c *Config) validate() error {
	for name, section := range map[string]any{
		"database":  &c.Database,
		"log":       &c.Log,
		"sync":      &c.Sync,
		"telemetry": &c.Telemetry,
	} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}

	if c.Sync.LockTTL < c.Sync.RunTimeout {
		return fmt.Errorf("%w: sync.lock_ttl (%s) must not be shorter than sync.run_timeout (%s)",
			ErrInvalidConfig, c.Sync.LockTTL, c.Sync.RunTimeout)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("%w: database.password is required in production", ErrInvalidConfig)
		}
	}

	return nil
}

// RequirePlatform validates the platform section. It fails fast when the
// storefront URL or credentials are missing.
func (c *Config) RequirePlatform() error {
	if err := validate.Struct(&c.Platform); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, platformEnvName(fe.Field()))
			}
			return fmt.Errorf("%w: missing or invalid %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: platform: %v", ErrInvalidConfig, err)
	}
	return nil
}

func platformEnvName(field string) string {
	switch field {
	case "URL":
		return EnvPlatformURL
	case "ConsumerKey":
		return EnvConsumerKey
	case "ConsumerSecret":
		return EnvConsumerSecret
	default:
		return "platform." + field
	}
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
