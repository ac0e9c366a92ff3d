package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full process configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the store driver and pool limits
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite3
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SourceConfig configures the record source client
type SourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	ReportURLTemplate string        `mapstructure:"report_url_template"` // %s is the DD-MM-YYYY date
}

// IngestConfig bounds the orchestrator
type IngestConfig struct {
	ChunkSize        int           `mapstructure:"chunk_size"`
	ChunkDelay       time.Duration `mapstructure:"chunk_delay"`
	WriteConcurrency int           `mapstructure:"write_concurrency"`
	PreambleLength   int           `mapstructure:"preamble_length"`
}

// SummaryConfig configures the summary generator
type SummaryConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MemberModel string        `mapstructure:"member_model"`
	Concurrency int           `mapstructure:"concurrency"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the browse server
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// ErrMissingDatabaseURL is returned when no store DSN is configured
var ErrMissingDatabaseURL = errors.New("database url is required (set DATABASE_URL or --database-url)")

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("source.base_url", "http://localhost:8090/api")
	v.SetDefault("source.timeout", 60*time.Second)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.initial_backoff", 2*time.Second)
	v.SetDefault("source.report_url_template", "https://sprs.parl.gov.sg/search/#/fullreport?sittingdate=%s")

	v.SetDefault("ingest.chunk_size", 5)
	v.SetDefault("ingest.chunk_delay", time.Second)
	v.SetDefault("ingest.write_concurrency", 10)
	v.SetDefault("ingest.preamble_length", 1000)

	v.SetDefault("summary.api_key", "")
	v.SetDefault("summary.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("summary.model", "gemini-2.5-flash")
	v.SetDefault("summary.member_model", "gemini-2.5-flash-lite")
	v.SetDefault("summary.concurrency", 20)
	v.SetDefault("summary.cooldown", 500*time.Millisecond)
	v.SetDefault("summary.timeout", 120*time.Second)

	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads .env, the optional config file and the environment into a Config.
// An explicit configFile must exist; the default search path may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix("PARLIAMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "PARLIAMENT_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("summary.api_key", "PARLIAMENT_SUMMARY_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("server.port", "PARLIAMENT_SERVER_PORT", "PORT")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("parliament")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireDatabase reports whether the store can be opened
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.WriteConcurrency < 1 {
		return fmt.Errorf("ingest.write_concurrency must be positive, got %d", c.Ingest.WriteConcurrency)
	}
	if c.Summary.Concurrency < 1 {
		return fmt.Errorf("summary.concurrency must be positive, got %d", c.Summary.Concurrency)
	}
	return nil
}
