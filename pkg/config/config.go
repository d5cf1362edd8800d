package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Queue     QueueConfig     `yaml:"queue"`
	Logger    LoggerConfig    `yaml:"logger"`
	Report    ReportConfig    `yaml:"report"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retention RetentionConfig `yaml:"retention"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for admin endpoints (optional, if empty, auth is disabled)
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// QueueConfig asynq queue configuration (only used by the asynq dispatcher)
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`  // queue processing concurrency
	MaxRetry    int `yaml:"max_retry"`    // maximum retry count
	TaskTimeout int `yaml:"task_timeout"` // task timeout (seconds), 0 means no timeout
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ReportConfig report computation configuration
type ReportConfig struct {
	BatchSize       int    `yaml:"batch_size"`       // stores per batch
	Concurrency     int    `yaml:"concurrency"`      // stores computed in parallel within a batch
	ArtifactDir     string `yaml:"artifact_dir"`     // where finished CSV reports are written
	DefaultTimezone string `yaml:"default_timezone"` // timezone for stores absent from the mapping
	NoDataPolicy    string `yaml:"no_data_policy"`   // active, inactive, exclude
	DecimalPlaces   *int32 `yaml:"decimal_places"`   // rounding precision of the uptime/downtime figures, 0 means whole units
	WebhookURL      string `yaml:"webhook_url"`      // receives the status of finished reports (optional)
	WebhookTimeout  int    `yaml:"webhook_timeout"`  // seconds
}

// IngestConfig CSV ingestion configuration
type IngestConfig struct {
	DataDir   string `yaml:"data_dir"`   // directory holding store_status.csv, menu_hours.csv, timezones.csv
	ChunkSize int    `yaml:"chunk_size"` // rows written per chunk
}

// RetentionConfig report retention configuration
type RetentionConfig struct {
	Enabled   bool          `yaml:"enabled"`
	ReportTTL time.Duration `yaml:"report_ttl"` // finished reports older than this are removed
	Interval  time.Duration `yaml:"interval"`   // cleanup interval
}

// ProvidersConfig providers configuration
type ProvidersConfig struct {
	DataSource  string `yaml:"datasource"`   // mysql, memory
	ReportStore string `yaml:"report_store"` // mysql, redis, memory
	Dispatcher  string `yaml:"dispatcher"`   // goroutine, asynq
}

const (
	DefaultBatchSize       = 100
	DefaultConcurrency     = 8
	DefaultArtifactDir     = "report_data"
	DefaultTimezone        = "America/Chicago"
	DefaultNoDataPolicy    = "active"
	DefaultDecimalPlaces   = 1
	DefaultIngestChunkSize = 5000
	DefaultReportTTL       = 7 * 24 * time.Hour
	DefaultRetentionTick   = time.Hour
)

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads and parses a YAML configuration file, filling in defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults replaces missing or invalid values with defaults
func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}

	if cfg.Report.BatchSize <= 0 {
		cfg.Report.BatchSize = DefaultBatchSize
	}
	if cfg.Report.Concurrency <= 0 {
		cfg.Report.Concurrency = DefaultConcurrency
	}
	if cfg.Report.ArtifactDir == "" {
		cfg.Report.ArtifactDir = DefaultArtifactDir
	}
	if cfg.Report.DefaultTimezone == "" {
		cfg.Report.DefaultTimezone = DefaultTimezone
	}
	if cfg.Report.DecimalPlaces == nil || *cfg.Report.DecimalPlaces < 0 {
		places := int32(DefaultDecimalPlaces)
		cfg.Report.DecimalPlaces = &places
	}
	switch cfg.Report.NoDataPolicy {
	case "active", "inactive", "exclude":
	default:
		cfg.Report.NoDataPolicy = DefaultNoDataPolicy
	}

	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = DefaultIngestChunkSize
	}
	if cfg.Ingest.DataDir == "" {
		cfg.Ingest.DataDir = "data"
	}

	if cfg.Retention.ReportTTL <= 0 {
		cfg.Retention.ReportTTL = DefaultReportTTL
	}
	if cfg.Retention.Interval <= 0 {
		cfg.Retention.Interval = DefaultRetentionTick
	}

	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 2
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}

	if cfg.Providers.DataSource == "" {
		cfg.Providers.DataSource = "mysql"
	}
	if cfg.Providers.ReportStore == "" {
		cfg.Providers.ReportStore = "mysql"
	}
	if cfg.Providers.Dispatcher == "" {
		cfg.Providers.Dispatcher = "goroutine"
	}
}
