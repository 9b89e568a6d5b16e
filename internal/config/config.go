package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Mailbox    MailboxConfig    `mapstructure:"mailbox"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Path     string `mapstructure:"path"` // sqlite file, ":memory:" allowed
}

// MailboxConfig holds the IMAP connection used for intake
type MailboxConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	TLS                bool   `mapstructure:"tls"`
	Folder             string `mapstructure:"folder"`
	WindowDays         int    `mapstructure:"window_days"`
	MaxAttachmentBytes int64  `mapstructure:"max_attachment_bytes"`
}

// ExtractionConfig selects and tunes the document extraction provider
type ExtractionConfig struct {
	Provider      string        `mapstructure:"provider"` // vertex or http
	ProjectID     string        `mapstructure:"project_id"`
	Region        string        `mapstructure:"region"`
	Model         string        `mapstructure:"model"`
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	MaxPDFPages   int           `mapstructure:"max_pdf_pages"`
}

// ResolverConfig holds fuzzy matching thresholds
type ResolverConfig struct {
	JobThreshold      int `mapstructure:"job_threshold"`
	EmployeeThreshold int `mapstructure:"employee_threshold"`
}

// PipelineConfig holds intake pipeline settings
type PipelineConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// ArchiveConfig holds archival storage configuration
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
}

// NotifyConfig holds Gmail API configuration for sender summaries
type NotifyConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit config file. An empty path
// searches ./config.yaml and ./config/config.yaml.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.path", "expense-intake.db")

	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("mailbox.window_days", 7)
	v.SetDefault("mailbox.max_attachment_bytes", 20<<20)

	v.SetDefault("extraction.provider", "vertex")
	v.SetDefault("extraction.region", "us-central1")
	v.SetDefault("extraction.model", "gemini-1.5-pro")
	v.SetDefault("extraction.timeout", "60s")
	v.SetDefault("extraction.rate_per_minute", 30)
	v.SetDefault("extraction.max_pdf_pages", 5)

	v.SetDefault("resolver.job_threshold", 90)
	v.SetDefault("resolver.employee_threshold", 75)

	v.SetDefault("pipeline.stale_after", "30m")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("notify.enabled", false)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_minutes", 5)
}

func bindEnvVars(v *viper.Viper) {
	bindings := map[string]string{
		"log.level": "LOG_LEVEL",

		"server.port":          "SERVER_PORT",
		"server.read_timeout":  "SERVER_READ_TIMEOUT",
		"server.write_timeout": "SERVER_WRITE_TIMEOUT",

		"database.driver":   "DB_DRIVER",
		"database.host":     "DB_HOST",
		"database.port":     "DB_PORT",
		"database.user":     "DB_USER",
		"database.password": "DB_PASSWORD",
		"database.dbname":   "DB_NAME",
		"database.path":     "DB_PATH",

		"mailbox.host":                 "MAILBOX_HOST",
		"mailbox.port":                 "MAILBOX_PORT",
		"mailbox.username":             "MAILBOX_USERNAME",
		"mailbox.password":             "MAILBOX_PASSWORD",
		"mailbox.tls":                  "MAILBOX_TLS",
		"mailbox.folder":               "MAILBOX_FOLDER",
		"mailbox.window_days":          "MAILBOX_WINDOW_DAYS",
		"mailbox.max_attachment_bytes": "MAILBOX_MAX_ATTACHMENT_BYTES",

		"extraction.provider":        "EXTRACTION_PROVIDER",
		"extraction.project_id":      "EXTRACTION_PROJECT_ID",
		"extraction.region":          "EXTRACTION_REGION",
		"extraction.model":           "EXTRACTION_MODEL",
		"extraction.endpoint":        "EXTRACTION_ENDPOINT",
		"extraction.api_key":         "EXTRACTION_API_KEY",
		"extraction.timeout":         "EXTRACTION_TIMEOUT",
		"extraction.rate_per_minute": "EXTRACTION_RATE_PER_MINUTE",
		"extraction.max_pdf_pages":   "EXTRACTION_MAX_PDF_PAGES",

		"resolver.job_threshold":      "RESOLVER_JOB_THRESHOLD",
		"resolver.employee_threshold": "RESOLVER_EMPLOYEE_THRESHOLD",

		"pipeline.stale_after": "PIPELINE_STALE_AFTER",

		"archive.enabled": "ARCHIVE_ENABLED",
		"archive.bucket":  "ARCHIVE_BUCKET",

		"notify.enabled":       "NOTIFY_ENABLED",
		"notify.client_id":     "GMAIL_CLIENT_ID",
		"notify.client_secret": "GMAIL_CLIENT_SECRET",
		"notify.refresh_token": "GMAIL_REFRESH_TOKEN",
		"notify.user_email":    "GMAIL_USER_EMAIL",

		"scheduler.enabled":          "SCHEDULER_ENABLED",
		"scheduler.interval_minutes": "SCHEDULER_INTERVAL_MINUTES",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// GetDSN returns the MySQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.Mailbox.Host == "" || c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return fmt.Errorf("mailbox host and credentials are required")
	}
	if c.Mailbox.WindowDays <= 0 {
		return fmt.Errorf("mailbox window must be at least one day")
	}

	switch c.Extraction.Provider {
	case "vertex":
		if c.Extraction.ProjectID == "" {
			return fmt.Errorf("extraction project_id is required for the vertex provider")
		}
	case "http":
		if c.Extraction.Endpoint == "" {
			return fmt.Errorf("extraction endpoint is required for the http provider")
		}
	default:
		return fmt.Errorf("unsupported extraction provider %q", c.Extraction.Provider)
	}

	if c.Resolver.JobThreshold < 0 || c.Resolver.JobThreshold > 100 ||
		c.Resolver.EmployeeThreshold < 0 || c.Resolver.EmployeeThreshold > 100 {
		return fmt.Errorf("resolver thresholds must be within 0..100")
	}

	if c.Notify.Enabled && (c.Notify.ClientID == "" || c.Notify.ClientSecret == "" || c.Notify.RefreshToken == "") {
		return fmt.Errorf("Gmail OAuth2 credentials are required when notifications are enabled")
	}

	if c.Scheduler.Enabled && c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}

// ValidateStore checks only what the review commands need: the database and
// archival settings.
func (c *Config) ValidateStore() error {
	switch strings.ToLower(c.Database.Driver) {
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archival is enabled")
	}
	return nil
}
