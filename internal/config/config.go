package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Output   OutputConfig   `mapstructure:"output"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// StoreConfig points the client at the remote invoice store
type StoreConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OutputConfig holds local artifact output settings
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ArchiveConfig holds the optional S3 archive of rendered artifacts
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"`
}

// ServerConfig holds HTTP server configuration of the reference store
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration of the reference store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// EmailConfig holds the sender identity of outgoing invoice emails
type EmailConfig struct {
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// NotifyConfig holds chat notifications of email dispatches
type NotifyConfig struct {
	Lark  LarkConfig  `mapstructure:"lark"`
	Slack SlackConfig `mapstructure:"slack"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
	ReceiveID     string `mapstructure:"receive_id"`
}

// SlackConfig holds Slack API configuration
type SlackConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	Channel  string `mapstructure:"channel"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env, the optional YAML file at configPath and the environment,
// in increasing order of precedence
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.base_url", "http://localhost:8080/api/invoices")
	v.SetDefault("store.timeout", 30*time.Second)

	v.SetDefault("output.dir", "invoices")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "invoices")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("email.from", "billing@invoice-manager.local")
	v.SetDefault("email.from_name", "Invoice Manager")

	v.SetDefault("notify.lark.receive_id_type", "chat_id")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"store.base_url":         "INVOICE_API_URL",
		"output.dir":             "INVOICE_OUTPUT_DIR",
		"archive.enabled":        "INVOICE_ARCHIVE_ENABLED",
		"archive.bucket":         "AWS_S3_BUCKET",
		"archive.region":         "AWS_REGION",
		"archive.endpoint":       "AWS_S3_ENDPOINT",
		"database.driver":        "DATABASE_DRIVER",
		"database.dsn":           "DATABASE_DSN",
		"database.path":          "DATABASE_PATH",
		"email.from":             "EMAIL_FROM",
		"email.from_name":        "EMAIL_FROM_NAME",
		"notify.lark.app_id":     "LARK_APP_ID",
		"notify.lark.app_secret": "LARK_APP_SECRET",
		"notify.lark.receive_id": "LARK_RECEIVE_ID",
		"notify.slack.bot_token": "SLACK_BOT_TOKEN",
		"notify.slack.channel":   "SLACK_CHANNEL",
		"logger.level":           "LOG_LEVEL",
		"server.port":            "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Store.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("store.base_url must be an http(s) url: %q", c.Store.BaseURL)
	}
	if c.Store.Timeout < 0 {
		return errors.New("store.timeout must not be negative")
	}

	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket is required when archive is enabled")
		}
		if c.Archive.Region == "" {
			return errors.New("archive.region is required when archive is enabled")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite3")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver: %q", c.Database.Driver)
	}

	if c.Email.From == "" {
		return errors.New("email.from is required")
	}

	if c.Notify.Lark.Enabled {
		if c.Notify.Lark.AppID == "" || c.Notify.Lark.AppSecret == "" {
			return errors.New("notify.lark.app_id and notify.lark.app_secret are required when lark is enabled")
		}
		if c.Notify.Lark.ReceiveID == "" {
			return errors.New("notify.lark.receive_id is required when lark is enabled")
		}
	}
	if c.Notify.Slack.Enabled {
		if c.Notify.Slack.BotToken == "" || c.Notify.Slack.Channel == "" {
			return errors.New("notify.slack.bot_token and notify.slack.channel are required when slack is enabled")
		}
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console: %q", c.Logger.Format)
	}

	return nil
}
