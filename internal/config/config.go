package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	AWS           AWSConfig           `yaml:"aws"`
	APNs          APNsConfig          `yaml:"apns"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Live          LiveConfig          `yaml:"live"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	// Timeout bounds every storage call issued outside an HTTP request
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig holds identity token verification settings
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
	Issuer      string `yaml:"issuer"`
}

// AWSConfig holds S3 settings for hosted calendar files
type AWSConfig struct {
	Region     string        `yaml:"region"`
	S3Bucket   string        `yaml:"s3_bucket"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Endpoint   string        `yaml:"endpoint"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// APNsConfig holds Apple push settings; push is disabled when KeyPath is empty
type APNsConfig struct {
	KeyPath    string `yaml:"key_path"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// NotificationsConfig holds the notification gate settings
type NotificationsConfig struct {
	DailyCap        int           `yaml:"daily_cap"`
	Timezone        string        `yaml:"timezone"`
	QuietStart      string        `yaml:"quiet_start"`
	QuietEnd        string        `yaml:"quiet_end"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
}

// LiveConfig holds live location settings
type LiveConfig struct {
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	Retention        time.Duration `yaml:"retention"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Auth.TokenSecret == "" {
		return nil, fmt.Errorf("auth.token_secret is required")
	}
	if _, err := cfg.Notifications.Location(); err != nil {
		return nil, fmt.Errorf("invalid notifications.timezone: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = 5 * time.Second
	}
	if c.AWS.PresignTTL == 0 {
		c.AWS.PresignTTL = 15 * time.Minute
	}
	if c.Notifications.DailyCap == 0 {
		c.Notifications.DailyCap = 10
	}
	if c.Notifications.QuietStart == "" {
		c.Notifications.QuietStart = "22:00"
	}
	if c.Notifications.QuietEnd == "" {
		c.Notifications.QuietEnd = "07:00"
	}
	if c.Notifications.DeliveryTimeout == 0 {
		c.Notifications.DeliveryTimeout = 10 * time.Second
	}
	if c.Live.ThrottleInterval == 0 {
		c.Live.ThrottleInterval = 3 * time.Second
	}
	if c.Live.Retention == 0 {
		c.Live.Retention = 24 * time.Hour
	}
	if c.Live.SweepInterval == 0 {
		c.Live.SweepInterval = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Location returns the time zone used for daily caps and quiet hours
func (c *NotificationsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
