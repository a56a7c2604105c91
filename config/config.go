package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultLogLevel        = "info"
	DefaultUploadFolder    = "./uploads"
	DefaultMaxFileSize     = 10 * 1024 * 1024
	DefaultRateLimit       = 60
	DefaultRetention       = 14 * 24 * time.Hour
	DefaultCleanupInterval = 24 * time.Hour

	DefaultDirPerm = 0o750
)

type Config struct {
	Env      string
	Host     string
	Port     int
	LogLevel string

	UploadFolder string
	MaxFileSize  int64

	RateLimit    float64
	AllowedHosts []string

	Retention       time.Duration
	CleanupInterval time.Duration

	RulesFile string

	// BackendURL sends page uploads to another API instance. Empty runs them
	// in process.
	BackendURL string
}

func DefaultConfig() *Config {
	return &Config{
		Env:             EnvDevelopment,
		Host:            DefaultHost,
		Port:            DefaultPort,
		LogLevel:        DefaultLogLevel,
		UploadFolder:    DefaultUploadFolder,
		MaxFileSize:     DefaultMaxFileSize,
		RateLimit:       DefaultRateLimit,
		Retention:       DefaultRetention,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Load reads an optional .env file, then environment variables and flags.
// Flags win over the environment.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := DefaultConfig()
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v, cfg)

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.String("host", cfg.Host, "Listen host")
	flags.Int("port", cfg.Port, "Listen port")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("uploads", cfg.UploadFolder, "Directory for stored uploads")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	_ = v.BindPFlag("APP_HOST", flags.Lookup("host"))
	_ = v.BindPFlag("APP_PORT", flags.Lookup("port"))
	_ = v.BindPFlag("LOG_LEVEL", flags.Lookup("loglevel"))
	_ = v.BindPFlag("UPLOAD_FOLDER", flags.Lookup("uploads"))

	populate(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("APP_ENV", cfg.Env)
	v.SetDefault("APP_HOST", cfg.Host)
	v.SetDefault("APP_PORT", cfg.Port)
	v.SetDefault("LOG_LEVEL", cfg.LogLevel)
	v.SetDefault("UPLOAD_FOLDER", cfg.UploadFolder)
	v.SetDefault("MAX_FILE_SIZE", cfg.MaxFileSize)
	v.SetDefault("RATE_LIMIT", cfg.RateLimit)
	v.SetDefault("ALLOWED_HOSTS", "")
	v.SetDefault("RETENTION", cfg.Retention)
	v.SetDefault("CLEANUP_INTERVAL", cfg.CleanupInterval)
	v.SetDefault("FORM_RULES_FILE", "")
	v.SetDefault("BACKEND_URL", "")
}

func populate(v *viper.Viper, cfg *Config) {
	cfg.Env = strings.ToLower(v.GetString("APP_ENV"))
	cfg.Host = v.GetString("APP_HOST")
	cfg.Port = v.GetInt("APP_PORT")
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.UploadFolder = v.GetString("UPLOAD_FOLDER")
	cfg.MaxFileSize = v.GetInt64("MAX_FILE_SIZE")
	cfg.RateLimit = v.GetFloat64("RATE_LIMIT")
	cfg.AllowedHosts = splitList(v.GetString("ALLOWED_HOSTS"))
	cfg.Retention = v.GetDuration("RETENTION")
	cfg.CleanupInterval = v.GetDuration("CLEANUP_INTERVAL")
	cfg.RulesFile = v.GetString("FORM_RULES_FILE")
	cfg.BackendURL = v.GetString("BACKEND_URL")
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

// Validate checks the configuration and creates the upload folder when missing.
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid environment: %s (must be %s or %s)", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.Retention <= 0 || c.CleanupInterval <= 0 {
		return errors.New("retention and cleanup interval must be positive")
	}
	if c.UploadFolder == "" {
		return errors.New("upload folder cannot be empty")
	}
	if err := os.MkdirAll(c.UploadFolder, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create upload folder %s: %w", c.UploadFolder, err)
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
