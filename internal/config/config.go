package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongoDB = "mongodb"
	DriverBolt    = "bolt"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	MongoDB  MongoDBConfig
	Bolt     BoltConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Lottery  LotteryConfig
	Client   ClientConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port                   string
	AllowedOrigins         []string
	ShutdownTimeoutSeconds int
}

// StorageConfig selects the storage driver.
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI                   string
	Database              string
	ConnectTimeoutSeconds int
}

// BoltConfig holds the embedded store location.
type BoltConfig struct {
	Path string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// AuthConfig controls admin authentication on mutating routes.
type AuthConfig struct {
	Enabled       bool
	AdminEmail    string
	AdminPassword string
}

// LotteryConfig holds draw presentation defaults.
type LotteryConfig struct {
	DefaultAnimationDurationMs int
	// RevealFraction is the share of the animation after which drawing
	// turns into revealing.
	RevealFraction float64
}

// ClientConfig is used by lotteryctl to reach the API.
type ClientConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TokenTTL returns the JWT lifetime.
func (c JWTConfig) TokenTTL() time.Duration {
	return time.Duration(c.ExpiresIn) * time.Second
}

// Timeout returns the HTTP client timeout.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load loads configuration from .env, an optional config.yaml and the
// environment, in increasing priority. Environment keys use underscores,
// e.g. SERVER_PORT or MONGODB_URI.
func Load(configPaths ...string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MongoDB.URI is required for the mongodb driver")
		}
	case DriverBolt:
		if c.Bolt.Path == "" {
			return errors.New("Bolt.Path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("unknown Storage.Driver %q (want %s or %s)", c.Storage.Driver, DriverMongoDB, DriverBolt)
	}
	if c.Auth.Enabled && c.JWT.Secret == "" {
		return errors.New("JWT.Secret is required when Auth.Enabled is true")
	}
	if c.Lottery.RevealFraction <= 0 || c.Lottery.RevealFraction >= 1 {
		return fmt.Errorf("Lottery.RevealFraction must be between 0 and 1, got %v", c.Lottery.RevealFraction)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("Server.ShutdownTimeoutSeconds", 5)
	v.SetDefault("Storage.Driver", DriverBolt)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "super_lotto")
	v.SetDefault("MongoDB.ConnectTimeoutSeconds", 10)
	v.SetDefault("Bolt.Path", "super-lotto.db")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Auth.Enabled", false)
	v.SetDefault("Auth.AdminEmail", "")
	v.SetDefault("Auth.AdminPassword", "")
	v.SetDefault("Lottery.DefaultAnimationDurationMs", 5000)
	v.SetDefault("Lottery.RevealFraction", 0.7)
	v.SetDefault("Client.BaseURL", "http://localhost:8080/api/v1")
	v.SetDefault("Client.Token", "")
	v.SetDefault("Client.TimeoutSeconds", 15)
	v.SetDefault("LogLevel", "info")
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
