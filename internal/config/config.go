package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Audit  AuditConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

// StoreConfig is the document store connection, resolved once at
// process start.
type StoreConfig struct {
	ConnectionString string
	DatabaseName     string
	Timeout          time.Duration
}

type AuditConfig struct {
	// Retention is the age after which audit records are reaped.
	Retention time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5020")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONGODB_URI", "mongodb://localhost")
	viper.SetDefault("MONGODB_DATABASE", "StorageAPI")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("AUDIT_RETENTION_HOURS", 720)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			LogLevel:     viper.GetString("LOG_LEVEL"),
		},
		Store: StoreConfig{
			ConnectionString: viper.GetString("MONGODB_URI"),
			DatabaseName:     viper.GetString("MONGODB_DATABASE"),
			Timeout:          time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Audit: AuditConfig{
			Retention: time.Duration(viper.GetInt("AUDIT_RETENTION_HOURS")) * time.Hour,
		},
	}

	return cfg, nil
}
