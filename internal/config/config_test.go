package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "storaged_test")
	defer os.Unsetenv("MONGODB_URI")
	defer os.Unsetenv("MONGODB_DATABASE")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store.ConnectionString != "mongodb://localhost:27017/testdb" {
		t.Fatalf("unexpected connection string: %q", cfg.Store.ConnectionString)
	}
	if cfg.Store.DatabaseName != "storaged_test" {
		t.Fatalf("unexpected database name: %q", cfg.Store.DatabaseName)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("AUDIT_RETENTION_HOURS")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "5020" {
		t.Fatalf("unexpected default port: %q", cfg.Server.Port)
	}
	if cfg.Audit.Retention != 720*time.Hour {
		t.Fatalf("unexpected default retention: %v", cfg.Audit.Retention)
	}
	if cfg.Store.Timeout != 10*time.Second {
		t.Fatalf("unexpected default timeout: %v", cfg.Store.Timeout)
	}
}

func TestLoadConfig_RetentionOverride(t *testing.T) {
	os.Setenv("AUDIT_RETENTION_HOURS", "48")
	defer os.Unsetenv("AUDIT_RETENTION_HOURS")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Audit.Retention != 48*time.Hour {
		t.Fatalf("unexpected retention: %v", cfg.Audit.Retention)
	}
}
