package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://x"
auth:
  jwt_secret: "s3cret"
cache:
  tasks_ttl: 90s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port default: %d", cfg.Server.Port)
	}
	if cfg.Cache.TasksTTL != 90*time.Second {
		t.Fatalf("tasks ttl: %v", cfg.Cache.TasksTTL)
	}
	if cfg.Cache.MemberTTL != 5*time.Minute || cfg.Cache.ProjectsTTL != 3*time.Minute || cfg.Cache.AssignmentsTTL != 2*time.Minute {
		t.Fatalf("ttl defaults: %+v", cfg.Cache)
	}
	if cfg.Cache.Prefix != "dashboard_cache_" {
		t.Fatalf("prefix default: %q", cfg.Cache.Prefix)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://file"
auth:
  jwt_secret: "file-secret"
`)
	t.Setenv("TASKBOARD_DATABASE_URL", "postgres://env")
	t.Setenv("TASKBOARD_JWT_SECRET", "env-secret")
	t.Setenv("TASKBOARD_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "postgres://env" || cfg.Auth.JWTSecret != "env-secret" || cfg.Server.Port != 9090 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1\n")
	t.Setenv("TASKBOARD_JWT_SECRET", "")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestLoadBadPort(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: x\n")
	t.Setenv("TASKBOARD_PORT", "eighty")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
