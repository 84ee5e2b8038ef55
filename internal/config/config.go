package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Leeway    time.Duration `yaml:"leeway"`
}

// CacheConfig holds the TTL classes and the durable mirror location.
type CacheConfig struct {
	DurablePath    string        `yaml:"durable_path"`
	Prefix         string        `yaml:"prefix"`
	MemberTTL      time.Duration `yaml:"member_ttl"`
	TasksTTL       time.Duration `yaml:"tasks_ttl"`
	ProjectsTTL    time.Duration `yaml:"projects_ttl"`
	AssignmentsTTL time.Duration `yaml:"assignments_ttl"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

// ReportsConfig points at an optional TTF font for PDF reports.
type ReportsConfig struct {
	FontPath string `yaml:"font_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Email   EmailConfig   `yaml:"email"`
	Reports ReportsConfig `yaml:"reports"`
	Log     LogConfig     `yaml:"log"`
}

// LoadConfig reads DefaultPath and panics on failure.
func LoadConfig() *Config {
	cfg, err := Load(DefaultPath)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load decodes the YAML file at path, loads an optional .env next to the
// working directory, applies TASKBOARD_* environment overrides and fills
// defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TASKBOARD_DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TASKBOARD_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TASKBOARD_SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("TASKBOARD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKBOARD_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Auth.Leeway == 0 {
		c.Auth.Leeway = 2 * time.Minute
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "dashboard_cache_"
	}
	if c.Cache.MemberTTL == 0 {
		c.Cache.MemberTTL = 5 * time.Minute
	}
	if c.Cache.TasksTTL == 0 {
		c.Cache.TasksTTL = 2 * time.Minute
	}
	if c.Cache.ProjectsTTL == 0 {
		c.Cache.ProjectsTTL = 3 * time.Minute
	}
	if c.Cache.AssignmentsTTL == 0 {
		c.Cache.AssignmentsTTL = 2 * time.Minute
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
