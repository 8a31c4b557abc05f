package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultPath = "configs/config.yaml"
)

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
	Websocket WebsocketConfig `yaml:"websocket"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTTL"`
	SecureCookies   bool          `yaml:"secureCookies"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type WebsocketConfig struct {
	RequireAuth bool `yaml:"requireAuth"`
}

type RateLimitConfig struct {
	Auth RateConfig `yaml:"auth"`
	API  RateConfig `yaml:"api"`
}

type RateConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Database: DatabaseConfig{Path: "chatter.db"},
		Auth: AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Log:       LogConfig{Level: "info"},
		Websocket: WebsocketConfig{RequireAuth: false},
		RateLimit: RateLimitConfig{
			Auth: RateConfig{RequestsPerSecond: 5, Burst: 10},
			API:  RateConfig{RequestsPerSecond: 30, Burst: 50},
		},
	}
}

// Load reads path (or CHATTER_CONFIG, or DefaultPath) over the defaults,
// applies environment overrides and validates the result. A missing file is
// only an error when the path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := strings.TrimSpace(os.Getenv("CHATTER_CONFIG")); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ApplyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("APP_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("FRONTEND_URL")); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
		for i := range cfg.CORS.AllowedOrigins {
			cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(cfg.CORS.AllowedOrigins[i])
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_REQUIRE_AUTH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WS_REQUIRE_AUTH: %w", err)
		}
		cfg.Websocket.RequireAuth = b
	}
	if v := strings.TrimSpace(os.Getenv("CHATTER_ENV")); v != "" {
		cfg.Env = v
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.Secret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("auth.secret is required outside development"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimit.Auth.RequestsPerSecond <= 0 || c.RateLimit.API.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
