package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COURSE_SERVER_PORT.
const EnvPrefix = "COURSE"

type Config struct {
	Server struct {
		Port           string   `yaml:"port" envconfig:"PORT" validate:"required,numeric"`
		AllowedOrigins []string `yaml:"allowedOrigins" envconfig:"ALLOWED_ORIGINS"`
		SecureCookies  bool     `yaml:"secureCookies" envconfig:"SECURE_COOKIES"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" envconfig:"ADDR"`
		Password string `yaml:"password" envconfig:"PASSWORD"`
		DB       int    `yaml:"db" envconfig:"DB" validate:"gte=0"`
		TTL      string `yaml:"ttl" envconfig:"TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" envconfig:"URL"`
	} `yaml:"postgres"`
	Course struct {
		TTL                      string `yaml:"ttl" envconfig:"TTL"`
		RejectInvalidGotoTargets *bool  `yaml:"rejectInvalidGotoTargets" envconfig:"REJECT_INVALID_GOTO_TARGETS"`
		SeedFile                 string `yaml:"seedFile" envconfig:"SEED_FILE"`
	} `yaml:"course"`
	Auth struct {
		JWTSecret  string     `yaml:"jwtSecret" envconfig:"JWT_SECRET" validate:"required,min=8"`
		CookieName string     `yaml:"cookieName" envconfig:"COOKIE_NAME" validate:"required"`
		TokenTTL   string     `yaml:"tokenTTL" envconfig:"TOKEN_TTL"`
		Users      []UserSeed `yaml:"users" ignored:"true" validate:"dive"`
	} `yaml:"auth"`
	Media struct {
		Dir            string `yaml:"dir" envconfig:"DIR" validate:"required"`
		URLPrefix      string `yaml:"urlPrefix" envconfig:"URL_PREFIX" validate:"required,startswith=/"`
		MaxUploadBytes int64  `yaml:"maxUploadBytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	} `yaml:"media"`
	Playback struct {
		TooltipDuration string `yaml:"tooltipDuration" envconfig:"TOOLTIP_DURATION"`
		TrackTimeout    string `yaml:"trackTimeout" envconfig:"TRACK_TIMEOUT"`
	} `yaml:"playback"`
}

// UserSeed is an account created at startup. Either a bcrypt hash or a
// plain password must be given.
type UserSeed struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email" validate:"required,email"`
	DisplayName  string `yaml:"displayName"`
	Role         string `yaml:"role" validate:"oneof=superadmin admin user"`
	Password     string `yaml:"password" validate:"required_without=PasswordHash"`
	PasswordHash string `yaml:"passwordHash"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Auth.JWTSecret = "dev-secret-change-in-production"
	cfg.Auth.CookieName = "session"
	cfg.Media.Dir = "./data/media"
	cfg.Media.URLPrefix = "/media/"
	cfg.Media.MaxUploadBytes = 20 << 20
	return cfg
}

// Load reads YAML config from path, applies COURSE_* environment overrides
// and validates the result. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file if it exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// RejectInvalidGotoTargets reports the validation rule, on unless disabled.
func (c Config) RejectInvalidGotoTargets() bool {
	if c.Course.RejectInvalidGotoTargets == nil {
		return true
	}
	return *c.Course.RejectInvalidGotoTargets
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
