// Package config loads application settings from a YAML file, the process
// environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"fin_dashboard/pkg/core/agent"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "config/app.yaml"

type Config struct {
	Server     ServerConfig  `yaml:"server"`
	Database   DBConfig      `yaml:"database"`
	Compare    CompareConfig `yaml:"compare"`
	Log        LogConfig     `yaml:"log"`
	Agents     agent.Config  `yaml:"llm"`
	PromptFile string        `yaml:"prompt_file"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DBConfig struct {
	URL      string `yaml:"url"`
	CacheDir string `yaml:"cache_dir"`
}

type CompareConfig struct {
	CatalogPath string  `yaml:"catalog"`
	Currency    string  `yaml:"currency" validate:"required"`
	TieEpsilon  float64 `yaml:"tie_epsilon" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
		Database: DBConfig{CacheDir: ".cache/snapshots"},
		Compare:  CompareConfig{Currency: "USD"},
		Log:      LogConfig{Level: "info"},
		Agents:   agent.Config{ActiveProvider: "gemini"},
	}
}

// Load reads path (DefaultPath when empty) over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FINCMP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FINCMP_CURRENCY"); v != "" {
		cfg.Compare.Currency = v
	}
	if v := os.Getenv("FINCMP_CATALOG"); v != "" {
		cfg.Compare.CatalogPath = v
	}
	if v := os.Getenv("FINCMP_CACHE_DIR"); v != "" {
		cfg.Database.CacheDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Agents.ActiveProvider = v
	}
	if v := os.Getenv("FINCMP_TIE_EPSILON"); v != "" {
		eps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FINCMP_TIE_EPSILON: %w", err)
		}
		cfg.Compare.TieEpsilon = eps
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
